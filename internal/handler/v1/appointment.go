package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/domain/appointment"
	"github.com/medichain/medichain/internal/middleware"
	"github.com/medichain/medichain/internal/service"
)

type AppointmentHandler struct {
	apptSvc *service.AppointmentService
}

func NewAppointmentHandler(apptSvc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{apptSvc: apptSvc}
}

type createAppointmentRequest struct {
	DoctorID    string `json:"doctorId"`
	PatientID   string `json:"patientId"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	appt, err := h.apptSvc.CreateAppointment(c.Request.Context(), &appointment.CreateAppointmentCommand{
		DoctorID:    req.DoctorID,
		PatientID:   req.PatientID,
		Date:        req.Date,
		Time:        req.Time,
		Description: req.Description,
	}, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, appt)
}

func (h *AppointmentHandler) ListByDoctor(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	appts, err := h.apptSvc.ListByDoctor(c.Request.Context(), c.Param("idNumber"), caller)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appts)
}

func (h *AppointmentHandler) ListByPatient(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	patientID := c.Param("idNumber")

	// Patients only see their own schedule; staff may look up any patient.
	if caller.Role == domain.RolePatient && caller.IDNumber != patientID {
		respondServiceError(c, service.ErrForbidden)
		return
	}

	views, err := h.apptSvc.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, views)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	appt, err := h.apptSvc.CancelAppointment(c.Request.Context(), id, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appt)
}

type toggleCanceledRequest struct {
	Canceled bool `json:"canceled"`
}

func (h *AppointmentHandler) ToggleCanceled(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req toggleCanceledRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	appt, err := h.apptSvc.ToggleCanceled(c.Request.Context(), id, req.Canceled, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, appt)
}
