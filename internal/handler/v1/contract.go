package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medichain/medichain/internal/middleware"
	"github.com/medichain/medichain/internal/service"
)

// ContractHandler fronts the treatment-contract ledger. All routes sit
// behind the session middleware; role gates live in the service.
type ContractHandler struct {
	contractSvc *service.ContractService
}

func NewContractHandler(contractSvc *service.ContractService) *ContractHandler {
	return &ContractHandler{contractSvc: contractSvc}
}

type createContractRequest struct {
	PatientID     uint64 `json:"patientId"`
	DoctorID      uint64 `json:"doctorId"`
	TreatmentType string `json:"treatmentType"`
	Description   string `json:"description"`
}

func (h *ContractHandler) Create(c *gin.Context) {
	var req createContractRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	err := h.contractSvc.CreateContract(c.Request.Context(), &service.CreateContractCommand{
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		TreatmentType: req.TreatmentType,
		Description:   req.Description,
	}, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "Contract created successfully.")
}

type updateContractRequest struct {
	TreatmentType string `json:"treatmentType"`
	Description   string `json:"description"`
}

func (h *ContractHandler) Update(c *gin.Context) {
	id, ok := parseUint64(c, "id")
	if !ok {
		return
	}
	var req updateContractRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	err := h.contractSvc.UpdateContract(c.Request.Context(), id, req.TreatmentType, req.Description, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Contract updated successfully.")
}

func (h *ContractHandler) Approve(c *gin.Context) {
	id, ok := parseUint64(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	if err := h.contractSvc.ApproveContract(c.Request.Context(), id, caller, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Contract approved successfully.")
}

func (h *ContractHandler) ListByPatient(c *gin.Context) {
	id, ok := parseUint64(c, "id")
	if !ok {
		return
	}
	contracts, err := h.contractSvc.ContractsByPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, contracts)
}

func (h *ContractHandler) ListByDoctor(c *gin.Context) {
	id, ok := parseUint64(c, "id")
	if !ok {
		return
	}
	contracts, err := h.contractSvc.ContractsByDoctor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, contracts)
}

func (h *ContractHandler) Delete(c *gin.Context) {
	id, ok := parseUint64(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	if err := h.contractSvc.MarkDeleted(c.Request.Context(), id, caller, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Contract deleted successfully.")
}

func (h *ContractHandler) Restore(c *gin.Context) {
	id, ok := parseUint64(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	if err := h.contractSvc.Restore(c.Request.Context(), id, caller, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Contract restored successfully.")
}

// ListAll enriches ledger contracts with display names for the admin view.
func (h *ContractHandler) ListAll(c *gin.Context) {
	contracts, err := h.contractSvc.AllContracts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, contracts)
}
