package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/medichain/medichain/internal/middleware"
	"github.com/medichain/medichain/internal/service"
)

type SupportHandler struct {
	supportSvc *service.SupportService
}

func NewSupportHandler(supportSvc *service.SupportService) *SupportHandler {
	return &SupportHandler{supportSvc: supportSvc}
}

type submitSupportRequest struct {
	Description string `json:"description"`
}

func (h *SupportHandler) Submit(c *gin.Context) {
	var req submitSupportRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	request, err := h.supportSvc.SubmitRequest(c.Request.Context(), req.Description, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, request)
}

func (h *SupportHandler) List(c *gin.Context) {
	requests, err := h.supportSvc.ListRequests(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, requests)
}

func (h *SupportHandler) Complete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	request, err := h.supportSvc.CompleteRequest(c.Request.Context(), id, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, request)
}
