package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/domain/appointment"
	"github.com/medichain/medichain/internal/domain/support"
	"github.com/medichain/medichain/internal/ledger"
	"github.com/medichain/medichain/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		respondError(c, http.StatusBadRequest, validErr.Message)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusBadRequest, "Invalid credentials.")

	case errors.Is(err, service.ErrAccountDisabled):
		respondError(c, http.StatusForbidden, "Your account has been disabled. Please contact support.")

	case errors.Is(err, service.ErrAccountLocked):
		respondError(c, http.StatusForbidden, "Account temporarily locked. Try again later.")

	case errors.Is(err, service.ErrInvalidResetToken):
		respondError(c, http.StatusBadRequest, "Invalid or expired token.")

	case errors.Is(err, service.ErrPasswordReused):
		respondError(c, http.StatusBadRequest, "You cannot use a previously used password.")

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, appointment.ErrNotOwner):
		respondError(c, http.StatusForbidden, "Access denied.")

	case errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "User not found.")

	case errors.Is(err, domain.ErrEmailTaken):
		respondError(c, http.StatusBadRequest, "Email already registered.")

	case errors.Is(err, domain.ErrIDNumberTaken):
		respondError(c, http.StatusBadRequest, "User already exists.")

	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, support.ErrRequestNotFound),
		errors.Is(err, ledger.ErrContractNotFound):
		respondError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, ledger.ErrLedgerUnavailable):
		respondError(c, http.StatusBadGateway, "Contract ledger is unavailable.")

	default:
		respondError(c, http.StatusInternalServerError, "Internal server error.")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input type.")
		return false
	}
	return true
}

func parseUint64(c *gin.Context, param string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a positive integer")
		return 0, false
	}
	return v, true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
