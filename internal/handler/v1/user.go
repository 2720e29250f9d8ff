package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/middleware"
	"github.com/medichain/medichain/internal/service"
	"github.com/medichain/medichain/internal/validation"
)

// UserHandler exposes the admin account-management surface plus the name
// lookup used by contract views.
type UserHandler struct {
	userSvc *service.UserService
}

func NewUserHandler(userSvc *service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userSvc.ListUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, users)
}

type createUserRequest struct {
	registerRequest
	UserType domain.Role `json:"userType"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	birthDate, _ := parseDate(req.BirthDate)
	user, err := h.userSvc.CreateUser(c.Request.Context(), &service.CreateUserCommand{
		Registration: validation.Registration{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			IDNumber:  req.IDNumber,
			Password:  req.Password,
			BirthDate: birthDate,
		},
		Role: req.UserType,
	}, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, user)
}

type updateUserRequest struct {
	FirstName *string      `json:"firstName"`
	LastName  *string      `json:"lastName"`
	Email     *string      `json:"email"`
	Phone     *string      `json:"phone"`
	BirthDate *string      `json:"birthDate"`
	UserType  *domain.Role `json:"userType"`
	Active    *bool        `json:"active"`
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	cmd := &service.UpdateUserCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.UserType,
		Active:    req.Active,
	}
	if req.BirthDate != nil {
		birthDate, err := parseDate(*req.BirthDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid birth date.")
			return
		}
		cmd.BirthDate = &birthDate
	}

	user, err := h.userSvc.UpdateUser(c.Request.Context(), id, cmd, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	if err := h.userSvc.DeleteUser(c.Request.Context(), id, caller, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "User deleted successfully.")
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive is the only path that re-enables a disabled account.
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, _ := middleware.CurrentUser(c)

	if err := h.userSvc.SetActive(c.Request.Context(), id, req.Active, caller, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "User status updated successfully.")
}

func (h *UserHandler) GetName(c *gin.Context) {
	name, err := h.userSvc.GetUserName(c.Request.Context(), c.Param("idNumber"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, name)
}
