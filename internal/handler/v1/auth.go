package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medichain/medichain/internal/config"
	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/middleware"
	"github.com/medichain/medichain/internal/service"
	"github.com/medichain/medichain/internal/validation"
)

type AuthHandler struct {
	authSvc *service.AuthService
	jwtCfg  config.JWTConfig
	secure  bool
}

func NewAuthHandler(authSvc *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		jwtCfg:  cfg.JWT,
		secure:  cfg.App.IsProduction(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates credentials and sets the session cookie on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, _, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.setSessionCookie(c, token, int(h.jwtCfg.SessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful.",
		"userType": user.Role,
		"active":   user.Active,
	})
}

// Logout clears the session cookie. Tokens are not revocable server-side,
// so this only removes the client's copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	respondMessage(c, http.StatusOK, "Logged out successfully.")
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IDNumber  string `json:"idNumber"`
	Password  string `json:"password"`
	BirthDate string `json:"birthDate"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	// A malformed date is left zero so validation reports it uniformly.
	birthDate, _ := parseDate(req.BirthDate)

	_, err := h.authSvc.Register(c.Request.Context(), validation.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		IDNumber:  req.IDNumber,
		Password:  req.Password,
		BirthDate: birthDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusCreated, "User registered successfully.")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		// Unlike the user routes, an unknown email here answers 400.
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusBadRequest, "User not found.")
			return
		}
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Reset code sent to your email.")
}

type verifyTokenRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req verifyTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.VerifyResetToken(c.Request.Context(), req.Email, req.Token); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Token verified.")
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.authSvc.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password has been reset successfully.")
}

// AuthCheck reports the authenticated user's role for client-side routing.
func (h *AuthHandler) AuthCheck(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Authenticated",
		"userType": user.Role,
		"idNumber": user.IDNumber,
	})
}

// AuthCheckAdmin only runs behind the admin middleware, so reaching it
// already proves the role.
func (h *AuthHandler) AuthCheckAdmin(c *gin.Context) {
	respondMessage(c, http.StatusOK, "Authenticated")
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwtCfg.CookieName, token, maxAge, "/", "", h.secure, true)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
