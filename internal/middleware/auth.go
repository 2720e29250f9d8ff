package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/pkg/auth"
)

// ContextUserKey holds the resolved *domain.User for downstream handlers.
const ContextUserKey = "currentUser"

// UserResolver is the live lookup backing every authenticated request: a
// token is only as good as the account row behind it.
type UserResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Authenticate validates the session cookie, resolves the user and attaches
// it to the request context. Disabled accounts are rejected here too, so a
// still-valid token dies with the account rather than at its natural expiry.
func Authenticate(jwtManager *auth.JWTManager, users UserResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveSession(c, jwtManager, users, cookieName)
		if !ok {
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// AuthenticateAdmin layers the admin gate on top of Authenticate. The role
// mismatch answers 404 rather than 403 so probing non-admins cannot confirm
// that an admin surface exists at the path.
func AuthenticateAdmin(jwtManager *auth.JWTManager, users UserResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveSession(c, jwtManager, users, cookieName)
		if !ok {
			return
		}
		if user.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Access denied."})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func resolveSession(c *gin.Context, jwtManager *auth.JWTManager, users UserResolver, cookieName string) (*domain.User, bool) {
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied. No token provided."})
		return nil, false
	}

	claims, err := jwtManager.ValidateSessionToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
		return nil, false
	}

	user, err := users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found."})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return nil, false
	}

	if !user.Active {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Your account has been disabled. Please contact support."})
		return nil, false
	}

	// Secret and lockout fields never travel past this point.
	user.PasswordHash = ""
	user.PasswordHistory = nil
	user.ResetToken = nil
	user.ResetTokenExpiry = nil

	return user, true
}

// CurrentUser retrieves the user attached by Authenticate.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
