package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medichain/medichain/internal/config"
	v1 "github.com/medichain/medichain/internal/handler/v1"
	"github.com/medichain/medichain/internal/middleware"
	"github.com/medichain/medichain/pkg/auth"
	"github.com/medichain/medichain/pkg/metrics"
)

// Deps carries everything the HTTP surface needs. Handlers are constructed
// by the caller so the router stays pure wiring.
type Deps struct {
	Config     *config.Config
	Log        *zap.Logger
	Metrics    *metrics.Collector
	JWTManager *auth.JWTManager
	Users      middleware.UserResolver

	AuthHandler        *v1.AuthHandler
	UserHandler        *v1.UserHandler
	AppointmentHandler *v1.AppointmentHandler
	SupportHandler     *v1.SupportHandler
	ContractHandler    *v1.ContractHandler
}

func New(d Deps) *gin.Engine {
	if d.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	cookieName := d.Config.JWT.CookieName
	authed := middleware.Authenticate(d.JWTManager, d.Users, cookieName)
	adminOnly := middleware.AuthenticateAdmin(d.JWTManager, d.Users, cookieName)
	loginLimiter := middleware.NewLoginRateLimiter(d.Config.RateLimit, d.Metrics)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", loginLimiter.Handler(), d.AuthHandler.Login)
			authGroup.POST("/logout", d.AuthHandler.Logout)
			authGroup.POST("/register", d.AuthHandler.Register)
			authGroup.POST("/forgot-password", d.AuthHandler.ForgotPassword)
			authGroup.POST("/verify-token", d.AuthHandler.VerifyToken)
			authGroup.POST("/reset-password", d.AuthHandler.ResetPassword)
			authGroup.GET("/auth-check", authed, d.AuthHandler.AuthCheck)
			authGroup.GET("/auth-check-admin", adminOnly, d.AuthHandler.AuthCheckAdmin)
		}

		users := api.Group("/users")
		{
			users.GET("/name/:idNumber", authed, d.UserHandler.GetName)

			users.GET("", adminOnly, d.UserHandler.List)
			users.POST("", adminOnly, d.UserHandler.Create)
			users.PUT("/:id", adminOnly, d.UserHandler.Update)
			users.DELETE("/:id", adminOnly, d.UserHandler.Delete)
			users.PATCH("/:id/active", adminOnly, d.UserHandler.SetActive)
		}

		appointments := api.Group("/appointments", authed)
		{
			appointments.POST("", d.AppointmentHandler.Create)
			appointments.GET("/doctor/:idNumber", d.AppointmentHandler.ListByDoctor)
			appointments.GET("/patient/:idNumber", d.AppointmentHandler.ListByPatient)
			appointments.PUT("/:id/cancel", d.AppointmentHandler.Cancel)
			appointments.PATCH("/:id/canceled", d.AppointmentHandler.ToggleCanceled)
		}

		supportGroup := api.Group("/support")
		{
			supportGroup.POST("", authed, d.SupportHandler.Submit)
			supportGroup.GET("", adminOnly, d.SupportHandler.List)
			supportGroup.PUT("/:id/complete", adminOnly, d.SupportHandler.Complete)
		}

		contracts := api.Group("/contracts", authed)
		{
			contracts.POST("", d.ContractHandler.Create)
			contracts.PUT("/:id", d.ContractHandler.Update)
			contracts.POST("/:id/approve", d.ContractHandler.Approve)
			contracts.GET("/patient/:id", d.ContractHandler.ListByPatient)
			contracts.GET("/doctor/:id", d.ContractHandler.ListByDoctor)
			contracts.DELETE("/:id", d.ContractHandler.Delete)
			contracts.POST("/:id/restore", d.ContractHandler.Restore)
			contracts.GET("", adminOnly, d.ContractHandler.ListAll)
		}
	}

	return r
}
