package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/medichain/medichain/internal/config"
	v1 "github.com/medichain/medichain/internal/handler/v1"
	"github.com/medichain/medichain/internal/ledger"
	"github.com/medichain/medichain/internal/mailer"
	"github.com/medichain/medichain/internal/repository"
	"github.com/medichain/medichain/internal/router"
	"github.com/medichain/medichain/internal/service"
	"github.com/medichain/medichain/pkg/auth"
	"github.com/medichain/medichain/pkg/database"
	"github.com/medichain/medichain/pkg/logger"
	"github.com/medichain/medichain/pkg/metrics"
	"github.com/medichain/medichain/pkg/tracer"
)

func main() {
	// Missing .env is fine; real deployments inject environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("loading config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("initializing logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector("medichain")
	if sqlDB, err := db.DB(); err == nil {
		collector.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
	}

	jwtManager := auth.NewJWTManager(cfg.JWT)
	mail := mailer.New(cfg.SMTP, log)
	ledgerClient := ledger.NewHTTPClient(cfg.Ledger, log)

	userRepo := repository.NewUserRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	supportRepo := repository.NewSupportRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, collector, log)
	defer auditSvc.Shutdown()

	authSvc := service.NewAuthService(userRepo, jwtManager, mail, auditSvc, collector, log)
	userSvc := service.NewUserService(userRepo, auditSvc, log)
	apptSvc := service.NewAppointmentService(apptRepo, userRepo, auditSvc, log)
	supportSvc := service.NewSupportService(supportRepo, auditSvc, log)
	contractSvc := service.NewContractService(ledgerClient, userRepo, auditSvc, log)

	engine := router.New(router.Deps{
		Config:     cfg,
		Log:        log,
		Metrics:    collector,
		JWTManager: jwtManager,
		Users:      userRepo,

		AuthHandler:        v1.NewAuthHandler(authSvc, cfg),
		UserHandler:        v1.NewUserHandler(userSvc),
		AppointmentHandler: v1.NewAppointmentHandler(apptSvc),
		SupportHandler:     v1.NewSupportHandler(supportSvc),
		ContractHandler:    v1.NewContractHandler(contractSvc),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
