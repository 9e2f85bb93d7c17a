package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/config"
	v1 "github.com/carebridge/carebridge-api/internal/handler/v1"
	"github.com/carebridge/carebridge-api/internal/repository"
	"github.com/carebridge/carebridge-api/internal/service"
	"github.com/carebridge/carebridge-api/pkg/auth"
	"github.com/carebridge/carebridge-api/pkg/cache"
	"github.com/carebridge/carebridge-api/pkg/database"
	"github.com/carebridge/carebridge-api/pkg/logger"
	"github.com/carebridge/carebridge-api/pkg/metrics"
	"github.com/carebridge/carebridge-api/pkg/storage"
	"github.com/carebridge/carebridge-api/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if cfg.Tracing.Enabled {
		tp, err := tracer.Init(cfg.Tracing)
		if err != nil {
			log.Fatal("tracer init failed", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	redisCache, err := cache.New(cfg.Redis)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisCache.Close()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal("storage client init failed", zap.Error(err))
	}

	collector := metrics.NewCollector("carebridge")
	jwtManager := auth.NewJWTManager(cfg.JWT)

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	vitalsRepo := repository.NewVitalsRepository(db)
	reportRepo := repository.NewReportRepository(db)
	consultationRepo := repository.NewConsultationRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	auditSvc := service.NewAuditService(auditRepo, collector, log)
	defer auditSvc.Shutdown()

	webhookClient := &http.Client{
		Timeout: cfg.AISummary.RequestTimeout,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	deps := v1.RouterDeps{
		Config:     cfg,
		JWTManager: jwtManager,
		Metrics:    collector,
		Logger:     log,

		AuthSvc:         service.NewAuthService(userRepo, jwtManager, log),
		PatientSvc:      service.NewPatientService(patientRepo, vitalsRepo, store, auditSvc, collector, log),
		ReportSvc:       service.NewReportService(reportRepo, store, auditSvc, collector, log),
		PrescriptionSvc: service.NewPrescriptionService(consultationRepo, reportRepo, appointmentRepo, auditSvc, collector, log),
		SummarySvc:      service.NewSummaryService(reportRepo, store, redisCache, webhookClient, cfg.AISummary, auditSvc, collector, log),
		AppointmentSvc:  service.NewAppointmentService(appointmentRepo, patientRepo, auditSvc, log),
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      v1.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("stopped")
}
