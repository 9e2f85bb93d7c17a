package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/config"
	"github.com/carebridge/carebridge-api/internal/domain"
	"github.com/carebridge/carebridge-api/internal/service"
	"github.com/carebridge/carebridge-api/pkg/auth"
	"github.com/carebridge/carebridge-api/pkg/metrics"
)

type RouterDeps struct {
	Config     *config.Config
	JWTManager *auth.JWTManager
	Metrics    *metrics.Collector
	Logger     *zap.Logger

	AuthSvc         *service.AuthService
	PatientSvc      *service.PatientService
	ReportSvc       *service.ReportService
	PrescriptionSvc *service.PrescriptionService
	SummarySvc      *service.SummaryService
	AppointmentSvc  *service.AppointmentService
}

// NewRouter wires the full v1 API surface.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(CORS(deps.Config.CORS))
	r.Use(Observe(deps.Metrics))
	r.Use(AccessLog(deps.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": deps.Config.App.Version})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	authH := NewAuthHandler(deps.AuthSvc)
	patientH := NewPatientHandler(deps.PatientSvc)
	reportH := NewReportHandler(deps.ReportSvc)
	prescriptionH := NewPrescriptionHandler(deps.PrescriptionSvc)
	summaryH := NewSummaryHandler(deps.SummarySvc)
	appointmentH := NewAppointmentHandler(deps.AppointmentSvc)

	api := r.Group("/api/v1")

	api.POST("/auth/login", authH.Login)
	api.POST("/auth/refresh", authH.Refresh)

	authed := api.Group("")
	authed.Use(Authenticate(deps.JWTManager))

	authed.POST("/auth/change-password", authH.ChangePassword)
	authed.POST("/auth/register", RequireRoles(domain.RoleAdmin), authH.Register)

	patients := authed.Group("/patients")
	{
		patients.POST("", RequireRoles(domain.RoleAdmin, domain.RoleDoctor), patientH.Register)
		patients.GET("/:id", patientH.Get)
		patients.PATCH("/:id", patientH.UpdateProfile)
		patients.POST("/:id/profile-image", patientH.UploadProfileImage)
		patients.GET("/:id/vitals/latest", patientH.LatestVitals)

		patients.GET("/:id/reports", reportH.List)
		patients.GET("/:id/reports/worklist", RequireRoles(domain.RoleAdmin, domain.RoleDoctor), reportH.Worklist)
		patients.POST("/:id/reports", reportH.Upload)

		patients.GET("/:id/consultations", prescriptionH.ListConsultations)
		patients.GET("/:id/appointments", appointmentH.ListUpcoming)
	}

	reports := authed.Group("/reports")
	{
		reports.DELETE("/:id", reportH.SoftDelete)
		reports.POST("/mark-reviewed", RequireRoles(domain.RoleAdmin, domain.RoleDoctor), reportH.MarkReviewed)
		reports.POST("/lock", RequireRoles(domain.RoleAdmin, domain.RoleDoctor), reportH.Lock)
	}

	prescriptions := authed.Group("/prescriptions")
	prescriptions.Use(RequireRoles(domain.RoleAdmin, domain.RoleDoctor))
	{
		prescriptions.POST("", prescriptionH.Save)
	}

	authed.GET("/consultations/:id", prescriptionH.GetConsultation)

	summaries := authed.Group("/summaries")
	summaries.Use(RequireRoles(domain.RoleAdmin, domain.RoleDoctor))
	{
		summaries.POST("", summaryH.Summarize)
		summaries.POST("/invalidate", summaryH.Invalidate)
	}

	appointments := authed.Group("/appointments")
	{
		appointments.POST("", RequireRoles(domain.RoleAdmin, domain.RoleDoctor), appointmentH.Schedule)
		appointments.GET("/:id", appointmentH.Get)
		appointments.POST("/:id/cancel", appointmentH.Cancel)
	}

	return r
}
