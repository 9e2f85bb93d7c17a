package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebridge/carebridge-api/internal/domain/appointment"
	"github.com/carebridge/carebridge-api/internal/service"
)

type AppointmentHandler struct {
	appointmentSvc *service.AppointmentService
}

func NewAppointmentHandler(appointmentSvc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentSvc: appointmentSvc}
}

type scheduleRequest struct {
	PatientID   uuid.UUID                   `json:"patient_id" binding:"required"`
	DoctorID    uuid.UUID                   `json:"doctor_id" binding:"required"`
	ScheduledAt time.Time                   `json:"scheduled_at" binding:"required"`
	Type        appointment.AppointmentType `json:"type" binding:"required"`
	Reason      string                      `json:"reason"`
	Notes       string                      `json:"notes"`
}

func (h *AppointmentHandler) Schedule(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req scheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.CreateAppointmentCommand{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: req.ScheduledAt,
		Type:        req.Type,
		Reason:      req.Reason,
		Notes:       req.Notes,
		CreatedBy:   claims.UserID,
	}

	a, err := h.appointmentSvc.Schedule(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, a)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.appointmentSvc.GetAppointment(c.Request.Context(), id, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, a)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req cancelRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.appointmentSvc.Cancel(c.Request.Context(), id, req.Reason, claims.UserID, string(claims.Role), claims.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, a)
}

func (h *AppointmentHandler) ListUpcoming(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	list, err := h.appointmentSvc.ListUpcoming(c.Request.Context(), patientID, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, list)
}
