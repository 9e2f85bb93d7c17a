package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/domain/appointment"
	"github.com/carebridge/carebridge-api/internal/domain/patient"
)

type AppointmentService struct {
	repo        appointment.Repository
	patientRepo patient.Repository
	auditSvc    *AuditService
	log         *zap.Logger
}

func NewAppointmentService(repo appointment.Repository, patientRepo patient.Repository, auditSvc *AuditService, log *zap.Logger) *AppointmentService {
	return &AppointmentService{repo: repo, patientRepo: patientRepo, auditSvc: auditSvc, log: log}
}

func (s *AppointmentService) Schedule(ctx context.Context, cmd *appointment.CreateAppointmentCommand, callerID uuid.UUID, callerRole string, ip string) (*appointment.Appointment, error) {
	if cmd.ScheduledAt.Before(time.Now()) {
		return nil, appointment.ErrScheduledInPast
	}
	if !cmd.Type.IsValid() {
		return nil, appointment.ErrInvalidAppointmentType
	}

	if _, err := s.patientRepo.GetByID(ctx, cmd.PatientID); err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}

	a := &appointment.Appointment{
		PatientID:            cmd.PatientID,
		DoctorID:             cmd.DoctorID,
		ScheduledAt:          cmd.ScheduledAt,
		Type:                 cmd.Type,
		Status:               appointment.StatusScheduled,
		Reason:               cmd.Reason,
		Notes:                cmd.Notes,
		SourceConsultationID: cmd.SourceConsultationID,
		CreatedBy:            cmd.CreatedBy,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	return a, nil
}

func (s *AppointmentService) GetAppointment(ctx context.Context, id uuid.UUID, callerRole string, callerPatientID *uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != a.PatientID {
			return nil, ErrForbidden
		}
	}

	return a, nil
}

func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, reason string, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != a.PatientID {
			return nil, ErrForbidden
		}
	}

	if err := a.Cancel(reason); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "update", ResourceType: "appointment", ResourceID: id.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"status":"cancelled","reason":%q}`, reason),
	})

	return a, nil
}

// ListUpcoming returns a patient's future appointments. Patients can only
// see their own.
func (s *AppointmentService) ListUpcoming(ctx context.Context, patientID uuid.UUID, callerRole string, callerPatientID *uuid.UUID) ([]*appointment.Appointment, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != patientID {
			return nil, ErrForbidden
		}
	}

	return s.repo.ListUpcoming(ctx, patientID, time.Now())
}
