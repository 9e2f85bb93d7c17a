package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/domain/patient"
	"github.com/carebridge/carebridge-api/internal/domain/report"
	"github.com/carebridge/carebridge-api/internal/domain/vitals"
	"github.com/carebridge/carebridge-api/pkg/metrics"
)

// DocumentStore holds profile images and identity documents, keyed separately
// from report binaries.
type DocumentStore interface {
	UploadDocument(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignDocument(ctx context.Context, key string) (string, error)
}

// PatientView is a patient record with its profile image key resolved to a
// signed URL. Resolution failures degrade to the raw key rather than failing
// the read.
type PatientView struct {
	*patient.Patient
	ProfileImage *report.FileRef `json:"profile_image,omitempty"`
}

type PatientService struct {
	repo       patient.Repository
	vitalsRepo vitals.Repository
	store      DocumentStore
	auditSvc   *AuditService
	metrics    *metrics.Collector
	log        *zap.Logger
}

func NewPatientService(repo patient.Repository, vitalsRepo vitals.Repository, store DocumentStore, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:       repo,
		vitalsRepo: vitalsRepo,
		store:      store,
		auditSvc:   auditSvc,
		metrics:    collector,
		log:        log,
	}
}

func (s *PatientService) RegisterPatient(ctx context.Context, cmd *patient.RegisterPatientCommand, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	if err := validateRegisterCommand(cmd); err != nil {
		return nil, err
	}

	p := &patient.Patient{
		FirstName:   strings.TrimSpace(cmd.FirstName),
		LastName:    strings.TrimSpace(cmd.LastName),
		DateOfBirth: cmd.DateOfBirth,
		Gender:      cmd.Gender,
		BloodType:   cmd.BloodType,
		ContactInfo: patient.ContactInfo{
			Phone:   strings.TrimSpace(cmd.Phone),
			Email:   strings.ToLower(strings.TrimSpace(cmd.Email)),
			Address: cmd.Address,
			City:    cmd.City,
			State:   cmd.State,
			ZipCode: cmd.ZipCode,
			Country: cmd.Country,
		},
		EmergencyContact:   cmd.EmergencyContact,
		MedicalHistory:     cmd.MedicalHistory,
		Allergies:          cmd.Allergies,
		CurrentMedications: cmd.CurrentMedications,
		AssignedDoctorID:   cmd.AssignedDoctorID,
		CreatedBy:          cmd.CreatedBy,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to register patient", zap.Error(err))
		return nil, fmt.Errorf("registering patient: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("patient registered",
		zap.String("patient_id", p.ID.String()),
		zap.String("created_by", callerID.String()),
	)

	return p, nil
}

// GetPatient returns the demographic record with the profile image resolved
// to a signed URL. Patients can only read their own record.
func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*PatientView, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != id {
			return nil, ErrForbidden
		}
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &PatientView{Patient: p}
	if p.ProfileImagePath != "" {
		view.ProfileImage = s.resolveDocument(ctx, p.ProfileImagePath)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "read",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return view, nil
}

func (s *PatientService) UpdateProfile(ctx context.Context, id uuid.UUID, cmd *patient.UpdateProfileCommand, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*patient.Patient, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != id {
			return nil, ErrForbidden
		}
	}

	updated, err := s.repo.UpdateProfile(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return updated, nil
}

// UploadProfileImage stores a new profile image in the document bucket and
// points the patient record at it. The previous image is left in place; the
// bucket's lifecycle policy reaps unreferenced objects.
func (s *PatientService) UploadProfileImage(ctx context.Context, id uuid.UUID, filename, contentType string, body io.Reader, size int64, callerID uuid.UUID, callerRole string, callerPatientID *uuid.UUID, ip string) (*PatientView, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != id {
			return nil, ErrForbidden
		}
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("profiles/%s/%s%s", id, uuid.New(), strings.ToLower(filepath.Ext(filename)))
	if err := s.store.UploadDocument(ctx, key, contentType, body, size); err != nil {
		s.log.Error("failed to upload profile image",
			zap.String("patient_id", id.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("uploading profile image: %w", err)
	}

	path := key
	updated, err := s.repo.UpdateProfile(ctx, id, &patient.UpdateProfileCommand{ProfileImagePath: &path})
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "patient",
		ResourceID:   id.String(),
		Changes:      "profile image replaced",
		IPAddress:    ip,
	})

	view := &PatientView{Patient: updated}
	view.ProfileImage = s.resolveDocument(ctx, key)
	return view, nil
}

// LatestVitals returns the most recent vitals snapshot for the patient.
// Returns vitals.ErrVitalsNotFound when none have been recorded.
func (s *PatientService) LatestVitals(ctx context.Context, patientID uuid.UUID, callerRole string, callerPatientID *uuid.UUID) (*vitals.PatientVitals, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != patientID {
			return nil, ErrForbidden
		}
	}

	return s.vitalsRepo.LatestByPatient(ctx, patientID)
}

func (s *PatientService) resolveDocument(ctx context.Context, key string) *report.FileRef {
	url, err := s.store.PresignDocument(ctx, key)
	if err != nil {
		s.metrics.PresignFailures.Inc()
		s.log.Warn("failed to presign document, returning raw path",
			zap.String("key", key),
			zap.Error(err),
		)
		return &report.FileRef{Path: key, Resolved: false}
	}
	return &report.FileRef{Path: key, URL: url, Resolved: true}
}

func validateRegisterCommand(cmd *patient.RegisterPatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs = append(errs, "date_of_birth is required")
	}
	if cmd.DateOfBirth.After(time.Now()) {
		errs = append(errs, "date_of_birth cannot be in the future")
	}
	if !cmd.Gender.IsValid() {
		errs = append(errs, "gender is invalid")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
