package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/domain/appointment"
	"github.com/carebridge/carebridge-api/internal/domain/consultation"
	"github.com/carebridge/carebridge-api/internal/domain/report"
	"github.com/carebridge/carebridge-api/pkg/metrics"
)

// PrescriptionService owns the consultation save pipeline: validate the form,
// write consultation + prescription + items atomically, lock the reports the
// doctor had selected, and best-effort create a follow-up appointment.
type PrescriptionService struct {
	repo            consultation.Repository
	reportRepo      report.Repository
	appointmentRepo appointment.Repository
	auditSvc        *AuditService
	metrics         *metrics.Collector
	log             *zap.Logger

	// Guards against double-submit: one save at a time per (doctor, patient).
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewPrescriptionService(repo consultation.Repository, reportRepo report.Repository, appointmentRepo appointment.Repository, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *PrescriptionService {
	return &PrescriptionService{
		repo:            repo,
		reportRepo:      reportRepo,
		appointmentRepo: appointmentRepo,
		auditSvc:        auditSvc,
		metrics:         collector,
		log:             log,
		inFlight:        make(map[string]struct{}),
	}
}

// Save runs the full pipeline. Validation happens before any write, so a
// rejected form leaves no partial rows behind; the transactional write means
// a mid-pipeline failure leaves none either.
func (s *PrescriptionService) Save(ctx context.Context, cmd *consultation.SaveCommand, callerID uuid.UUID, callerRole string, ip string) (*consultation.Consultation, error) {
	if callerRole != "doctor" && callerRole != "admin" {
		return nil, ErrForbidden
	}

	if err := s.acquire(cmd.DoctorID, cmd.PatientID); err != nil {
		return nil, err
	}
	defer s.release(cmd.DoctorID, cmd.PatientID)

	if strings.TrimSpace(cmd.ChiefComplaint) == "" {
		return nil, consultation.ErrChiefComplaintEmpty
	}
	if strings.TrimSpace(cmd.Diagnosis) == "" {
		return nil, consultation.ErrDiagnosisEmpty
	}

	items := buildItems(cmd.Medications)
	if len(items) == 0 {
		return nil, consultation.ErrNoValidMedication
	}

	ctype := cmd.Type
	if ctype == "" {
		ctype = consultation.TypeInPerson
	}

	c := &consultation.Consultation{
		PatientID:              cmd.PatientID,
		DoctorID:               cmd.DoctorID,
		ChiefComplaint:         strings.TrimSpace(cmd.ChiefComplaint),
		Diagnosis:              strings.TrimSpace(cmd.Diagnosis),
		ClinicalNotes:          cmd.ClinicalNotes,
		FollowUpDate:           cmd.FollowUpDate,
		AdditionalInstructions: cmd.AdditionalInstructions,
		Status:                 consultation.StatusActive,
		Type:                   ctype,
	}
	p := &consultation.Prescription{
		PatientID: cmd.PatientID,
		DoctorID:  cmd.DoctorID,
		Status:    consultation.PrescriptionActive,
	}

	if err := s.repo.SaveVisit(ctx, c, p, items); err != nil {
		s.log.Error("consultation save failed",
			zap.String("patient_id", cmd.PatientID.String()),
			zap.String("doctor_id", cmd.DoctorID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("saving consultation: %w", err)
	}

	s.metrics.PrescriptionsSaved.Inc()

	// Locking runs after the committed save: a crash between the two leaves
	// reports unlocked but never leaves a lock pointing at a missing
	// consultation.
	if len(cmd.SelectedReportIDs) > 0 {
		if err := s.reportRepo.Lock(ctx, cmd.SelectedReportIDs, &c.ID); err != nil {
			s.log.Error("failed to lock selected reports after save",
				zap.String("consultation_id", c.ID.String()),
				zap.Error(err),
			)
		} else {
			s.metrics.ReportsLockedTotal.Add(float64(len(cmd.SelectedReportIDs)))
		}
	}

	// Follow-up creation is best-effort and never blocks the save result.
	if cmd.FollowUpDate != nil {
		s.createFollowUp(ctx, c, callerID)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "consultation",
		ResourceID:   c.ID.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"prescription_id":%q,"medication_count":%d}`, p.ID, len(items)),
	})

	s.log.Info("consultation saved",
		zap.String("consultation_id", c.ID.String()),
		zap.String("prescription_id", p.ID.String()),
		zap.Int("medications", len(items)),
		zap.Int("reports_locked", len(cmd.SelectedReportIDs)),
	)

	return c, nil
}

func (s *PrescriptionService) GetConsultation(ctx context.Context, id uuid.UUID, callerRole string, callerPatientID *uuid.UUID) (*consultation.Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != c.PatientID {
			return nil, ErrForbidden
		}
	}

	return c, nil
}

func (s *PrescriptionService) ListConsultations(ctx context.Context, patientID uuid.UUID, limit int, callerRole string, callerPatientID *uuid.UUID) ([]*consultation.Consultation, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != patientID {
			return nil, ErrForbidden
		}
	}

	return s.repo.ListByPatient(ctx, patientID, limit)
}

func (s *PrescriptionService) acquire(doctorID, patientID uuid.UUID) error {
	key := doctorID.String() + ":" + patientID.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return consultation.ErrSaveInProgress
	}
	s.inFlight[key] = struct{}{}
	return nil
}

func (s *PrescriptionService) release(doctorID, patientID uuid.UUID) {
	key := doctorID.String() + ":" + patientID.String()
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func (s *PrescriptionService) createFollowUp(ctx context.Context, c *consultation.Consultation, callerID uuid.UUID) {
	a := &appointment.Appointment{
		PatientID:            c.PatientID,
		DoctorID:             c.DoctorID,
		ScheduledAt:          *c.FollowUpDate,
		Type:                 appointment.TypeFollowUp,
		Status:               appointment.StatusScheduled,
		Reason:               "Follow-up for: " + c.Diagnosis,
		SourceConsultationID: &c.ID,
		CreatedBy:            callerID,
	}

	if err := s.appointmentRepo.Create(ctx, a); err != nil {
		s.log.Warn("failed to create follow-up appointment",
			zap.String("consultation_id", c.ID.String()),
			zap.Time("follow_up_date", *c.FollowUpDate),
			zap.Error(err),
		)
	}
}

// buildItems drops incomplete medication rows and assigns item_order from the
// surviving rows' original positions.
func buildItems(rows []consultation.MedicationRow) []consultation.PrescriptionItem {
	items := make([]consultation.PrescriptionItem, 0, len(rows))
	for i, row := range rows {
		if !row.IsComplete() {
			continue
		}
		route := row.Route
		if route == "" {
			route = consultation.RouteOral
		}
		items = append(items, consultation.PrescriptionItem{
			MedicineName: strings.TrimSpace(row.MedicineName),
			Dosage:       strings.TrimSpace(row.Dosage),
			Frequency:    strings.TrimSpace(row.Frequency),
			Duration:     strings.TrimSpace(row.Duration),
			Instructions: row.Instructions,
			Route:        route,
			ItemOrder:    i,
		})
	}
	return items
}
