package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/domain/consultation"
)

func newTestPrescriptionService(repo *fakeConsultationRepo, reportRepo *fakeReportRepo, apptRepo *fakeAppointmentRepo) *PrescriptionService {
	return NewPrescriptionService(repo, reportRepo, apptRepo, newTestAuditService(), testCollector, zap.NewNop())
}

func validSaveCommand() *consultation.SaveCommand {
	return &consultation.SaveCommand{
		PatientID:      uuid.New(),
		DoctorID:       uuid.New(),
		ChiefComplaint: "persistent cough",
		Diagnosis:      "acute bronchitis",
		Medications: []consultation.MedicationRow{
			{MedicineName: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "7 days"},
		},
	}
}

func TestSaveEmptyChiefComplaintFailsBeforeInsert(t *testing.T) {
	repo := &fakeConsultationRepo{}
	svc := newTestPrescriptionService(repo, newFakeReportRepo(), &fakeAppointmentRepo{})

	cmd := validSaveCommand()
	cmd.ChiefComplaint = "   "

	_, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", "")
	if !errors.Is(err, consultation.ErrChiefComplaintEmpty) {
		t.Fatalf("expected ErrChiefComplaintEmpty, got %v", err)
	}
	if repo.saveCalls != 0 {
		t.Errorf("validation failure must not reach the repository, got %d calls", repo.saveCalls)
	}
}

func TestSaveEmptyDiagnosisFailsBeforeInsert(t *testing.T) {
	repo := &fakeConsultationRepo{}
	svc := newTestPrescriptionService(repo, newFakeReportRepo(), &fakeAppointmentRepo{})

	cmd := validSaveCommand()
	cmd.Diagnosis = ""

	_, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", "")
	if !errors.Is(err, consultation.ErrDiagnosisEmpty) {
		t.Fatalf("expected ErrDiagnosisEmpty, got %v", err)
	}
	if repo.saveCalls != 0 {
		t.Errorf("validation failure must not reach the repository, got %d calls", repo.saveCalls)
	}
}

func TestSaveNoValidMedicationRows(t *testing.T) {
	repo := &fakeConsultationRepo{}
	svc := newTestPrescriptionService(repo, newFakeReportRepo(), &fakeAppointmentRepo{})

	cmd := validSaveCommand()
	cmd.Medications = []consultation.MedicationRow{
		{MedicineName: "Ibuprofen"},           // missing dosage/frequency/duration
		{Dosage: "200mg", Frequency: "daily"}, // missing name/duration
	}

	_, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", "")
	if !errors.Is(err, consultation.ErrNoValidMedication) {
		t.Fatalf("expected ErrNoValidMedication, got %v", err)
	}
	if repo.saveCalls != 0 {
		t.Errorf("expected no repository call, got %d", repo.saveCalls)
	}
}

func TestSaveDropsIncompleteRowsKeepsOrder(t *testing.T) {
	repo := &fakeConsultationRepo{}
	svc := newTestPrescriptionService(repo, newFakeReportRepo(), &fakeAppointmentRepo{})

	cmd := validSaveCommand()
	cmd.Medications = []consultation.MedicationRow{
		{MedicineName: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "7 days"},
		{MedicineName: "incomplete"},
		{MedicineName: "Paracetamol", Dosage: "650mg", Frequency: "as needed", Duration: "5 days"},
	}

	if _, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(repo.savedItems) != 2 {
		t.Fatalf("expected 2 surviving items, got %d", len(repo.savedItems))
	}
	if repo.savedItems[0].ItemOrder != 0 || repo.savedItems[1].ItemOrder != 2 {
		t.Errorf("item order should reflect original positions, got %d and %d",
			repo.savedItems[0].ItemOrder, repo.savedItems[1].ItemOrder)
	}
	if repo.savedItems[0].Route != consultation.RouteOral {
		t.Errorf("blank route should default to oral, got %q", repo.savedItems[0].Route)
	}
}

func TestSaveLocksSelectedReportsWithNewConsultationID(t *testing.T) {
	repo := &fakeConsultationRepo{}
	reportRepo := newFakeReportRepo()
	svc := newTestPrescriptionService(repo, reportRepo, &fakeAppointmentRepo{})

	cmd := validSaveCommand()
	cmd.SelectedReportIDs = []uuid.UUID{uuid.New(), uuid.New()}

	saved, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if reportRepo.lockCalls != 1 {
		t.Fatalf("expected a single lock call, got %d", reportRepo.lockCalls)
	}
	if reportRepo.lastConsultationID == nil || *reportRepo.lastConsultationID != saved.ID {
		t.Errorf("lock should carry the consultation id returned by save")
	}
	if len(reportRepo.lastLockedIDs) != 2 {
		t.Errorf("expected 2 report ids locked, got %d", len(reportRepo.lastLockedIDs))
	}
}

func TestSaveNoSelectionSkipsLock(t *testing.T) {
	repo := &fakeConsultationRepo{}
	reportRepo := newFakeReportRepo()
	svc := newTestPrescriptionService(repo, reportRepo, &fakeAppointmentRepo{})

	if _, err := svc.Save(context.Background(), validSaveCommand(), uuid.New(), "doctor", ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if reportRepo.lockCalls != 0 {
		t.Errorf("no selection should mean no lock call, got %d", reportRepo.lockCalls)
	}
}

func TestSaveFailureRollsNothingForward(t *testing.T) {
	repo := &fakeConsultationRepo{failSave: errors.New("deadlock")}
	reportRepo := newFakeReportRepo()
	apptRepo := &fakeAppointmentRepo{}
	svc := newTestPrescriptionService(repo, reportRepo, apptRepo)

	cmd := validSaveCommand()
	cmd.SelectedReportIDs = []uuid.UUID{uuid.New()}
	followUp := time.Now().Add(14 * 24 * time.Hour)
	cmd.FollowUpDate = &followUp

	if _, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", ""); err == nil {
		t.Fatal("expected save error")
	}
	if reportRepo.lockCalls != 0 {
		t.Error("lock must not run after a failed save")
	}
	if apptRepo.createCalls != 0 {
		t.Error("follow-up must not be created after a failed save")
	}
}

func TestSaveFollowUpIsBestEffort(t *testing.T) {
	repo := &fakeConsultationRepo{}
	apptRepo := &fakeAppointmentRepo{failCreate: errors.New("scheduler down")}
	svc := newTestPrescriptionService(repo, newFakeReportRepo(), apptRepo)

	cmd := validSaveCommand()
	followUp := time.Now().Add(7 * 24 * time.Hour)
	cmd.FollowUpDate = &followUp

	saved, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", "")
	if err != nil {
		t.Fatalf("follow-up failure must not fail the save: %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Error("expected a persisted consultation id")
	}
	if apptRepo.createCalls != 1 {
		t.Errorf("follow-up creation should be attempted once, got %d", apptRepo.createCalls)
	}
}

func TestSaveFollowUpLinksConsultation(t *testing.T) {
	repo := &fakeConsultationRepo{}
	apptRepo := &fakeAppointmentRepo{}
	svc := newTestPrescriptionService(repo, newFakeReportRepo(), apptRepo)

	cmd := validSaveCommand()
	followUp := time.Now().Add(7 * 24 * time.Hour)
	cmd.FollowUpDate = &followUp

	saved, err := svc.Save(context.Background(), cmd, uuid.New(), "doctor", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(apptRepo.created) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(apptRepo.created))
	}
	a := apptRepo.created[0]
	if a.SourceConsultationID == nil || *a.SourceConsultationID != saved.ID {
		t.Error("follow-up should link back to the consultation")
	}
	if !a.ScheduledAt.Equal(followUp) {
		t.Errorf("follow-up scheduled at %v, want %v", a.ScheduledAt, followUp)
	}
}

func TestSaveSingleFlightPerDoctorPatient(t *testing.T) {
	svc := newTestPrescriptionService(&fakeConsultationRepo{}, newFakeReportRepo(), &fakeAppointmentRepo{})

	doctorID := uuid.New()
	patientID := uuid.New()

	if err := svc.acquire(doctorID, patientID); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := svc.acquire(doctorID, patientID); !errors.Is(err, consultation.ErrSaveInProgress) {
		t.Fatalf("expected ErrSaveInProgress for concurrent save, got %v", err)
	}
	// A different patient for the same doctor is unaffected.
	if err := svc.acquire(doctorID, uuid.New()); err != nil {
		t.Fatalf("unrelated key should acquire: %v", err)
	}

	svc.release(doctorID, patientID)
	if err := svc.acquire(doctorID, patientID); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestSaveRequiresClinicalRole(t *testing.T) {
	repo := &fakeConsultationRepo{}
	svc := newTestPrescriptionService(repo, newFakeReportRepo(), &fakeAppointmentRepo{})

	if _, err := svc.Save(context.Background(), validSaveCommand(), uuid.New(), "patient", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if repo.saveCalls != 0 {
		t.Error("forbidden save must not reach the repository")
	}
}
