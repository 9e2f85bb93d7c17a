package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/domain"
	"github.com/carebridge/carebridge-api/internal/domain/appointment"
	"github.com/carebridge/carebridge-api/internal/domain/consultation"
	"github.com/carebridge/carebridge-api/internal/domain/patient"
	"github.com/carebridge/carebridge-api/internal/domain/report"
	"github.com/carebridge/carebridge-api/internal/domain/vitals"
	"github.com/carebridge/carebridge-api/pkg/cache"
	"github.com/carebridge/carebridge-api/pkg/metrics"
)

// Prometheus collectors register globally, so all tests in this package share
// one instance.
var testCollector = metrics.NewCollector("carebridge_service_test")

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func newTestAuditService() *AuditService {
	return NewAuditService(&fakeAuditRepo{}, testCollector, zap.NewNop())
}

type fakeReportRepo struct {
	reports map[uuid.UUID]*report.PatientReport

	createCalls       int
	listCalls         int
	softDeleteCalls   int
	markReviewedCalls int
	lockCalls         int

	lastLockedIDs        []uuid.UUID
	lastConsultationID   *uuid.UUID
	lastReviewedIDs      []uuid.UUID
	failCreate           error
	failList             error
	failLock             error
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[uuid.UUID]*report.PatientReport)}
}

func (f *fakeReportRepo) add(r *report.PatientReport) *report.PatientReport {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.reports[r.ID] = r
	return r
}

func (f *fakeReportRepo) Create(ctx context.Context, r *report.PatientReport) error {
	f.createCalls++
	if f.failCreate != nil {
		return f.failCreate
	}
	f.add(r)
	return nil
}

func (f *fakeReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*report.PatientReport, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	return r, nil
}

func (f *fakeReportRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*report.PatientReport, error) {
	var out []*report.PatientReport
	for _, id := range ids {
		if r, ok := f.reports[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) ListUnlockedByPatient(ctx context.Context, patientID uuid.UUID) ([]*report.PatientReport, error) {
	f.listCalls++
	if f.failList != nil {
		return nil, f.failList
	}
	var out []*report.PatientReport
	for _, r := range f.reports {
		if r.PatientID == patientID && !r.IsDeleted && !r.IsLocked() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) SoftDelete(ctx context.Context, id uuid.UUID, cmd *report.SoftDeleteCommand) error {
	f.softDeleteCalls++
	r, ok := f.reports[id]
	if !ok {
		return report.ErrReportNotFound
	}
	if r.IsLocked() {
		return report.ErrReportLocked
	}
	now := time.Now()
	r.IsDeleted = true
	r.DeletedReason = cmd.Reason
	r.DeletedBy = &cmd.DeletedBy
	r.DeletedByRole = cmd.DeletedByRole
	r.DeletedAt = &now
	return nil
}

func (f *fakeReportRepo) MarkReviewed(ctx context.Context, ids []uuid.UUID, reviewerID uuid.UUID, at time.Time) error {
	f.markReviewedCalls++
	f.lastReviewedIDs = ids
	for _, id := range ids {
		if r, ok := f.reports[id]; ok {
			r.ReviewedAt = &at
			r.ReviewedBy = &reviewerID
		}
	}
	return nil
}

func (f *fakeReportRepo) Lock(ctx context.Context, ids []uuid.UUID, consultationID *uuid.UUID) error {
	f.lockCalls++
	if f.failLock != nil {
		return f.failLock
	}
	f.lastLockedIDs = ids
	f.lastConsultationID = consultationID
	locked := true
	for _, id := range ids {
		if r, ok := f.reports[id]; ok {
			r.Locked = &locked
			r.LinkedConsultationID = consultationID
		}
	}
	return nil
}

type fakeStore struct {
	uploadCalls  int
	presignCalls int
	failUpload   error
	failPresign  map[string]bool
	uploadedKeys []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{failPresign: make(map[string]bool)}
}

func (f *fakeStore) UploadReport(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	f.uploadCalls++
	if f.failUpload != nil {
		return f.failUpload
	}
	f.uploadedKeys = append(f.uploadedKeys, key)
	return nil
}

func (f *fakeStore) PresignReport(ctx context.Context, key string) (string, error) {
	f.presignCalls++
	if f.failPresign[key] {
		return "", errors.New("presign unavailable")
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeStore) UploadDocument(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	return f.UploadReport(ctx, key, contentType, body, size)
}

func (f *fakeStore) PresignDocument(ctx context.Context, key string) (string, error) {
	return f.PresignReport(ctx, key)
}

type fakeConsultationRepo struct {
	saveCalls int
	failSave  error

	savedConsultation *consultation.Consultation
	savedPrescription *consultation.Prescription
	savedItems        []consultation.PrescriptionItem
}

func (f *fakeConsultationRepo) SaveVisit(ctx context.Context, c *consultation.Consultation, p *consultation.Prescription, items []consultation.PrescriptionItem) error {
	f.saveCalls++
	if f.failSave != nil {
		return f.failSave
	}
	c.ID = uuid.New()
	p.ID = uuid.New()
	p.ConsultationID = c.ID
	for i := range items {
		items[i].ID = uuid.New()
		items[i].PrescriptionID = p.ID
	}
	f.savedConsultation = c
	f.savedPrescription = p
	f.savedItems = items
	return nil
}

func (f *fakeConsultationRepo) GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	if f.savedConsultation != nil && f.savedConsultation.ID == id {
		return f.savedConsultation, nil
	}
	return nil, consultation.ErrConsultationNotFound
}

func (f *fakeConsultationRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*consultation.Consultation, error) {
	if f.savedConsultation != nil && f.savedConsultation.PatientID == patientID {
		return []*consultation.Consultation{f.savedConsultation}, nil
	}
	return nil, nil
}

type fakeAppointmentRepo struct {
	createCalls int
	failCreate  error
	created     []*appointment.Appointment
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	f.createCalls++
	if f.failCreate != nil {
		return f.failCreate
	}
	a.ID = uuid.New()
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	for _, a := range f.created {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	return nil
}

func (f *fakeAppointmentRepo) ListUpcoming(ctx context.Context, patientID uuid.UUID, from time.Time) ([]*appointment.Appointment, error) {
	return f.created, nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*patient.Patient

	createCalls int
	updateCalls int
	failUpdate  error

	lastUpdate *patient.UpdateProfileCommand
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (f *fakePatientRepo) add(p *patient.Patient) *patient.Patient {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.patients[p.ID] = p
	return p
}

func (f *fakePatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	f.createCalls++
	f.add(p)
	return nil
}

func (f *fakePatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

func (f *fakePatientRepo) UpdateProfile(ctx context.Context, id uuid.UUID, cmd *patient.UpdateProfileCommand) (*patient.Patient, error) {
	f.updateCalls++
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	p, ok := f.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	f.lastUpdate = cmd
	if cmd.ProfileImagePath != nil {
		p.ProfileImagePath = *cmd.ProfileImagePath
	}
	return p, nil
}

type fakeVitalsRepo struct {
	latest *vitals.PatientVitals
}

func (f *fakeVitalsRepo) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*vitals.PatientVitals, error) {
	if f.latest == nil || f.latest.PatientID != patientID {
		return nil, vitals.ErrVitalsNotFound
	}
	return f.latest, nil
}

type fakeCache struct {
	mu          sync.Mutex
	data        map[string]string
	getCalls    int
	setCalls    int
	deleteCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	v, ok := f.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	f.data[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}
