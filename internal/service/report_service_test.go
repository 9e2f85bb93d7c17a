package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/domain/report"
)

func newTestReportService(repo *fakeReportRepo, store *fakeStore) *ReportService {
	return NewReportService(repo, store, newTestAuditService(), testCollector, zap.NewNop())
}

func TestUploadGeneratesKeyAndPersists(t *testing.T) {
	repo := newFakeReportRepo()
	store := newFakeStore()
	svc := newTestReportService(repo, store)

	patientID := uuid.New()
	cmd := &report.UploadCommand{
		PatientID:   patientID,
		ReportName:  "CBC Panel",
		ReportType:  report.TypeLabReport,
		FileName:    "cbc.pdf",
		ContentType: "application/pdf",
		FileSize:    2048,
		UploadedBy:  uuid.New(),
	}

	r, err := svc.Upload(context.Background(), cmd, strings.NewReader("pdf-bytes"), cmd.UploadedBy, "doctor", "10.0.0.1")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if store.uploadCalls != 1 {
		t.Errorf("expected 1 storage upload, got %d", store.uploadCalls)
	}
	wantPrefix := "reports/" + patientID.String() + "/"
	if !strings.HasPrefix(r.FilePath, wantPrefix) {
		t.Errorf("key %q missing prefix %q", r.FilePath, wantPrefix)
	}
	if !strings.HasSuffix(r.FilePath, ".pdf") {
		t.Errorf("key %q should keep the original extension", r.FilePath)
	}
	if repo.createCalls != 1 {
		t.Errorf("expected 1 row insert, got %d", repo.createCalls)
	}
}

func TestUploadStorageFailureSkipsInsert(t *testing.T) {
	repo := newFakeReportRepo()
	store := newFakeStore()
	store.failUpload = errors.New("bucket offline")
	svc := newTestReportService(repo, store)

	cmd := &report.UploadCommand{
		PatientID:  uuid.New(),
		ReportName: "X-Ray",
		ReportType: report.TypeImaging,
		FileName:   "chest.png",
		UploadedBy: uuid.New(),
	}

	_, err := svc.Upload(context.Background(), cmd, strings.NewReader("png"), cmd.UploadedBy, "doctor", "")
	if err == nil {
		t.Fatal("expected upload error")
	}
	if repo.createCalls != 0 {
		t.Errorf("row insert should not run after storage failure, got %d calls", repo.createCalls)
	}
}

func TestUploadRejectsInvalidType(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), newFakeStore())

	cmd := &report.UploadCommand{
		PatientID:  uuid.New(),
		ReportName: "Mystery",
		ReportType: report.ReportType("selfie"),
		UploadedBy: uuid.New(),
	}

	_, err := svc.Upload(context.Background(), cmd, strings.NewReader("x"), cmd.UploadedBy, "doctor", "")
	if !errors.Is(err, report.ErrInvalidReportType) {
		t.Fatalf("expected ErrInvalidReportType, got %v", err)
	}
}

func TestSoftDeleteRequiresReason(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeStore())

	cmd := &report.SoftDeleteCommand{Reason: "   ", DeletedBy: uuid.New(), DeletedByRole: "doctor"}
	err := svc.SoftDelete(context.Background(), uuid.New(), cmd, "")
	if !errors.Is(err, report.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if repo.softDeleteCalls != 0 {
		t.Errorf("repository should not be touched without a reason, got %d calls", repo.softDeleteCalls)
	}
}

func TestSoftDeleteLockedReport(t *testing.T) {
	repo := newFakeReportRepo()
	locked := true
	r := repo.add(&report.PatientReport{PatientID: uuid.New(), Locked: &locked})
	svc := newTestReportService(repo, newFakeStore())

	cmd := &report.SoftDeleteCommand{Reason: "duplicate upload", DeletedBy: uuid.New(), DeletedByRole: "doctor"}
	err := svc.SoftDelete(context.Background(), r.ID, cmd, "")
	if !errors.Is(err, report.ErrReportLocked) {
		t.Fatalf("expected ErrReportLocked, got %v", err)
	}
}

func TestMarkReviewedEmptyIsQueryFree(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeStore())

	if err := svc.MarkReviewed(context.Background(), nil, uuid.New(), "doctor", ""); err != nil {
		t.Fatalf("MarkReviewed: %v", err)
	}
	if repo.markReviewedCalls != 0 {
		t.Errorf("empty id set should not reach the repository, got %d calls", repo.markReviewedCalls)
	}
}

func TestLockEmptyIsQueryFree(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeStore())

	if err := svc.Lock(context.Background(), nil, nil, uuid.New(), "doctor", ""); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if repo.lockCalls != 0 {
		t.Errorf("empty id set should not reach the repository, got %d calls", repo.lockCalls)
	}
}

func TestListActiveWorklistFilters(t *testing.T) {
	repo := newFakeReportRepo()
	patientID := uuid.New()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	fresh := repo.add(&report.PatientReport{
		PatientID: patientID, ReportType: report.TypeLabReport,
		FilePath: "reports/fresh.pdf", UploadDate: now.Add(-24 * time.Hour),
	})
	repo.add(&report.PatientReport{
		PatientID: patientID, ReportType: report.TypeLabReport,
		FilePath: "reports/stale.pdf", UploadDate: now.Add(-200 * 24 * time.Hour),
	})
	reviewedAt := now.Add(-time.Hour)
	repo.add(&report.PatientReport{
		PatientID: patientID, ReportType: report.TypeLabReport,
		FilePath: "reports/seen.pdf", UploadDate: now.Add(-24 * time.Hour), ReviewedAt: &reviewedAt,
	})
	repo.add(&report.PatientReport{
		PatientID: patientID, ReportType: report.TypeLabReport,
		FilePath: "reports/gone.pdf", UploadDate: now.Add(-24 * time.Hour), IsDeleted: true,
	})

	svc := newTestReportService(repo, newFakeStore())
	svc.now = func() time.Time { return now }

	views, err := svc.ListActiveWorklist(context.Background(), patientID, "doctor")
	if err != nil {
		t.Fatalf("ListActiveWorklist: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 active report, got %d", len(views))
	}
	if views[0].ID != fresh.ID {
		t.Errorf("wrong report survived the filter")
	}
	if !views[0].File.Resolved || views[0].File.URL == "" {
		t.Errorf("expected resolved file ref, got %+v", views[0].File)
	}
}

func TestListReportsPresignFailureDegrades(t *testing.T) {
	repo := newFakeReportRepo()
	patientID := uuid.New()
	r := repo.add(&report.PatientReport{
		PatientID: patientID, ReportType: report.TypeGeneral,
		FilePath: "reports/broken.pdf", UploadDate: time.Now(),
	})

	store := newFakeStore()
	store.failPresign[r.FilePath] = true
	svc := newTestReportService(repo, store)

	views, err := svc.ListReports(context.Background(), patientID, "doctor", nil)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if views[0].File.Resolved {
		t.Error("expected unresolved file ref after presign failure")
	}
	if views[0].File.Path != r.FilePath {
		t.Errorf("unresolved ref should keep the raw path, got %q", views[0].File.Path)
	}
}

func TestListReportsPatientScoping(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, newFakeStore())

	mine := uuid.New()
	other := uuid.New()

	if _, err := svc.ListReports(context.Background(), other, "patient", &mine); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for cross-patient read, got %v", err)
	}
	if _, err := svc.ListReports(context.Background(), mine, "patient", &mine); err != nil {
		t.Fatalf("own reports should be readable: %v", err)
	}
}

func TestWorklistRequiresClinicalRole(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), newFakeStore())
	if _, err := svc.ListActiveWorklist(context.Background(), uuid.New(), "patient"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
