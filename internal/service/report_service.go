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

	"github.com/carebridge/carebridge-api/internal/domain/report"
	"github.com/carebridge/carebridge-api/pkg/format"
	"github.com/carebridge/carebridge-api/pkg/metrics"
)

// BlobStore is the storage surface the report lifecycle needs: upload the
// binary at upload time, sign a GET URL at read time.
type BlobStore interface {
	UploadReport(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignReport(ctx context.Context, key string) (string, error)
}

// ReportView pairs a report row with its resolved file reference for API
// responses.
type ReportView struct {
	*report.PatientReport
	File            report.FileRef `json:"file"`
	FileSizeDisplay string         `json:"file_size_display"`
}

type ReportService struct {
	repo     report.Repository
	store    BlobStore
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	now func() time.Time
}

func NewReportService(repo report.Repository, store BlobStore, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *ReportService {
	return &ReportService{
		repo:     repo,
		store:    store,
		auditSvc: auditSvc,
		metrics:  collector,
		log:      log,
		now:      time.Now,
	}
}

// Upload stores the report binary first, then inserts the row. If the row
// insert fails the binary is left behind as an orphan; retention tooling
// sweeps unreferenced keys.
func (s *ReportService) Upload(ctx context.Context, cmd *report.UploadCommand, body io.Reader, callerID uuid.UUID, callerRole string, ip string) (*report.PatientReport, error) {
	if !cmd.ReportType.IsValid() {
		return nil, report.ErrInvalidReportType
	}
	if strings.TrimSpace(cmd.ReportName) == "" {
		return nil, &ValidationError{Fields: []string{"report_name is required"}}
	}

	ext := filepath.Ext(cmd.FileName)
	key := fmt.Sprintf("reports/%s/%s%s", cmd.PatientID, uuid.New(), ext)

	if err := s.store.UploadReport(ctx, key, cmd.ContentType, body, cmd.FileSize); err != nil {
		s.log.Error("report binary upload failed",
			zap.String("patient_id", cmd.PatientID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("uploading report: %w", err)
	}

	r := &report.PatientReport{
		PatientID:  cmd.PatientID,
		ReportName: strings.TrimSpace(cmd.ReportName),
		ReportType: cmd.ReportType,
		FilePath:   key,
		FileSize:   cmd.FileSize,
		FileType:   cmd.ContentType,
		UploadDate: s.now(),
		UploadedBy: cmd.UploadedBy,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.log.Error("report row insert failed after binary upload",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("recording report: %w", err)
	}

	s.metrics.ReportsUploadedTotal.WithLabelValues(string(cmd.ReportType)).Inc()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "upload",
		ResourceType: "report",
		ResourceID:   r.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("report uploaded",
		zap.String("report_id", r.ID.String()),
		zap.String("patient_id", cmd.PatientID.String()),
		zap.String("type", string(cmd.ReportType)),
	)

	return r, nil
}

// ListReports returns a patient's non-deleted, unlocked reports with signed
// URLs, newest first. Patients can only list their own.
func (s *ReportService) ListReports(ctx context.Context, patientID uuid.UUID, callerRole string, callerPatientID *uuid.UUID) ([]*ReportView, error) {
	if callerRole == "patient" {
		if callerPatientID == nil || *callerPatientID != patientID {
			return nil, ErrForbidden
		}
	}

	rows, err := s.repo.ListUnlockedByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	return s.resolveAll(ctx, rows), nil
}

// ListActiveWorklist returns the reports a doctor still needs to act on:
// unreviewed, unlocked, and inside the type's retention window.
func (s *ReportService) ListActiveWorklist(ctx context.Context, patientID uuid.UUID, callerRole string) ([]*ReportView, error) {
	if callerRole != "doctor" && callerRole != "admin" {
		return nil, ErrForbidden
	}

	rows, err := s.repo.ListUnlockedByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	active := rows[:0]
	for _, r := range rows {
		if r.InActiveWorklist(now) {
			active = append(active, r)
		}
	}

	return s.resolveAll(ctx, active), nil
}

// SoftDelete marks a report deleted. The reason is mandatory and locked
// reports refuse deletion.
func (s *ReportService) SoftDelete(ctx context.Context, id uuid.UUID, cmd *report.SoftDeleteCommand, ip string) error {
	if strings.TrimSpace(cmd.Reason) == "" {
		return report.ErrReasonRequired
	}

	if err := s.repo.SoftDelete(ctx, id, cmd); err != nil {
		return err
	}

	s.metrics.ReportsDeletedTotal.Inc()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       cmd.DeletedBy,
		UserRole:     string(cmd.DeletedByRole),
		Action:       "delete",
		ResourceType: "report",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"reason":%q}`, cmd.Reason),
	})

	s.log.Info("report soft-deleted",
		zap.String("report_id", id.String()),
		zap.String("deleted_by", cmd.DeletedBy.String()),
	)

	return nil
}

// MarkReviewed stamps reviewed_by/reviewed_at on the given reports. A no-op
// for an empty set.
func (s *ReportService) MarkReviewed(ctx context.Context, ids []uuid.UUID, reviewerID uuid.UUID, callerRole string, ip string) error {
	if callerRole != "doctor" && callerRole != "admin" {
		return ErrForbidden
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.repo.MarkReviewed(ctx, ids, reviewerID, s.now()); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       reviewerID,
		UserRole:     callerRole,
		Action:       "review",
		ResourceType: "report",
		ResourceID:   joinIDs(ids),
		IPAddress:    ip,
	})

	return nil
}

// Lock marks the given reports as incorporated into a consultation. A no-op
// for an empty set.
func (s *ReportService) Lock(ctx context.Context, ids []uuid.UUID, consultationID *uuid.UUID, callerID uuid.UUID, callerRole string, ip string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.repo.Lock(ctx, ids, consultationID); err != nil {
		return err
	}

	s.metrics.ReportsLockedTotal.Add(float64(len(ids)))

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "lock",
		ResourceType: "report",
		ResourceID:   joinIDs(ids),
		IPAddress:    ip,
	})

	return nil
}

// resolveAll presigns every report's storage key. A failed presign degrades
// that one row to its raw path instead of failing the whole listing.
func (s *ReportService) resolveAll(ctx context.Context, rows []*report.PatientReport) []*ReportView {
	views := make([]*ReportView, 0, len(rows))
	for _, r := range rows {
		view := &ReportView{PatientReport: r, FileSizeDisplay: format.FileSize(r.FileSize)}
		url, err := s.store.PresignReport(ctx, r.FilePath)
		if err != nil {
			s.metrics.PresignFailures.Inc()
			s.log.Warn("failed to presign report, returning raw path",
				zap.String("report_id", r.ID.String()),
				zap.Error(err),
			)
			view.File = report.FileRef{Path: r.FilePath, Resolved: false}
		} else {
			view.File = report.FileRef{Path: r.FilePath, URL: url, Resolved: true}
		}
		views = append(views, view)
	}
	return views
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
