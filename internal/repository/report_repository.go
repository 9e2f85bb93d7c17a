package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebridge/carebridge-api/internal/domain/report"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.PatientReport) error {
	if err := r.db.WithContext(ctx).Create(rep).Error; err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*report.PatientReport, error) {
	var rep report.PatientReport
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, report.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	return &rep, nil
}

func (r *ReportRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*report.PatientReport, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var reps []*report.PatientReport
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&reps).Error; err != nil {
		return nil, fmt.Errorf("fetching reports: %w", err)
	}
	return reps, nil
}

func (r *ReportRepository) ListUnlockedByPatient(ctx context.Context, patientID uuid.UUID) ([]*report.PatientReport, error) {
	var reps []*report.PatientReport
	// locked IS NOT TRUE deliberately includes rows where the flag was never
	// set, matching the filter the portal has always used.
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND is_deleted = false AND locked IS NOT TRUE", patientID).
		Order("upload_date DESC").
		Find(&reps).Error
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reps, nil
}

func (r *ReportRepository) SoftDelete(ctx context.Context, id uuid.UUID, cmd *report.SoftDeleteCommand) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&report.PatientReport{}).
		Where("id = ? AND is_deleted = false AND locked IS NOT TRUE", id).
		Updates(map[string]any{
			"is_deleted":      true,
			"deleted_reason":  cmd.Reason,
			"deleted_by":      cmd.DeletedBy,
			"deleted_by_role": cmd.DeletedByRole,
			"deleted_at":      now,
		})
	if res.Error != nil {
		return fmt.Errorf("soft-deleting report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish "locked" from "gone" for the caller's error message.
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.IsLocked() {
			return report.ErrReportLocked
		}
		return report.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) MarkReviewed(ctx context.Context, ids []uuid.UUID, reviewerID uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&report.PatientReport{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("marking reports reviewed: %w", err)
	}
	return nil
}

func (r *ReportRepository) Lock(ctx context.Context, ids []uuid.UUID, consultationID *uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	updates := map[string]any{"locked": true}
	if consultationID != nil {
		updates["linked_consultation_id"] = *consultationID
	}
	err := r.db.WithContext(ctx).
		Model(&report.PatientReport{}).
		Where("id IN ?", ids).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("locking reports: %w", err)
	}
	return nil
}
