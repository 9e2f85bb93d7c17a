package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebridge/carebridge-api/internal/domain/vitals"
)

type VitalsRepository struct {
	db *gorm.DB
}

func NewVitalsRepository(db *gorm.DB) *VitalsRepository {
	return &VitalsRepository{db: db}
}

func (r *VitalsRepository) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*vitals.PatientVitals, error) {
	var v vitals.PatientVitals
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("recorded_date DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, vitals.ErrVitalsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching latest vitals: %w", err)
	}
	return &v, nil
}
