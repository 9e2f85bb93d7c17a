package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebridge/carebridge-api/internal/domain/consultation"
	"github.com/carebridge/carebridge-api/internal/domain/patient"
)

type ConsultationRepository struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// SaveVisit writes the consultation, prescription, and items as one unit.
// The patient's updated_at is bumped in the same transaction so a rollback
// leaves no trace of the attempted save.
func (r *ConsultationRepository) SaveVisit(ctx context.Context, c *consultation.Consultation, p *consultation.Prescription, items []consultation.PrescriptionItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("inserting consultation: %w", err)
		}

		p.ConsultationID = c.ID
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("inserting prescription: %w", err)
		}

		for i := range items {
			items[i].PrescriptionID = p.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("inserting prescription items: %w", err)
		}

		err := tx.Model(&patient.Patient{}).
			Where("id = ?", c.PatientID).
			Update("updated_at", time.Now()).Error
		if err != nil {
			return fmt.Errorf("touching patient: %w", err)
		}

		return nil
	})
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	var c consultation.Consultation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consultation.ErrConsultationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching consultation: %w", err)
	}
	return &c, nil
}

func (r *ConsultationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*consultation.Consultation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var cs []*consultation.Consultation
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&cs).Error
	if err != nil {
		return nil, fmt.Errorf("listing consultations: %w", err)
	}
	return cs, nil
}
