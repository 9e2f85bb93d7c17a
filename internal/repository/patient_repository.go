package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebridge/carebridge-api/internal/domain/patient"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) UpdateProfile(ctx context.Context, id uuid.UUID, cmd *patient.UpdateProfileCommand) (*patient.Patient, error) {
	updates := map[string]any{}

	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}
	if cmd.Email != nil {
		updates["email"] = *cmd.Email
	}
	if cmd.Address != nil {
		updates["address"] = *cmd.Address
	}
	if cmd.City != nil {
		updates["city"] = *cmd.City
	}
	if cmd.State != nil {
		updates["state"] = *cmd.State
	}
	if cmd.ZipCode != nil {
		updates["zip_code"] = *cmd.ZipCode
	}
	if cmd.Country != nil {
		updates["country"] = *cmd.Country
	}
	if cmd.MedicalHistory != nil {
		updates["medical_history"] = *cmd.MedicalHistory
	}
	if cmd.ProfileImagePath != nil {
		updates["profile_image_path"] = *cmd.ProfileImagePath
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).
			Model(&patient.Patient{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("updating patient: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, patient.ErrPatientNotFound
		}
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// serializer:json columns need a full-value save, not a map update
	dirty := false
	if cmd.EmergencyContact != nil {
		p.EmergencyContact = cmd.EmergencyContact
		dirty = true
	}
	if cmd.Allergies != nil {
		p.Allergies = *cmd.Allergies
		dirty = true
	}
	if cmd.CurrentMedications != nil {
		p.CurrentMedications = *cmd.CurrentMedications
		dirty = true
	}
	if dirty {
		if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
			return nil, fmt.Errorf("updating patient json fields: %w", err)
		}
	}

	return p, nil
}
