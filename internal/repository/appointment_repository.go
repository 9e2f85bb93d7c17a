package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carebridge/carebridge-api/internal/domain/appointment"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	err := r.db.WithContext(ctx).
		Model(a).
		Select("status", "cancelled_at", "cancellation_reason", "updated_at").
		Updates(a).Error
	if err != nil {
		return fmt.Errorf("updating appointment status: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) ListUpcoming(ctx context.Context, patientID uuid.UUID, from time.Time) ([]*appointment.Appointment, error) {
	var as []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND scheduled_at >= ? AND deleted_at IS NULL AND status NOT IN ?",
			patientID, from, []appointment.AppointmentStatus{appointment.StatusCancelled, appointment.StatusNoShow}).
		Order("scheduled_at ASC").
		Find(&as).Error
	if err != nil {
		return nil, fmt.Errorf("listing upcoming appointments: %w", err)
	}
	return as, nil
}
