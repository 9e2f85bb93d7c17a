package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus persists a status change made on the entity.
	UpdateStatus(ctx context.Context, a *Appointment) error

	// ListUpcoming returns a patient's future appointments ordered by time.
	ListUpcoming(ctx context.Context, patientID uuid.UUID, from time.Time) ([]*Appointment, error)
}
