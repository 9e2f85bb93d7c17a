package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient demographic record at registration.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// UpdateProfile applies partial updates to an existing patient record.
	UpdateProfile(ctx context.Context, id uuid.UUID, cmd *UpdateProfileCommand) (*Patient, error)
}
