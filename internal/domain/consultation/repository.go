package consultation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// SaveVisit persists the consultation, its prescription, and the
	// prescription items in a single transaction, and touches the patient's
	// updated_at inside the same transaction. Any failure rolls the whole
	// unit back.
	SaveVisit(ctx context.Context, c *Consultation, p *Prescription, items []PrescriptionItem) error

	// GetByID retrieves a consultation with its prescription items preloaded.
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)

	// ListByPatient returns consultations for a patient, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Consultation, error)
}
