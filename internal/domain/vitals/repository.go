package vitals

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// LatestByPatient returns the most recent vitals row by recorded_date.
	// Returns ErrVitalsNotFound when the patient has no recorded vitals.
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*PatientVitals, error)
}
