package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a newly uploaded report row.
	Create(ctx context.Context, r *PatientReport) error

	// GetByID retrieves a report by primary key. Returns ErrReportNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*PatientReport, error)

	// GetByIDs retrieves the given reports; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*PatientReport, error)

	// ListUnlockedByPatient returns non-deleted reports whose locked flag is
	// null or false, ordered by upload date descending.
	ListUnlockedByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientReport, error)

	// SoftDelete marks a report deleted with audit fields. Returns
	// ErrReportLocked if the row is locked to a consultation.
	SoftDelete(ctx context.Context, id uuid.UUID, cmd *SoftDeleteCommand) error

	// MarkReviewed bulk-sets reviewed_by/reviewed_at. Implementations must
	// not issue a query for an empty id set.
	MarkReviewed(ctx context.Context, ids []uuid.UUID, reviewerID uuid.UUID, at time.Time) error

	// Lock bulk-sets locked=true, optionally linking a consultation.
	// Implementations must not issue a query for an empty id set.
	Lock(ctx context.Context, ids []uuid.UUID, consultationID *uuid.UUID) error
}
