package consultation

import "errors"

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrChiefComplaintEmpty  = errors.New("chief complaint is required")
	ErrDiagnosisEmpty       = errors.New("diagnosis is required")
	ErrNoValidMedication    = errors.New("at least one valid medication row is required")
	ErrSaveInProgress       = errors.New("a save is already in progress for this form")
)
