package consultation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	StatusActive    ConsultationStatus = "active"
	StatusCompleted ConsultationStatus = "completed"
	StatusCancelled ConsultationStatus = "cancelled"
)

type ConsultationType string

const (
	TypeInPerson ConsultationType = "in_person"
	TypeVideo    ConsultationType = "video"
	TypeFollowUp ConsultationType = "follow_up"
)

// Consultation is created on prescription save and holds the clinical
// narrative. It is 1:1 with the Prescription written in the same save.
type Consultation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	ChiefComplaint         string     `gorm:"column:chief_complaint;type:text;not null"`
	Diagnosis              string     `gorm:"column:diagnosis;type:text;not null"`
	ClinicalNotes          string     `gorm:"column:clinical_notes;type:text"`
	FollowUpDate           *time.Time `gorm:"column:follow_up_date"`
	AdditionalInstructions string     `gorm:"column:additional_instructions;type:text"`

	Status ConsultationStatus `gorm:"column:status;type:varchar(20);not null;default:'active';index"`
	Type   ConsultationType   `gorm:"column:type;type:varchar(20);not null;default:'in_person'"`
}

func (Consultation) TableName() string {
	return "clinical.consultations"
}

type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
	PrescriptionExpired   PrescriptionStatus = "expired"
)

type Prescription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ConsultationID uuid.UUID `gorm:"column:consultation_id;type:uuid;not null;uniqueIndex"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID       uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	Status PrescriptionStatus `gorm:"column:status;type:varchar(20);not null;default:'active';index"`

	Items []PrescriptionItem `gorm:"foreignKey:PrescriptionID"`
}

func (Prescription) TableName() string {
	return "clinical.prescriptions"
}

type RouteOfAdministration string

const (
	RouteOral          RouteOfAdministration = "oral"
	RouteIntravenous   RouteOfAdministration = "intravenous"
	RouteIntramuscular RouteOfAdministration = "intramuscular"
	RouteTopical       RouteOfAdministration = "topical"
	RouteInhaled       RouteOfAdministration = "inhaled"
	RouteSublingual    RouteOfAdministration = "sublingual"
)

// PrescriptionItem is one medication row. item_order preserves the sequence
// the doctor entered in the form.
type PrescriptionItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PrescriptionID uuid.UUID `gorm:"column:prescription_id;type:uuid;not null;index"`

	MedicineName string                `gorm:"column:medicine_name;type:varchar(255);not null"`
	Dosage       string                `gorm:"column:dosage;type:varchar(100);not null"`
	Frequency    string                `gorm:"column:frequency;type:varchar(100);not null"`
	Duration     string                `gorm:"column:duration;type:varchar(100);not null"`
	Instructions string                `gorm:"column:instructions;type:text"`
	Route        RouteOfAdministration `gorm:"column:route;type:varchar(50);not null;default:'oral'"`
	ItemOrder    int                   `gorm:"column:item_order;not null"`
}

func (PrescriptionItem) TableName() string {
	return "clinical.prescription_items"
}

// MedicationRow is a pre-persistence form row. Rows missing any of the four
// required fields are dropped silently at save time.
type MedicationRow struct {
	MedicineName string                `json:"medicine_name"`
	Dosage       string                `json:"dosage"`
	Frequency    string                `json:"frequency"`
	Duration     string                `json:"duration"`
	Instructions string                `json:"instructions"`
	Route        RouteOfAdministration `json:"route"`
}

// IsComplete reports whether all four required fields are populated.
func (m MedicationRow) IsComplete() bool {
	return strings.TrimSpace(m.MedicineName) != "" &&
		strings.TrimSpace(m.Dosage) != "" &&
		strings.TrimSpace(m.Frequency) != "" &&
		strings.TrimSpace(m.Duration) != ""
}

type SaveCommand struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID

	ChiefComplaint         string
	Diagnosis              string
	ClinicalNotes          string
	AdditionalInstructions string
	FollowUpDate           *time.Time
	Type                   ConsultationType

	Medications []MedicationRow

	// Reports the doctor had selected while authoring; locked to the new
	// consultation after a successful save.
	SelectedReportIDs []uuid.UUID
}
