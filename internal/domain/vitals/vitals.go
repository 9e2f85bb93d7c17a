package vitals

import (
	"time"

	"github.com/google/uuid"
)

// PatientVitals is a point-in-time snapshot recorded by clinic staff.
// The portal only ever reads the most recent row per patient.
type PatientVitals struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	BloodPressureSystolic  *int     `gorm:"column:bp_systolic"`
	BloodPressureDiastolic *int     `gorm:"column:bp_diastolic"`
	HeartRateBPM           *int     `gorm:"column:heart_rate_bpm"`
	TemperatureCelsius     *float64 `gorm:"column:temperature_celsius"`
	WeightKg               *float64 `gorm:"column:weight_kg"`
	BMI                    *float64 `gorm:"column:bmi"`
	OxygenSaturation       *float64 `gorm:"column:oxygen_saturation"`
	RespiratoryRate        *int     `gorm:"column:respiratory_rate_bpm"`

	RecordedDate time.Time `gorm:"column:recorded_date;not null;index"`
	RecordedBy   uuid.UUID `gorm:"column:recorded_by;type:uuid"`
}

func (PatientVitals) TableName() string {
	return "clinical.patient_vitals"
}
