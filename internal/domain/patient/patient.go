package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

type BloodType string

const (
	BloodTypeAPos    BloodType = "A+"
	BloodTypeANeg    BloodType = "A-"
	BloodTypeBPos    BloodType = "B+"
	BloodTypeBNeg    BloodType = "B-"
	BloodTypeABPos   BloodType = "AB+"
	BloodTypeABNeg   BloodType = "AB-"
	BloodTypeOPos    BloodType = "O+"
	BloodTypeONeg    BloodType = "O-"
	BloodTypeUnknown BloodType = "unknown"
)

type ContactInfo struct {
	Phone   string `gorm:"column:phone;type:varchar(20)"`
	Email   string `gorm:"column:email;type:varchar(255)"`
	Address string `gorm:"column:address;type:text"`
	City    string `gorm:"column:city;type:varchar(100)"`
	State   string `gorm:"column:state;type:varchar(50)"`
	ZipCode string `gorm:"column:zip_code;type:varchar(20)"`
	Country string `gorm:"column:country;type:varchar(100)"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

// Patient is the demographic record shown on dashboards. Created at
// registration and mutated only through profile updates; never deleted.
type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;not null"`
	Gender      Gender    `gorm:"column:gender;type:varchar(20);not null"`
	BloodType   BloodType `gorm:"column:blood_type;type:varchar(5)"`

	ContactInfo

	EmergencyContact *EmergencyContact `gorm:"column:emergency_contact;serializer:json"`

	MedicalHistory     string   `gorm:"column:medical_history;type:text"`
	Allergies          []string `gorm:"column:allergies;serializer:json"`
	CurrentMedications []string `gorm:"column:current_medications;serializer:json"`

	// Storage key of the profile image; resolved to a time-limited URL at
	// read time, never stored as a URL.
	ProfileImagePath string `gorm:"column:profile_image_path;type:varchar(512)"`

	AssignedDoctorID *uuid.UUID `gorm:"column:assigned_doctor_id;type:uuid;index"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Age() int {
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

type RegisterPatientCommand struct {
	FirstName          string
	LastName           string
	DateOfBirth        time.Time
	Gender             Gender
	BloodType          BloodType
	Phone              string
	Email              string
	Address            string
	City               string
	State              string
	ZipCode            string
	Country            string
	EmergencyContact   *EmergencyContact
	MedicalHistory     string
	Allergies          []string
	CurrentMedications []string
	AssignedDoctorID   *uuid.UUID
	CreatedBy          uuid.UUID
}

type UpdateProfileCommand struct {
	Phone              *string
	Email              *string
	Address            *string
	City               *string
	State              *string
	ZipCode            *string
	Country            *string
	EmergencyContact   *EmergencyContact
	MedicalHistory     *string
	Allergies          *[]string
	CurrentMedications *[]string
	ProfileImagePath   *string
	UpdatedBy          uuid.UUID
}
