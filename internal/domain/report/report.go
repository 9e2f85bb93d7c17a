package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge-api/internal/domain"
)

type ReportType string

const (
	TypeLabReport          ReportType = "lab_report"
	TypeImaging            ReportType = "imaging"
	TypePrescription       ReportType = "prescription"
	TypeMedicalCertificate ReportType = "medical_certificate"
	TypeReferral           ReportType = "referral"
	TypeGeneral            ReportType = "general"
)

func (t ReportType) IsValid() bool {
	switch t {
	case TypeLabReport, TypeImaging, TypePrescription, TypeMedicalCertificate, TypeReferral, TypeGeneral:
		return true
	}
	return false
}

// RetentionWindow returns how long a report of this type stays on the
// doctor's active worklist. Zero means the type never ages out.
func (t ReportType) RetentionWindow() time.Duration {
	switch t {
	case TypeLabReport:
		return 180 * 24 * time.Hour
	case TypeImaging:
		return 365 * 24 * time.Hour
	}
	return 0
}

// PatientReport is the central mutable entity of the portal.
//
// Lifecycle: uploaded → optionally selected for summarization → optionally
// marked reviewed → optionally locked against a consultation → soft-deleted
// with a reason at any point before locking. Rows are never physically removed.
type PatientReport struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PatientID  uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	ReportName string     `gorm:"column:report_name;type:varchar(255);not null"`
	ReportType ReportType `gorm:"column:report_type;type:varchar(30);not null;index"`

	// Storage key within the report bucket, not a URL.
	FilePath string `gorm:"column:file_path;type:varchar(512);not null"`
	FileSize int64  `gorm:"column:file_size"`
	FileType string `gorm:"column:file_type;type:varchar(100)"`

	UploadDate time.Time `gorm:"column:upload_date;not null;index"`
	UploadedBy uuid.UUID `gorm:"column:uploaded_by;type:uuid;not null"`

	IsDeleted     bool        `gorm:"column:is_deleted;not null;default:false;index"`
	DeletedReason string      `gorm:"column:deleted_reason;type:text"`
	DeletedBy     *uuid.UUID  `gorm:"column:deleted_by;type:uuid"`
	DeletedByRole domain.Role `gorm:"column:deleted_by_role;type:varchar(30)"`
	DeletedAt     *time.Time  `gorm:"column:deleted_at"`

	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	ReviewedBy *uuid.UUID `gorm:"column:reviewed_by;type:uuid"`

	// Locked reports have been incorporated into a finalized consultation.
	// A null value is treated as unlocked when filtering, matching the
	// backend's IS-NULL-or-false semantics.
	Locked               *bool      `gorm:"column:locked;index"`
	LinkedConsultationID *uuid.UUID `gorm:"column:linked_consultation_id;type:uuid"`
}

func (PatientReport) TableName() string {
	return "clinical.patient_reports"
}

func (r *PatientReport) IsLocked() bool {
	return r.Locked != nil && *r.Locked
}

// InActiveWorklist reports whether this row belongs on the doctor's active
// worklist at the given instant: not deleted, not locked, not yet reviewed,
// and inside the type's retention window.
func (r *PatientReport) InActiveWorklist(now time.Time) bool {
	if r.IsDeleted || r.IsLocked() || r.ReviewedAt != nil {
		return false
	}
	if w := r.ReportType.RetentionWindow(); w > 0 && now.Sub(r.UploadDate) > w {
		return false
	}
	return true
}

// FileRef is the result of resolving a storage key to a time-limited URL.
// Unresolved refs keep the original key so the caller can decide how to
// degrade instead of being handed a silently broken URL.
type FileRef struct {
	Path     string `json:"path"`
	URL      string `json:"url,omitempty"`
	Resolved bool   `json:"resolved"`
}

type UploadCommand struct {
	PatientID   uuid.UUID
	ReportName  string
	ReportType  ReportType
	FileName    string
	ContentType string
	FileSize    int64
	UploadedBy  uuid.UUID
}

type SoftDeleteCommand struct {
	Reason        string
	DeletedBy     uuid.UUID
	DeletedByRole domain.Role
}
