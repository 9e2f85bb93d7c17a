package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func daysAgo(now time.Time, d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestInActiveWorklist(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	locked := true
	unlocked := false
	reviewed := now.Add(-time.Hour)

	cases := []struct {
		name string
		r    PatientReport
		want bool
	}{
		{
			name: "fresh lab report",
			r:    PatientReport{ReportType: TypeLabReport, UploadDate: daysAgo(now, 10)},
			want: true,
		},
		{
			name: "lab report at 179 days",
			r:    PatientReport{ReportType: TypeLabReport, UploadDate: daysAgo(now, 179)},
			want: true,
		},
		{
			name: "lab report past 180 days",
			r:    PatientReport{ReportType: TypeLabReport, UploadDate: daysAgo(now, 181)},
			want: false,
		},
		{
			name: "imaging at 300 days",
			r:    PatientReport{ReportType: TypeImaging, UploadDate: daysAgo(now, 300)},
			want: true,
		},
		{
			name: "imaging past 365 days",
			r:    PatientReport{ReportType: TypeImaging, UploadDate: daysAgo(now, 400)},
			want: false,
		},
		{
			name: "general report never ages out",
			r:    PatientReport{ReportType: TypeGeneral, UploadDate: daysAgo(now, 2000)},
			want: true,
		},
		{
			name: "deleted report excluded",
			r:    PatientReport{ReportType: TypeLabReport, UploadDate: daysAgo(now, 1), IsDeleted: true},
			want: false,
		},
		{
			name: "locked report excluded",
			r:    PatientReport{ReportType: TypeLabReport, UploadDate: daysAgo(now, 1), Locked: &locked},
			want: false,
		},
		{
			name: "explicit unlocked included",
			r:    PatientReport{ReportType: TypeLabReport, UploadDate: daysAgo(now, 1), Locked: &unlocked},
			want: true,
		},
		{
			name: "reviewed report excluded",
			r:    PatientReport{ReportType: TypeLabReport, UploadDate: daysAgo(now, 1), ReviewedAt: &reviewed},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.InActiveWorklist(now); got != tc.want {
				t.Errorf("InActiveWorklist = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsLocked(t *testing.T) {
	locked := true
	unlocked := false

	if (&PatientReport{}).IsLocked() {
		t.Error("nil locked flag should read as unlocked")
	}
	if (&PatientReport{Locked: &unlocked}).IsLocked() {
		t.Error("false locked flag should read as unlocked")
	}
	if !(&PatientReport{Locked: &locked}).IsLocked() {
		t.Error("true locked flag should read as locked")
	}
}

func TestRetentionWindow(t *testing.T) {
	if got := TypeLabReport.RetentionWindow(); got != 180*24*time.Hour {
		t.Errorf("lab_report window = %v", got)
	}
	if got := TypeImaging.RetentionWindow(); got != 365*24*time.Hour {
		t.Errorf("imaging window = %v", got)
	}
	for _, typ := range []ReportType{TypePrescription, TypeMedicalCertificate, TypeReferral, TypeGeneral} {
		if got := typ.RetentionWindow(); got != 0 {
			t.Errorf("%s window = %v, want 0", typ, got)
		}
	}
}

func TestReportTypeIsValid(t *testing.T) {
	if !TypeLabReport.IsValid() {
		t.Error("lab_report should be valid")
	}
	if ReportType("selfie").IsValid() {
		t.Error("unknown type should be invalid")
	}
}

func TestInActiveWorklistIgnoresID(t *testing.T) {
	// sanity: zero-value id rows behave the same as persisted ones
	now := time.Now()
	r := PatientReport{ID: uuid.New(), ReportType: TypeGeneral, UploadDate: now}
	if !r.InActiveWorklist(now) {
		t.Error("fresh general report should be active")
	}
}
