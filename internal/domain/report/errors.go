package report

import "errors"

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrReportLocked      = errors.New("report is locked to a consultation and cannot be deleted")
	ErrReasonRequired    = errors.New("a deletion reason is required")
	ErrInvalidReportType = errors.New("invalid report type")
)
