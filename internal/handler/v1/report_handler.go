package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebridge/carebridge-api/internal/domain/report"
	"github.com/carebridge/carebridge-api/internal/service"
)

// maxReportSize caps multipart uploads at 25 MB, matching the portal's
// client-side limit.
const maxReportSize = 25 << 20

type ReportHandler struct {
	reportSvc *service.ReportService
}

func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Upload accepts a multipart form with the report binary under "file" plus
// report_name and report_type fields.
func (h *ReportHandler) Upload(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > maxReportSize {
		respondError(c, http.StatusRequestEntityTooLarge, "file exceeds the 25MB limit")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable file")
		return
	}
	defer f.Close()

	cmd := &report.UploadCommand{
		PatientID:   patientID,
		ReportName:  c.PostForm("report_name"),
		ReportType:  report.ReportType(c.PostForm("report_type")),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		FileSize:    fileHeader.Size,
		UploadedBy:  claims.UserID,
	}

	r, err := h.reportSvc.Upload(c.Request.Context(), cmd, f, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, r)
}

// List returns the patient's active (non-deleted, unlocked) reports with
// signed URLs.
func (h *ReportHandler) List(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	views, err := h.reportSvc.ListReports(c.Request.Context(), patientID, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, views)
}

// Worklist returns the doctor-facing active worklist: unreviewed, unlocked,
// inside the retention window.
func (h *ReportHandler) Worklist(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	views, err := h.reportSvc.ListActiveWorklist(c.Request.Context(), patientID, string(claims.Role))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, views)
}

type softDeleteRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *ReportHandler) SoftDelete(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req softDeleteRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &report.SoftDeleteCommand{
		Reason:        req.Reason,
		DeletedBy:     claims.UserID,
		DeletedByRole: claims.Role,
	}

	if err := h.reportSvc.SoftDelete(c.Request.Context(), id, cmd, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse[any]{Message: "report deleted"})
}

type reportIDsRequest struct {
	ReportIDs []uuid.UUID `json:"report_ids"`
}

func (h *ReportHandler) MarkReviewed(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req reportIDsRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.reportSvc.MarkReviewed(c.Request.Context(), req.ReportIDs, claims.UserID, string(claims.Role), c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse[any]{Message: "reports marked reviewed"})
}

type lockRequest struct {
	ReportIDs      []uuid.UUID `json:"report_ids"`
	ConsultationID *uuid.UUID  `json:"consultation_id"`
}

func (h *ReportHandler) Lock(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req lockRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.reportSvc.Lock(c.Request.Context(), req.ReportIDs, req.ConsultationID, claims.UserID, string(claims.Role), c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse[any]{Message: "reports locked"})
}
