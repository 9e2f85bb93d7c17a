package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebridge/carebridge-api/internal/service"
)

type SummaryHandler struct {
	summarySvc *service.SummaryService
}

func NewSummaryHandler(summarySvc *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summarySvc: summarySvc}
}

type summarizeRequest struct {
	PatientID uuid.UUID   `json:"patient_id" binding:"required"`
	ReportIDs []uuid.UUID `json:"report_ids" binding:"required"`
	Refresh   bool        `json:"refresh"`
}

// Summarize produces (or serves from cache) a sanitized HTML summary of the
// selected reports.
func (h *SummaryHandler) Summarize(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}
	if claims.DoctorID == nil {
		respondError(c, http.StatusForbidden, "caller has no doctor profile")
		return
	}

	var req summarizeRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &service.SummarizeCommand{
		PatientID: req.PatientID,
		DoctorID:  *claims.DoctorID,
		ReportIDs: req.ReportIDs,
		Refresh:   req.Refresh,
	}

	result, err := h.summarySvc.Summarize(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, result)
}

type invalidateRequest struct {
	PatientID uuid.UUID   `json:"patient_id" binding:"required"`
	ReportIDs []uuid.UUID `json:"report_ids" binding:"required"`
}

func (h *SummaryHandler) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.summarySvc.Invalidate(c.Request.Context(), req.PatientID, req.ReportIDs); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse[any]{Message: "summary cache invalidated"})
}
