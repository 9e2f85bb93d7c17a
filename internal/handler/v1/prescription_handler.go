package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebridge/carebridge-api/internal/domain/consultation"
	"github.com/carebridge/carebridge-api/internal/service"
)

type PrescriptionHandler struct {
	prescriptionSvc *service.PrescriptionService
}

func NewPrescriptionHandler(prescriptionSvc *service.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptionSvc: prescriptionSvc}
}

type saveRequest struct {
	PatientID              uuid.UUID                     `json:"patient_id" binding:"required"`
	ChiefComplaint         string                        `json:"chief_complaint"`
	Diagnosis              string                        `json:"diagnosis"`
	ClinicalNotes          string                        `json:"clinical_notes"`
	AdditionalInstructions string                        `json:"additional_instructions"`
	FollowUpDate           *time.Time                    `json:"follow_up_date"`
	Type                   consultation.ConsultationType `json:"type"`
	Medications            []consultation.MedicationRow  `json:"medications"`
	SelectedReportIDs      []uuid.UUID                   `json:"selected_report_ids"`
}

// Save runs the consultation save pipeline and returns the new consultation.
func (h *PrescriptionHandler) Save(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}
	if claims.DoctorID == nil {
		respondError(c, http.StatusForbidden, "caller has no doctor profile")
		return
	}

	var req saveRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &consultation.SaveCommand{
		PatientID:              req.PatientID,
		DoctorID:               *claims.DoctorID,
		ChiefComplaint:         req.ChiefComplaint,
		Diagnosis:              req.Diagnosis,
		ClinicalNotes:          req.ClinicalNotes,
		AdditionalInstructions: req.AdditionalInstructions,
		FollowUpDate:           req.FollowUpDate,
		Type:                   req.Type,
		Medications:            req.Medications,
		SelectedReportIDs:      req.SelectedReportIDs,
	}

	saved, err := h.prescriptionSvc.Save(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, saved)
}

func (h *PrescriptionHandler) GetConsultation(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	cons, err := h.prescriptionSvc.GetConsultation(c.Request.Context(), id, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, cons)
}

func (h *PrescriptionHandler) ListConsultations(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	limit := parseQueryInt(c, "limit", 20)

	list, err := h.prescriptionSvc.ListConsultations(c.Request.Context(), patientID, limit, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, list)
}
