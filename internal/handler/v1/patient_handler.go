package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebridge/carebridge-api/internal/domain/patient"
	"github.com/carebridge/carebridge-api/internal/service"
)

type PatientHandler struct {
	patientSvc *service.PatientService
}

func NewPatientHandler(patientSvc *service.PatientService) *PatientHandler {
	return &PatientHandler{patientSvc: patientSvc}
}

type registerPatientRequest struct {
	FirstName          string                    `json:"first_name" binding:"required"`
	LastName           string                    `json:"last_name" binding:"required"`
	DateOfBirth        time.Time                 `json:"date_of_birth" binding:"required"`
	Gender             patient.Gender            `json:"gender" binding:"required"`
	BloodType          patient.BloodType         `json:"blood_type"`
	Phone              string                    `json:"phone"`
	Email              string                    `json:"email"`
	Address            string                    `json:"address"`
	City               string                    `json:"city"`
	State              string                    `json:"state"`
	ZipCode            string                    `json:"zip_code"`
	Country            string                    `json:"country"`
	EmergencyContact   *patient.EmergencyContact `json:"emergency_contact"`
	MedicalHistory     string                    `json:"medical_history"`
	Allergies          []string                  `json:"allergies"`
	CurrentMedications []string                  `json:"current_medications"`
	AssignedDoctorID   *uuid.UUID                `json:"assigned_doctor_id"`
}

func (h *PatientHandler) Register(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req registerPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &patient.RegisterPatientCommand{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		DateOfBirth:        req.DateOfBirth,
		Gender:             req.Gender,
		BloodType:          req.BloodType,
		Phone:              req.Phone,
		Email:              req.Email,
		Address:            req.Address,
		City:               req.City,
		State:              req.State,
		ZipCode:            req.ZipCode,
		Country:            req.Country,
		EmergencyContact:   req.EmergencyContact,
		MedicalHistory:     req.MedicalHistory,
		Allergies:          req.Allergies,
		CurrentMedications: req.CurrentMedications,
		AssignedDoctorID:   req.AssignedDoctorID,
		CreatedBy:          claims.UserID,
	}

	p, err := h.patientSvc.RegisterPatient(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	view, err := h.patientSvc.GetPatient(c.Request.Context(), id, claims.UserID, string(claims.Role), claims.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, view)
}

type updateProfileRequest struct {
	Phone              *string                   `json:"phone"`
	Email              *string                   `json:"email"`
	Address            *string                   `json:"address"`
	City               *string                   `json:"city"`
	State              *string                   `json:"state"`
	ZipCode            *string                   `json:"zip_code"`
	Country            *string                   `json:"country"`
	EmergencyContact   *patient.EmergencyContact `json:"emergency_contact"`
	MedicalHistory     *string                   `json:"medical_history"`
	Allergies          *[]string                 `json:"allergies"`
	CurrentMedications *[]string                 `json:"current_medications"`
}

func (h *PatientHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &patient.UpdateProfileCommand{
		Phone:              req.Phone,
		Email:              req.Email,
		Address:            req.Address,
		City:               req.City,
		State:              req.State,
		ZipCode:            req.ZipCode,
		Country:            req.Country,
		EmergencyContact:   req.EmergencyContact,
		MedicalHistory:     req.MedicalHistory,
		Allergies:          req.Allergies,
		CurrentMedications: req.CurrentMedications,
		UpdatedBy:          claims.UserID,
	}

	p, err := h.patientSvc.UpdateProfile(c.Request.Context(), id, cmd, claims.UserID, string(claims.Role), claims.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

// maxProfileImageSize caps profile image uploads at 5 MB.
const maxProfileImageSize = 5 << 20

// UploadProfileImage accepts a multipart form with the image under "file".
func (h *PatientHandler) UploadProfileImage(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > maxProfileImageSize {
		respondError(c, http.StatusRequestEntityTooLarge, "image exceeds the 5MB limit")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable file")
		return
	}
	defer f.Close()

	view, err := h.patientSvc.UploadProfileImage(
		c.Request.Context(),
		id,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		f,
		fileHeader.Size,
		claims.UserID,
		string(claims.Role),
		claims.PatientID,
		c.ClientIP(),
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, view)
}

func (h *PatientHandler) LatestVitals(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	v, err := h.patientSvc.LatestVitals(c.Request.Context(), id, string(claims.Role), claims.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, v)
}
