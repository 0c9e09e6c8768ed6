package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"clinic-frontdesk/internal/converter"
	"clinic-frontdesk/internal/delivery/dto"
	"clinic-frontdesk/internal/usecase"
	"clinic-frontdesk/pkg/response"
	"clinic-frontdesk/pkg/validator"

	"github.com/gorilla/mux"
)

type PatientHandler struct {
	identityUsecase usecase.IdentityUsecase
	validator       *validator.CustomValidator
}

func NewPatientHandler(identityUsecase usecase.IdentityUsecase, validator *validator.CustomValidator) *PatientHandler {
	return &PatientHandler{
		identityUsecase: identityUsecase,
		validator:       validator,
	}
}

// RegisterPatient answers 201 for a new identity and 200 when the national
// ID was already registered and the submission was merged into it.
func (h *PatientHandler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.identityUsecase.RegisterOrUpdate(r.Context(), converter.RegisterRequestToRegistration(&req))
	if err != nil {
		writeError(w, err, "Failed to register patient")
		return
	}

	if result.Created {
		response.Success(w, http.StatusCreated, "Patient registered successfully", converter.RegistrationToResponse(result, time.Now()))
		return
	}
	response.Success(w, http.StatusOK, "Patient already registered, record updated", converter.RegistrationToResponse(result, time.Now()))
}

func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identityUsecase.GetByNationalID(r.Context(), mux.Vars(r)["nationalId"])
	if err != nil {
		writeError(w, err, "Failed to get patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient retrieved successfully", converter.PatientToResponse(identity, time.Now()))
}

func (h *PatientHandler) GetVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.identityUsecase.History(r.Context(), mux.Vars(r)["nationalId"])
	if err != nil {
		writeError(w, err, "Failed to get visit history")
		return
	}

	response.Success(w, http.StatusOK, "Visit history retrieved successfully", &dto.VisitListResponse{
		Visits: converter.VisitsToResponses(visits),
		Total:  len(visits),
	})
}

func (h *PatientHandler) GetLatestVisit(w http.ResponseWriter, r *http.Request) {
	visit, err := h.identityUsecase.LatestVisit(r.Context(), mux.Vars(r)["nationalId"])
	if err != nil {
		writeError(w, err, "Failed to get latest visit")
		return
	}
	if visit == nil {
		response.NotFound(w, "Patient has no visits")
		return
	}

	response.Success(w, http.StatusOK, "Latest visit retrieved successfully", converter.VisitToResponse(visit))
}

func (h *PatientHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	identities, err := h.identityUsecase.Search(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		writeError(w, err, "Failed to search patients")
		return
	}

	response.Success(w, http.StatusOK, "Patients retrieved successfully", &dto.PatientListResponse{
		Patients: converter.PatientsToResponses(identities, time.Now()),
		Total:    len(identities),
	})
}

func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.identityUsecase.Delete(r.Context(), mux.Vars(r)["nationalId"]); err != nil {
		writeError(w, err, "Failed to delete patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient deleted successfully", nil)
}
