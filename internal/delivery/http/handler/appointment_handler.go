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

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	reservationUsecase usecase.ReservationUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(reservationUsecase usecase.ReservationUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		reservationUsecase: reservationUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.reservationUsecase.Book(r.Context(), converter.CreateRequestToBooking(&req))
	if err != nil {
		writeError(w, err, "Failed to book appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", converter.AppointmentToResponse(result.Slot, time.Now()))
}

func (h *AppointmentHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, slotTime := query.Get("date"), query.Get("time")
	if date == "" || slotTime == "" {
		response.BadRequest(w, "date and time are required", nil)
		return
	}

	result, err := h.reservationUsecase.Availability(r.Context(), date, slotTime)
	if err != nil {
		writeError(w, err, "Failed to check availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", converter.AvailabilityToResponse(result))
}

func (h *AppointmentHandler) GetDaySchedule(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	schedule, err := h.reservationUsecase.DaySchedule(r.Context(), date)
	if err != nil {
		writeError(w, err, "Failed to get schedule")
		return
	}

	response.Success(w, http.StatusOK, "Schedule retrieved successfully", converter.DayScheduleToResponse(date, schedule))
}

func (h *AppointmentHandler) ListByDate(w http.ResponseWriter, r *http.Request) {
	slots, err := h.reservationUsecase.ListByDate(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		writeError(w, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(slots, time.Now()),
		Total:        len(slots),
	})
}

// GetPatientAppointments lists the patient's upcoming active appointments.
// A patient with none gets an empty list.
func (h *AppointmentHandler) GetPatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientRef, err := uuid.Parse(mux.Vars(r)["patientRef"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid patient reference", nil)
		return
	}

	slots, err := h.reservationUsecase.ListByPatient(r.Context(), patientRef)
	if err != nil {
		writeError(w, err, "Failed to get patient appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(slots, time.Now()),
		Total:        len(slots),
	})
}

func (h *AppointmentHandler) SearchAppointments(w http.ResponseWriter, r *http.Request) {
	slots, err := h.reservationUsecase.Search(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		writeError(w, err, "Failed to search appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(slots, time.Now()),
		Total:        len(slots),
	})
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	if err := h.reservationUsecase.Cancel(r.Context(), id); err != nil {
		writeError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", nil)
}

func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	slot, err := h.reservationUsecase.Complete(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to complete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment completed successfully", converter.AppointmentToResponse(slot, time.Now()))
}
