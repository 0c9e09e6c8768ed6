package converter

import (
	"time"

	"clinic-frontdesk/internal/delivery/dto"
	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/usecase"
)

func CreateRequestToBooking(req *dto.CreateAppointmentRequest) *usecase.BookingRequest {
	return &usecase.BookingRequest{
		Date:             req.Date,
		Time:             req.Time,
		PatientRef:       req.PatientRef,
		Symptoms:         req.Symptoms,
		Medications:      req.Medications,
		StressLevel:      req.StressLevel,
		StressCategories: req.StressCategories,
		Memo:             req.Memo,
	}
}

// AppointmentToResponse converts an AppointmentSlot entity to AppointmentResponse DTO
func AppointmentToResponse(slot *entity.AppointmentSlot, now time.Time) *dto.AppointmentResponse {
	if slot == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:               slot.ID,
		Date:             slot.DateKey(),
		Time:             slot.SlotTime,
		PatientRef:       slot.PatientRef,
		Symptoms:         nonNilList(slot.Symptoms),
		Medications:      nonNilList(slot.Medications),
		StressLevel:      slot.StressLevel,
		StressCategories: nonNilList(slot.StressCategories),
		Memo:             slot.Memo,
		Status:           string(slot.Status),
		Patient:          PatientToResponse(slot.Patient, now),
		CreatedAt:        slot.CreatedAt,
		UpdatedAt:        slot.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of AppointmentSlot entities to a slice of DTOs
func AppointmentsToResponses(slots []entity.AppointmentSlot, now time.Time) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(slots))
	for i := range slots {
		responses[i] = *AppointmentToResponse(&slots[i], now)
	}
	return responses
}

func AvailabilityToResponse(result *usecase.AvailabilityResult) *dto.AvailabilityResponse {
	return &dto.AvailabilityResponse{
		Date:      result.Date,
		Time:      result.Time,
		Available: result.Available,
	}
}

func DayScheduleToResponse(date string, schedule []usecase.AvailabilityResult) *dto.DayScheduleResponse {
	resp := &dto.DayScheduleResponse{
		Date:  date,
		Slots: make([]dto.AvailabilityResponse, 0, len(schedule)),
	}
	for i := range schedule {
		resp.Slots = append(resp.Slots, *AvailabilityToResponse(&schedule[i]))
		if schedule[i].Available {
			resp.Available++
		}
	}
	return resp
}
