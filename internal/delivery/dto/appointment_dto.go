package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateAppointmentRequest books one slot. Date and time format are checked
// by the booking rules so the caller gets the precise reason.
type CreateAppointmentRequest struct {
	Date             string    `json:"date" validate:"required"`
	Time             string    `json:"time" validate:"required"`
	PatientRef       uuid.UUID `json:"patient_ref" validate:"required"`
	Symptoms         []string  `json:"symptoms"`
	Medications      []string  `json:"medications"`
	StressLevel      *string   `json:"stress_level" validate:"omitempty,max=16"`
	StressCategories []string  `json:"stress_categories"`
	Memo             string    `json:"memo" validate:"max=2000"`
}

// Response DTOs

type AppointmentResponse struct {
	ID               uuid.UUID        `json:"id"`
	Date             string           `json:"date"`
	Time             string           `json:"time"`
	PatientRef       uuid.UUID        `json:"patient_ref"`
	Symptoms         []string         `json:"symptoms"`
	Medications      []string         `json:"medications"`
	StressLevel      *string          `json:"stress_level,omitempty"`
	StressCategories []string         `json:"stress_categories"`
	Memo             string           `json:"memo,omitempty"`
	Status           string           `json:"status"`
	Patient          *PatientResponse `json:"patient,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type AvailabilityResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type DayScheduleResponse struct {
	Date      string                 `json:"date"`
	Slots     []AvailabilityResponse `json:"slots"`
	Available int                    `json:"available"`
}
