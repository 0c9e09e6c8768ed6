package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// RegisterPatientRequest registers a patient or updates the existing record
// for the same national ID. Omitted fields keep their stored value.
type RegisterPatientRequest struct {
	NationalID    string        `json:"national_id" validate:"required,max=32"`
	Name          *string       `json:"name" validate:"omitempty,max=100"`
	Phone         *string       `json:"phone" validate:"omitempty,max=32"`
	Gender        *string       `json:"gender" validate:"omitempty,max=16"`
	Height        *float64      `json:"height" validate:"omitempty,gte=0,lte=300"`
	Weight        *float64      `json:"weight" validate:"omitempty,gte=0,lte=500"`
	BloodPressure *string       `json:"blood_pressure" validate:"omitempty,max=32"`
	Personality   *string       `json:"personality" validate:"omitempty,max=64"`
	WorkIntensity *string       `json:"work_intensity" validate:"omitempty,max=32"`
	BirthDate     *string       `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Visit         *VisitRequest `json:"visit"`
}

type VisitRequest struct {
	MeasurementDate  *time.Time         `json:"measurement_date"`
	PulseWave        map[string]float64 `json:"pulse_wave"`
	StressCategories []string           `json:"stress_categories"`
	StressScore      *float64           `json:"stress_score"`
	StressLevel      *string            `json:"stress_level" validate:"omitempty,max=16"`
	Symptoms         []string           `json:"symptoms"`
	Drugs            []string           `json:"drugs"`
	Preferences      []string           `json:"preferences"`
	Allergies        []string           `json:"allergies"`
	SideEffects      []string           `json:"side_effects"`
	Memo             string             `json:"memo" validate:"max=2000"`
}

// Response DTOs

type VisitResponse struct {
	ID               uuid.UUID          `json:"id"`
	Seq              int                `json:"seq"`
	MeasurementDate  time.Time          `json:"measurement_date"`
	PulseWave        map[string]float64 `json:"pulse_wave"`
	StressCategories []string           `json:"stress_categories"`
	StressScore      *float64           `json:"stress_score,omitempty"`
	StressLevel      *string            `json:"stress_level,omitempty"`
	Symptoms         []string           `json:"symptoms"`
	Drugs            []string           `json:"drugs"`
	Preferences      []string           `json:"preferences"`
	Allergies        []string           `json:"allergies"`
	SideEffects      []string           `json:"side_effects"`
	Memo             string             `json:"memo,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

type PatientResponse struct {
	ID            uuid.UUID       `json:"id"`
	NationalID    string          `json:"national_id"`
	Name          *string         `json:"name,omitempty"`
	Phone         *string         `json:"phone,omitempty"`
	Gender        *string         `json:"gender,omitempty"`
	Age           *int            `json:"age,omitempty"`
	Height        *float64        `json:"height,omitempty"`
	Weight        *float64        `json:"weight,omitempty"`
	BMI           *float64        `json:"bmi,omitempty"`
	BloodPressure *string         `json:"blood_pressure,omitempty"`
	Personality   *string         `json:"personality,omitempty"`
	WorkIntensity *string         `json:"work_intensity,omitempty"`
	BirthDate     *string         `json:"birth_date,omitempty"`
	HistoryLength int             `json:"history_length"`
	Visits        []VisitResponse `json:"visits,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type RegistrationResponse struct {
	Patient       PatientResponse `json:"patient"`
	Created       bool            `json:"created"`
	HistoryLength int             `json:"history_length"`
}

type PatientListResponse struct {
	Patients []PatientResponse `json:"patients"`
	Total    int               `json:"total"`
}

type VisitListResponse struct {
	Visits []VisitResponse `json:"visits"`
	Total  int             `json:"total"`
}
