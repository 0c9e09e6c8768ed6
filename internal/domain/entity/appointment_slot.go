package entity

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus represents the status of an appointment slot
type SlotStatus string

const (
	SlotStatusConfirmed SlotStatus = "confirmed"
	SlotStatusCancelled SlotStatus = "cancelled"
	SlotStatusCompleted SlotStatus = "completed"
)

const (
	SlotDateLayout = "2006-01-02"
	SlotTimeLayout = "15:04"
)

// AppointmentSlot is a confirmed booking of one (date, time) unit.
// At most one non-cancelled row may exist per (SlotDate, SlotTime); the
// partial unique index uq_appointment_slots_active enforces it.
type AppointmentSlot struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SlotDate         time.Time  `gorm:"type:date;not null;index" json:"slot_date"`
	SlotTime         string     `gorm:"type:varchar(5);not null" json:"slot_time"`
	PatientRef       uuid.UUID  `gorm:"type:uuid;not null;index" json:"patient_ref"`
	Symptoms         StringList `gorm:"type:jsonb" json:"symptoms"`
	Medications      StringList `gorm:"type:jsonb" json:"medications"`
	StressLevel      *string    `gorm:"type:varchar(16)" json:"stress_level"`
	StressCategories StringList `gorm:"type:jsonb" json:"stress_categories"`
	Memo             string     `gorm:"type:text" json:"memo"`
	Status           SlotStatus `gorm:"type:varchar(16);not null;default:'confirmed';index" json:"status"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Patient is populated by search queries only.
	Patient *PatientIdentity `gorm:"-" json:"patient,omitempty"`
}

func (AppointmentSlot) TableName() string {
	return "appointment_slots"
}

// DateKey returns the slot date as YYYY-MM-DD.
func (s *AppointmentSlot) DateKey() string {
	return s.SlotDate.Format(SlotDateLayout)
}

// IsActive checks if the slot still occupies its (date, time)
func (s *AppointmentSlot) IsActive() bool {
	return s.Status != SlotStatusCancelled
}

// CanTransitionTo reports whether status may move to next.
//
//	confirmed → cancelled
//	confirmed → completed
func (s *AppointmentSlot) CanTransitionTo(next SlotStatus) bool {
	allowed := map[SlotStatus][]SlotStatus{
		SlotStatusConfirmed: {SlotStatusCancelled, SlotStatusCompleted},
		SlotStatusCancelled: {},
		SlotStatusCompleted: {},
	}

	for _, s := range allowed[s.Status] {
		if s == next {
			return true
		}
	}
	return false
}
