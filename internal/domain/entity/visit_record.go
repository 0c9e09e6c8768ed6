package entity

import (
	"time"

	"github.com/google/uuid"
)

// Stress levels derived from the stress score.
const (
	StressLevelLow      = "low"
	StressLevelModerate = "moderate"
	StressLevelHigh     = "high"
)

// VisitRecord is one measurement/consultation event in a patient's history.
// Rows are insert-only; Seq is the 1-based append position within the patient.
type VisitRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_visit_records_patient_seq,priority:1" json:"patient_id"`
	Seq              int        `gorm:"not null;uniqueIndex:uq_visit_records_patient_seq,priority:2" json:"seq"`
	MeasurementDate  time.Time  `gorm:"not null;index" json:"measurement_date"`
	PulseWave        PulseWave  `gorm:"type:jsonb;not null" json:"pulse_wave"`
	StressCategories StringList `gorm:"type:jsonb" json:"stress_categories"`
	StressScore      *float64   `json:"stress_score"`
	StressLevel      *string    `gorm:"type:varchar(16)" json:"stress_level"`
	Symptoms         StringList `gorm:"type:jsonb" json:"symptoms"`
	Drugs            StringList `gorm:"type:jsonb" json:"drugs"`
	Preferences      StringList `gorm:"type:jsonb" json:"preferences"`
	Allergies        StringList `gorm:"type:jsonb" json:"allergies"`
	SideEffects      StringList `gorm:"type:jsonb" json:"side_effects"`
	Memo             string     `gorm:"type:text" json:"memo"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (VisitRecord) TableName() string {
	return "visit_records"
}

// StressLevelForScore maps a 0-100 stress score onto a level.
func StressLevelForScore(score float64) string {
	switch {
	case score >= 70:
		return StressLevelHigh
	case score >= 40:
		return StressLevelModerate
	default:
		return StressLevelLow
	}
}
