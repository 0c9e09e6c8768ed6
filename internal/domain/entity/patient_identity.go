package entity

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PatientIdentity is the durable patient record keyed by national identifier.
// NationalID is immutable once the row exists.
type PatientIdentity struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	NationalID    string     `gorm:"type:varchar(32);not null;uniqueIndex:uq_patient_identities_national_id" json:"national_id"`
	Name          *string    `gorm:"type:varchar(100);index" json:"name"`
	Phone         *string    `gorm:"type:varchar(32);index" json:"phone"`
	Gender        *string    `gorm:"type:varchar(16)" json:"gender"`
	Height        *float64   `json:"height"`
	Weight        *float64   `json:"weight"`
	BMI           *float64   `gorm:"column:bmi" json:"bmi"`
	BloodPressure *string    `gorm:"type:varchar(32)" json:"blood_pressure"`
	Personality   *string    `gorm:"type:varchar(64)" json:"personality"`
	WorkIntensity *string    `gorm:"type:varchar(32)" json:"work_intensity"`
	BirthDate     *time.Time `gorm:"type:date" json:"birth_date"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Visits holds records in append order. Records with a zero ID have not
	// been persisted yet.
	Visits []VisitRecord `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"visits,omitempty"`

	// HistoryLength counts persisted and pending visits even when Visits is
	// not loaded.
	HistoryLength int `gorm:"-" json:"history_length"`
}

func (PatientIdentity) TableName() string {
	return "patient_identities"
}

// IdentityAttributes carries a partial update. Nil fields leave the stored
// value untouched.
type IdentityAttributes struct {
	Name          *string
	Phone         *string
	Gender        *string
	Height        *float64
	Weight        *float64
	BloodPressure *string
	Personality   *string
	WorkIntensity *string
	BirthDate     *time.Time
}

// NewPatientIdentity builds an unsaved identity from the first registration.
func NewPatientIdentity(nationalID string, attrs IdentityAttributes) *PatientIdentity {
	p := &PatientIdentity{NationalID: nationalID}
	p.Merge(attrs)
	return p
}

// Merge applies the overwrite-if-non-nil rule and recomputes BMI.
func (p *PatientIdentity) Merge(attrs IdentityAttributes) {
	overwrite(&p.Name, attrs.Name)
	overwrite(&p.Phone, attrs.Phone)
	overwrite(&p.Gender, attrs.Gender)
	overwrite(&p.Height, attrs.Height)
	overwrite(&p.Weight, attrs.Weight)
	overwrite(&p.BloodPressure, attrs.BloodPressure)
	overwrite(&p.Personality, attrs.Personality)
	overwrite(&p.WorkIntensity, attrs.WorkIntensity)
	overwrite(&p.BirthDate, attrs.BirthDate)
	p.RecomputeBMI()
}

// RecomputeBMI sets BMI to weight(kg) / height(m)^2 rounded to one decimal,
// or nil when either input is missing.
func (p *PatientIdentity) RecomputeBMI() {
	p.BMI = ComputeBMI(p.Height, p.Weight)
}

// ComputeBMI expects height in centimetres and weight in kilograms.
func ComputeBMI(heightCm, weightKg *float64) *float64 {
	if heightCm == nil || weightKg == nil || *heightCm <= 0 || *weightKg <= 0 {
		return nil
	}

	meters := decimal.NewFromFloat(*heightCm).Div(decimal.NewFromInt(100))
	bmi, _ := decimal.NewFromFloat(*weightKg).Div(meters.Mul(meters)).Round(1).Float64()
	return &bmi
}

// Age derives the patient's age from a resident-registration style national
// ID (YYMMDD-Gxxxxxx). The gender digit selects the century when present.
// Returns nil when the ID does not start with a parsable year.
func (p *PatientIdentity) Age(now time.Time) *int {
	if p.BirthDate != nil {
		age := yearsBetween(*p.BirthDate, now)
		return &age
	}

	digits := make([]byte, 0, len(p.NationalID))
	for i := 0; i < len(p.NationalID); i++ {
		if c := p.NationalID[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < 2 {
		return nil
	}

	yy, err := strconv.Atoi(string(digits[:2]))
	if err != nil {
		return nil
	}

	var year int
	if len(digits) >= 7 {
		switch digits[6] {
		case '1', '2', '5', '6':
			year = 1900 + yy
		case '3', '4', '7', '8':
			year = 2000 + yy
		case '9', '0':
			year = 1800 + yy
		}
	}
	if year == 0 {
		year = 2000 + yy
		if year > now.Year() {
			year -= 100
		}
	}

	if len(digits) >= 6 {
		month, errM := strconv.Atoi(string(digits[2:4]))
		day, errD := strconv.Atoi(string(digits[4:6]))
		if errM == nil && errD == nil && month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			age := yearsBetween(time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), now)
			return &age
		}
	}

	age := now.Year() - year
	return &age
}

// PendingVisits returns the records that have not been persisted yet.
func (p *PatientIdentity) PendingVisits() []VisitRecord {
	for i := range p.Visits {
		if p.Visits[i].ID == uuid.Nil {
			return p.Visits[i:]
		}
	}
	return nil
}

func overwrite[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}
