package service

import (
	"fmt"
	"time"

	"clinic-frontdesk/config"
	"clinic-frontdesk/internal/domain/entity"
)

// Reasons a requested slot is rejected.
const (
	ReasonBadFormat    = "bad format"
	ReasonOutsideHours = "outside business hours"
	ReasonOffGrid      = "off-grid time"
)

// SlotVerdict is the outcome of an availability rule check. Date and Time are
// only meaningful when Legal is true.
type SlotVerdict struct {
	Legal  bool
	Reason string
	Date   time.Time
	Time   string
}

// AvailabilityCalculator decides whether a (date, time) is a bookable slot
// under the clinic's business hours and slot granularity. It never touches
// storage.
type AvailabilityCalculator struct {
	openMinutes  int
	closeMinutes int
	granularity  int
	location     *time.Location
}

func NewAvailabilityCalculator(cfg config.ClinicConfig) (*AvailabilityCalculator, error) {
	open, ok := ParseClock(cfg.OpenTime)
	if !ok {
		return nil, fmt.Errorf("invalid clinic open time %q", cfg.OpenTime)
	}
	closing, ok := ParseClock(cfg.CloseTime)
	if !ok {
		return nil, fmt.Errorf("invalid clinic close time %q", cfg.CloseTime)
	}
	if closing < open {
		return nil, fmt.Errorf("clinic close time %s is before open time %s", cfg.CloseTime, cfg.OpenTime)
	}
	if cfg.SlotGranularityMinutes <= 0 {
		return nil, fmt.Errorf("slot granularity must be positive, got %d", cfg.SlotGranularityMinutes)
	}
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic time zone %q: %w", cfg.TimeZone, err)
	}

	return &AvailabilityCalculator{
		openMinutes:  open,
		closeMinutes: closing,
		granularity:  cfg.SlotGranularityMinutes,
		location:     location,
	}, nil
}

// Today returns the clinic-local calendar day of now as a UTC midnight, the
// form slot dates are stored in.
func (c *AvailabilityCalculator) Today(now time.Time) time.Time {
	y, m, d := now.In(c.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Check applies, in order: date format, HH:MM format, business hours
// (inclusive on both ends), then the slot grid.
func (c *AvailabilityCalculator) Check(date, slotTime string) SlotVerdict {
	day, err := time.Parse(entity.SlotDateLayout, date)
	if err != nil {
		return SlotVerdict{Reason: ReasonBadFormat}
	}

	minutes, ok := ParseClock(slotTime)
	if !ok {
		return SlotVerdict{Reason: ReasonBadFormat}
	}

	if minutes < c.openMinutes || minutes > c.closeMinutes {
		return SlotVerdict{Reason: ReasonOutsideHours}
	}

	if minutes%c.granularity != 0 {
		return SlotVerdict{Reason: ReasonOffGrid}
	}

	return SlotVerdict{
		Legal: true,
		Date:  day,
		Time:  slotTime,
	}
}

// Slots lists every legal time of day from open to close.
func (c *AvailabilityCalculator) Slots() []string {
	var times []string
	first := c.openMinutes
	if rem := first % c.granularity; rem != 0 {
		first += c.granularity - rem
	}
	for m := first; m <= c.closeMinutes; m += c.granularity {
		times = append(times, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return times
}

// ParseClock parses a strict two-digit HH:MM wall-clock time into minutes
// since midnight.
func ParseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}

	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	minutes := int(s[3]-'0')*10 + int(s[4]-'0')
	if hours > 23 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}
