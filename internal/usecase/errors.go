package usecase

import (
	"errors"
	"fmt"

	"clinic-frontdesk/internal/domain/entity"
)

var (
	ErrInvalidSlot             = errors.New("invalid slot")
	ErrSlotTaken               = errors.New("slot already taken")
	ErrTransientConflict       = errors.New("identity is being registered concurrently, retry later")
	ErrSlotNotFound            = errors.New("appointment not found")
	ErrPatientNotFound         = errors.New("patient not found")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrInvalidNationalID       = errors.New("national id is required")
)

// InvalidSlotError reports why a requested (date, time) is not bookable.
type InvalidSlotError struct {
	Date   string
	Time   string
	Reason string
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("invalid slot %s %s: %s", e.Date, e.Time, e.Reason)
}

func (e *InvalidSlotError) Is(target error) bool {
	return target == ErrInvalidSlot
}

// SlotTakenError carries the active occupant when it could be read back.
type SlotTakenError struct {
	Date     string
	Time     string
	Existing *entity.AppointmentSlot
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot %s %s already taken", e.Date, e.Time)
}

func (e *SlotTakenError) Is(target error) bool {
	return target == ErrSlotTaken
}
