package repository

import (
	"context"
	"time"

	"clinic-frontdesk/internal/domain/entity"

	"github.com/google/uuid"
)

// SlotRepository is the ledger of appointment slots. The storage layer owns
// the uniqueness of active (date, time) pairs.
type SlotRepository interface {
	// Reserve always attempts the insert. It returns ErrSlotConflict when an
	// active slot already holds the same (date, time).
	Reserve(ctx context.Context, slot *entity.AppointmentSlot) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.AppointmentSlot, error)

	// FindLatest returns the slot that holds (date, time), or else the most
	// recently created one in any status, or nil.
	FindLatest(ctx context.Context, date time.Time, slotTime string) (*entity.AppointmentSlot, error)

	// ListByDate returns the active slots of date with their patients attached.
	ListByDate(ctx context.Context, date time.Time) ([]entity.AppointmentSlot, error)

	// ListByPatient returns the patient's active slots dated from on, soonest
	// first.
	ListByPatient(ctx context.Context, patientRef uuid.UUID, from time.Time) ([]entity.AppointmentSlot, error)
	ListActiveFrom(ctx context.Context, from time.Time, limit, offset int) ([]entity.AppointmentSlot, error)
	SearchByPatient(ctx context.Context, term string) ([]entity.AppointmentSlot, error)

	// UpdateStatus moves a slot from one of the given statuses to next.
	// Returns the number of affected rows (0 when the slot is missing or not in
	// an allowed status).
	UpdateStatus(ctx context.Context, id uuid.UUID, from []entity.SlotStatus, next entity.SlotStatus) (int64, error)
}
