package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/domain/repository"
	"clinic-frontdesk/internal/service"
	"clinic-frontdesk/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const cacheSyncTimeout = 5 * time.Second

// SlotCache is the advisory occupancy cache consulted by Availability.
// A nil SlotCache disables caching.
type SlotCache interface {
	Lookup(ctx context.Context, date time.Time, slotTime string) (occupied bool, known bool, err error)
	MarkOccupied(ctx context.Context, slot *entity.AppointmentSlot) error
	Release(ctx context.Context, slot *entity.AppointmentSlot) error
	WarmDate(ctx context.Context, date time.Time, slots []entity.AppointmentSlot) error
}

type BookingRequest struct {
	Date             string
	Time             string
	PatientRef       uuid.UUID
	Symptoms         []string
	Medications      []string
	StressLevel      *string
	StressCategories []string
	Memo             string
}

type BookingResult struct {
	Slot *entity.AppointmentSlot
	// Retried is set when the first insert hit a conflict left by a
	// cancelled occupant and the reservation succeeded on the second try.
	Retried bool
}

type AvailabilityResult struct {
	Date      string
	Time      string
	Available bool
}

type ReservationUsecase interface {
	Book(ctx context.Context, req *BookingRequest) (*BookingResult, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID) (*entity.AppointmentSlot, error)
	Availability(ctx context.Context, date, slotTime string) (*AvailabilityResult, error)
	DaySchedule(ctx context.Context, date string) ([]AvailabilityResult, error)
	ListByDate(ctx context.Context, date string) ([]entity.AppointmentSlot, error)
	ListByPatient(ctx context.Context, patientRef uuid.UUID) ([]entity.AppointmentSlot, error)
	Search(ctx context.Context, term string) ([]entity.AppointmentSlot, error)
}

type reservationUsecase struct {
	log        *logrus.Logger
	slotRepo   repository.SlotRepository
	calculator *service.AvailabilityCalculator
	cache      SlotCache
	metrics    *metrics.Collector
	now        func() time.Time
}

func NewReservationUsecase(
	log *logrus.Logger,
	slotRepo repository.SlotRepository,
	calculator *service.AvailabilityCalculator,
	cache SlotCache,
	collector *metrics.Collector,
) ReservationUsecase {
	return &reservationUsecase{
		log:        log,
		slotRepo:   slotRepo,
		calculator: calculator,
		cache:      cache,
		metrics:    collector,
		now:        time.Now,
	}
}

// Book reserves a slot for the patient.
//
// Flow:
// 1. Check business hours and grid; illegal slots never reach storage
// 2. Insert; the active-slot unique index decides the winner
// 3. On conflict read the newest row for the key:
//   - active occupant -> SlotTakenError
//   - cancelled or gone -> the conflict was stale, insert once more
func (u *reservationUsecase) Book(ctx context.Context, req *BookingRequest) (*BookingResult, error) {
	verdict := u.calculator.Check(req.Date, req.Time)
	if !verdict.Legal {
		u.metrics.Booking(metrics.OutcomeInvalid)
		return nil, &InvalidSlotError{Date: req.Date, Time: req.Time, Reason: verdict.Reason}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slot := newSlot(verdict, req)
	err := u.slotRepo.Reserve(ctx, slot)
	if err == nil {
		return u.booked(slot, false), nil
	}
	if !errors.Is(err, repository.ErrSlotConflict) {
		u.log.Errorf("Failed to reserve slot %s %s: %+v", req.Date, req.Time, err)
		return nil, err
	}

	occupant, err := u.slotRepo.FindLatest(ctx, verdict.Date, verdict.Time)
	if err != nil {
		u.log.Warnf("Failed to read occupant of slot %s %s: %+v", req.Date, req.Time, err)
		return nil, err
	}
	if occupant != nil && occupant.IsActive() {
		u.log.Infof("Slot %s %s already taken by %s", req.Date, req.Time, occupant.ID)
		u.metrics.Booking(metrics.OutcomeTaken)
		return nil, &SlotTakenError{Date: req.Date, Time: req.Time, Existing: occupant}
	}

	u.log.Infof("Stale conflict on slot %s %s, retrying once", req.Date, req.Time)
	u.metrics.Booking(metrics.OutcomeRetried)

	slot = newSlot(verdict, req)
	err = u.slotRepo.Reserve(ctx, slot)
	if err == nil {
		return u.booked(slot, true), nil
	}
	if !errors.Is(err, repository.ErrSlotConflict) {
		u.log.Errorf("Failed to reserve slot %s %s on retry: %+v", req.Date, req.Time, err)
		return nil, err
	}

	occupant, lookupErr := u.slotRepo.FindLatest(ctx, verdict.Date, verdict.Time)
	if lookupErr != nil {
		u.log.Warnf("Failed to read occupant of slot %s %s: %+v", req.Date, req.Time, lookupErr)
		occupant = nil
	}
	u.metrics.Booking(metrics.OutcomeTaken)
	return nil, &SlotTakenError{Date: req.Date, Time: req.Time, Existing: occupant}
}

// Cancel releases the slot. Cancelling an already cancelled slot succeeds.
func (u *reservationUsecase) Cancel(ctx context.Context, id uuid.UUID) error {
	slot, err := u.transition(ctx, id, entity.SlotStatusCancelled)
	if err != nil {
		return err
	}
	if slot == nil {
		return nil
	}

	u.metrics.Cancellation()

	if u.cache != nil {
		syncCtx, cancel := context.WithTimeout(context.Background(), cacheSyncTimeout)
		defer cancel()
		if err := u.cache.Release(syncCtx, slot); err != nil {
			u.log.Warnf("Failed to release cached slot %s (non-fatal): %+v", id, err)
		}
	}

	u.log.Infof("Appointment cancelled: id=%s, slot=%s %s", id, slot.DateKey(), slot.SlotTime)
	return nil
}

// Complete marks a confirmed slot as attended. The slot stays occupied.
func (u *reservationUsecase) Complete(ctx context.Context, id uuid.UUID) (*entity.AppointmentSlot, error) {
	slot, err := u.transition(ctx, id, entity.SlotStatusCompleted)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return u.slotRepo.FindByID(ctx, id)
	}

	u.log.Infof("Appointment completed: id=%s", id)
	return slot, nil
}

// Availability is advisory: a true result does not guarantee Book succeeds.
func (u *reservationUsecase) Availability(ctx context.Context, date, slotTime string) (*AvailabilityResult, error) {
	verdict := u.calculator.Check(date, slotTime)
	if !verdict.Legal {
		return nil, &InvalidSlotError{Date: date, Time: slotTime, Reason: verdict.Reason}
	}

	result := &AvailabilityResult{Date: date, Time: slotTime}

	if u.cache != nil {
		occupied, known, err := u.cache.Lookup(ctx, verdict.Date, verdict.Time)
		if err != nil {
			u.log.Warnf("Slot cache lookup failed, falling back to database: %+v", err)
		} else if known {
			result.Available = !occupied
			return result, nil
		}
	}

	slots, err := u.slotRepo.ListByDate(ctx, verdict.Date)
	if err != nil {
		u.log.Warnf("Failed to list slots for %s: %+v", date, err)
		return nil, err
	}

	result.Available = true
	for _, s := range slots {
		if s.SlotTime == verdict.Time && s.IsActive() {
			result.Available = false
			break
		}
	}

	if u.cache != nil {
		if err := u.cache.WarmDate(ctx, verdict.Date, slots); err != nil {
			u.log.Warnf("Failed to warm slot cache for %s (non-fatal): %+v", date, err)
		}
	}

	return result, nil
}

// DaySchedule lists every grid slot of the day with its current occupancy.
func (u *reservationUsecase) DaySchedule(ctx context.Context, date string) ([]AvailabilityResult, error) {
	day, err := time.Parse(entity.SlotDateLayout, date)
	if err != nil {
		return nil, &InvalidSlotError{Date: date, Reason: service.ReasonBadFormat}
	}

	slots, err := u.slotRepo.ListByDate(ctx, day)
	if err != nil {
		u.log.Warnf("Failed to list slots for %s: %+v", date, err)
		return nil, err
	}

	occupied := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		if s.IsActive() {
			occupied[s.SlotTime] = struct{}{}
		}
	}

	grid := u.calculator.Slots()
	schedule := make([]AvailabilityResult, 0, len(grid))
	for _, slotTime := range grid {
		_, taken := occupied[slotTime]
		schedule = append(schedule, AvailabilityResult{Date: date, Time: slotTime, Available: !taken})
	}

	if u.cache != nil {
		if err := u.cache.WarmDate(ctx, day, slots); err != nil {
			u.log.Warnf("Failed to warm slot cache for %s (non-fatal): %+v", date, err)
		}
	}

	return schedule, nil
}

func (u *reservationUsecase) ListByDate(ctx context.Context, date string) ([]entity.AppointmentSlot, error) {
	day, err := time.Parse(entity.SlotDateLayout, date)
	if err != nil {
		return nil, &InvalidSlotError{Date: date, Reason: service.ReasonBadFormat}
	}

	slots, err := u.slotRepo.ListByDate(ctx, day)
	if err != nil {
		u.log.Warnf("Failed to list slots for %s: %+v", date, err)
		return nil, err
	}
	return slots, nil
}

// ListByPatient returns the patient's upcoming appointments from the
// clinic's today on, soonest first.
func (u *reservationUsecase) ListByPatient(ctx context.Context, patientRef uuid.UUID) ([]entity.AppointmentSlot, error) {
	from := u.calculator.Today(u.now())

	slots, err := u.slotRepo.ListByPatient(ctx, patientRef, from)
	if err != nil {
		u.log.Warnf("Failed to list appointments of patient %s: %+v", patientRef, err)
		return nil, err
	}
	return slots, nil
}

func (u *reservationUsecase) Search(ctx context.Context, term string) ([]entity.AppointmentSlot, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []entity.AppointmentSlot{}, nil
	}

	slots, err := u.slotRepo.SearchByPatient(ctx, term)
	if err != nil {
		u.log.Warnf("Failed to search appointments: %+v", err)
		return nil, err
	}
	return slots, nil
}

func (u *reservationUsecase) booked(slot *entity.AppointmentSlot, retried bool) *BookingResult {
	u.metrics.Booking(metrics.OutcomeBooked)

	if u.cache != nil {
		syncCtx, cancel := context.WithTimeout(context.Background(), cacheSyncTimeout)
		defer cancel()
		if err := u.cache.MarkOccupied(syncCtx, slot); err != nil {
			// Lookups fall back to the database until the next warm-up.
			u.log.Warnf("Failed to cache slot %s (non-fatal): %+v", slot.ID, err)
		}
	}

	u.log.Infof("Appointment booked: id=%s, slot=%s %s", slot.ID, slot.DateKey(), slot.SlotTime)
	return &BookingResult{Slot: slot, Retried: retried}
}

// transition moves the slot from confirmed to next. It returns (nil, nil) when
// the slot is already in next.
func (u *reservationUsecase) transition(ctx context.Context, id uuid.UUID, next entity.SlotStatus) (*entity.AppointmentSlot, error) {
	slot, err := u.slotRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if slot.Status == next {
		return nil, nil
	}
	if !slot.CanTransitionTo(next) {
		return nil, ErrInvalidStatusTransition
	}

	affected, err := u.slotRepo.UpdateStatus(ctx, id, []entity.SlotStatus{slot.Status}, next)
	if err != nil {
		u.log.Warnf("Failed to update appointment %s to %s: %+v", id, next, err)
		return nil, err
	}
	if affected == 0 {
		// Someone else moved it first.
		current, err := u.slotRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == next {
			return nil, nil
		}
		return nil, ErrInvalidStatusTransition
	}

	slot.Status = next
	return slot, nil
}

func newSlot(verdict service.SlotVerdict, req *BookingRequest) *entity.AppointmentSlot {
	return &entity.AppointmentSlot{
		SlotDate:         verdict.Date,
		SlotTime:         verdict.Time,
		PatientRef:       req.PatientRef,
		Symptoms:         entity.StringList(req.Symptoms),
		Medications:      entity.StringList(req.Medications),
		StressLevel:      req.StressLevel,
		StressCategories: entity.StringList(req.StressCategories),
		Memo:             req.Memo,
		Status:           entity.SlotStatusConfirmed,
	}
}
