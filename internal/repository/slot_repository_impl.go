package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-frontdesk/internal/domain/entity"
	domainRepo "clinic-frontdesk/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const latestOccupantOrder = "(status <> 'cancelled') DESC, created_at DESC"

type slotRepository struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewSlotRepository(db *gorm.DB, log *logrus.Logger) domainRepo.SlotRepository {
	return &slotRepository{
		db:  db,
		log: log,
	}
}

// Reserve never checks for an existing occupant first; the partial unique
// index arbitrates between concurrent writers.
func (r *slotRepository) Reserve(ctx context.Context, slot *entity.AppointmentSlot) error {
	err := r.db.WithContext(ctx).Create(slot).Error
	if err != nil {
		if isDuplicateKeyError(err, constraintActiveSlot) {
			r.log.Debugf("Slot %s %s rejected by active-slot constraint", slot.DateKey(), slot.SlotTime)
			return domainRepo.ErrSlotConflict
		}
		return translateError(err)
	}
	return nil
}

func (r *slotRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AppointmentSlot, error) {
	var slot entity.AppointmentSlot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &slot, nil
}

// FindLatest prefers the active occupant over cancelled rows; created_at
// comes from each instance's clock and cannot order them on its own.
func (r *slotRepository) FindLatest(ctx context.Context, date time.Time, slotTime string) (*entity.AppointmentSlot, error) {
	var slot entity.AppointmentSlot
	err := r.db.WithContext(ctx).
		Where("slot_date = ? AND slot_time = ?", date, slotTime).
		Order(latestOccupantOrder).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &slot, nil
}

func (r *slotRepository) ListByDate(ctx context.Context, date time.Time) ([]entity.AppointmentSlot, error) {
	var slots []entity.AppointmentSlot
	err := r.db.WithContext(ctx).
		Where("slot_date = ? AND status != ?", date, entity.SlotStatusCancelled).
		Order("slot_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.attachPatients(ctx, slots)
}

func (r *slotRepository) ListByPatient(ctx context.Context, patientRef uuid.UUID, from time.Time) ([]entity.AppointmentSlot, error) {
	var slots []entity.AppointmentSlot
	err := r.db.WithContext(ctx).
		Where("patient_ref = ? AND slot_date >= ? AND status != ?", patientRef, from, entity.SlotStatusCancelled).
		Order("slot_date ASC, slot_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, translateError(err)
	}
	return slots, nil
}

func (r *slotRepository) ListActiveFrom(ctx context.Context, from time.Time, limit, offset int) ([]entity.AppointmentSlot, error) {
	var slots []entity.AppointmentSlot
	err := r.db.WithContext(ctx).
		Where("slot_date >= ? AND status != ?", from, entity.SlotStatusCancelled).
		Order("slot_date ASC, slot_time ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&slots).Error
	if err != nil {
		return nil, translateError(err)
	}
	return slots, nil
}

// SearchByPatient returns slots whose patient name or phone matches term,
// with the patient attached.
func (r *slotRepository) SearchByPatient(ctx context.Context, term string) ([]entity.AppointmentSlot, error) {
	var slots []entity.AppointmentSlot
	pattern := "%" + escapeLike(term) + "%"

	err := r.db.WithContext(ctx).
		Joins("JOIN patient_identities ON patient_identities.id = appointment_slots.patient_ref").
		Where("patient_identities.name ILIKE ? OR patient_identities.phone ILIKE ?", pattern, pattern).
		Order("appointment_slots.slot_date ASC, appointment_slots.slot_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.attachPatients(ctx, slots)
}

// attachPatients loads the referenced identities in one query. Slots whose
// patient has been deleted keep a nil Patient.
func (r *slotRepository) attachPatients(ctx context.Context, slots []entity.AppointmentSlot) ([]entity.AppointmentSlot, error) {
	if len(slots) == 0 {
		return slots, nil
	}

	refs := make([]uuid.UUID, 0, len(slots))
	for _, s := range slots {
		refs = append(refs, s.PatientRef)
	}

	var patients []entity.PatientIdentity
	if err := r.db.WithContext(ctx).Where("id IN ?", refs).Find(&patients).Error; err != nil {
		return nil, translateError(err)
	}

	byID := make(map[uuid.UUID]*entity.PatientIdentity, len(patients))
	for i := range patients {
		byID[patients[i].ID] = &patients[i]
	}
	for i := range slots {
		slots[i].Patient = byID[slots[i].PatientRef]
	}
	return slots, nil
}

// UpdateStatus is a conditional update so two concurrent transitions cannot
// both succeed.
func (r *slotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []entity.SlotStatus, next entity.SlotStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.AppointmentSlot{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     next,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, translateError(result.Error)
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
