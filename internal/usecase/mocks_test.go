package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// --- memSlotRepository ---
var _ repository.SlotRepository = (*memSlotRepository)(nil)

// memSlotRepository keeps slots in memory and enforces the
// one-active-slot-per-(date, time) rule like the partial unique index.
type memSlotRepository struct {
	mu    sync.Mutex
	slots []entity.AppointmentSlot
	clock time.Time

	// ReserveHook runs before the constraint check. Returning a non-nil
	// error short-circuits Reserve.
	ReserveHook func(slot *entity.AppointmentSlot) error

	ReserveCallCount int32
}

func newMemSlotRepository() *memSlotRepository {
	return &memSlotRepository{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memSlotRepository) Reserve(ctx context.Context, slot *entity.AppointmentSlot) error {
	atomic.AddInt32(&m.ReserveCallCount, 1)
	if m.ReserveHook != nil {
		if err := m.ReserveHook(slot); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.slots {
		if s.SlotDate.Equal(slot.SlotDate) && s.SlotTime == slot.SlotTime && s.IsActive() {
			return repository.ErrSlotConflict
		}
	}

	m.clock = m.clock.Add(time.Second)
	slot.ID = uuid.New()
	slot.CreatedAt = m.clock
	slot.UpdatedAt = m.clock
	m.slots = append(m.slots, *slot)
	return nil
}

func (m *memSlotRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.slots {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memSlotRepository) FindLatest(ctx context.Context, date time.Time, slotTime string) (*entity.AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *entity.AppointmentSlot
	for i := range m.slots {
		s := m.slots[i]
		if !s.SlotDate.Equal(date) || s.SlotTime != slotTime {
			continue
		}
		switch {
		case latest == nil:
			latest = &s
		case s.IsActive() != latest.IsActive():
			if s.IsActive() {
				latest = &s
			}
		case s.CreatedAt.After(latest.CreatedAt):
			latest = &s
		}
	}
	return latest, nil
}

func (m *memSlotRepository) ListByDate(ctx context.Context, date time.Time) ([]entity.AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slots := []entity.AppointmentSlot{}
	for _, s := range m.slots {
		if s.SlotDate.Equal(date) && s.IsActive() {
			slots = append(slots, s)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotTime < slots[j].SlotTime })
	return slots, nil
}

func (m *memSlotRepository) ListByPatient(ctx context.Context, patientRef uuid.UUID, from time.Time) ([]entity.AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slots := []entity.AppointmentSlot{}
	for _, s := range m.slots {
		if s.PatientRef == patientRef && !s.SlotDate.Before(from) && s.IsActive() {
			slots = append(slots, s)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].SlotDate.Equal(slots[j].SlotDate) {
			return slots[i].SlotDate.Before(slots[j].SlotDate)
		}
		return slots[i].SlotTime < slots[j].SlotTime
	})
	return slots, nil
}

func (m *memSlotRepository) ListActiveFrom(ctx context.Context, from time.Time, limit, offset int) ([]entity.AppointmentSlot, error) {
	return nil, nil
}

func (m *memSlotRepository) SearchByPatient(ctx context.Context, term string) ([]entity.AppointmentSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slots := []entity.AppointmentSlot{}
	for _, s := range m.slots {
		if strings.Contains(s.Memo, term) {
			slots = append(slots, s)
		}
	}
	return slots, nil
}

func (m *memSlotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []entity.SlotStatus, next entity.SlotStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		if m.slots[i].ID != id {
			continue
		}
		for _, status := range from {
			if m.slots[i].Status == status {
				m.slots[i].Status = next
				return 1, nil
			}
		}
		return 0, nil
	}
	return 0, nil
}

func (m *memSlotRepository) active() []entity.AppointmentSlot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.AppointmentSlot
	for _, s := range m.slots {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// --- memIdentityRepository ---
var _ repository.IdentityRepository = (*memIdentityRepository)(nil)

// memIdentityRepository emulates the national_id and (patient_id, seq)
// unique constraints. Modify holds the store lock for the whole callback,
// standing in for the row lock.
type memIdentityRepository struct {
	mu         sync.Mutex
	identities map[string]*entity.PatientIdentity

	// CreateFunc and ModifyFunc override the in-memory behavior when set.
	CreateFunc func(ctx context.Context, identity *entity.PatientIdentity) error
	ModifyFunc func(ctx context.Context, nationalID string, fn func(identity *entity.PatientIdentity) error) (*entity.PatientIdentity, error)

	CreateCallCount int32
	ModifyCallCount int32
}

func newMemIdentityRepository() *memIdentityRepository {
	return &memIdentityRepository{identities: make(map[string]*entity.PatientIdentity)}
}

func (m *memIdentityRepository) Create(ctx context.Context, identity *entity.PatientIdentity) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, identity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.identities[identity.NationalID]; exists {
		return repository.ErrIdentityExists
	}

	identity.ID = uuid.New()
	stored := *identity
	stored.Visits = nil
	if err := m.persistPending(&stored, identity); err != nil {
		return err
	}
	m.identities[identity.NationalID] = &stored
	return nil
}

func (m *memIdentityRepository) Modify(ctx context.Context, nationalID string, fn func(identity *entity.PatientIdentity) error) (*entity.PatientIdentity, error) {
	atomic.AddInt32(&m.ModifyCallCount, 1)
	if m.ModifyFunc != nil {
		return m.ModifyFunc(ctx, nationalID, fn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.identities[nationalID]
	if !ok {
		return nil, nil
	}

	working := *stored
	working.Visits = nil
	working.HistoryLength = len(stored.Visits)
	if err := fn(&working); err != nil {
		return nil, err
	}

	visits := stored.Visits
	updated := working
	updated.Visits = visits
	if err := m.persistPending(&updated, &working); err != nil {
		return nil, err
	}
	updated.HistoryLength = len(updated.Visits)
	m.identities[nationalID] = &updated
	return &working, nil
}

// persistPending copies the unsaved visits of src into dst, assigning IDs
// and rejecting duplicate sequence numbers.
func (m *memIdentityRepository) persistPending(dst *entity.PatientIdentity, src *entity.PatientIdentity) error {
	seen := make(map[int]struct{}, len(dst.Visits))
	for _, v := range dst.Visits {
		seen[v.Seq] = struct{}{}
	}

	pending := src.PendingVisits()
	for i := range pending {
		if _, dup := seen[pending[i].Seq]; dup {
			return fmt.Errorf("duplicate visit seq %d", pending[i].Seq)
		}
		seen[pending[i].Seq] = struct{}{}
		pending[i].ID = uuid.New()
		pending[i].PatientID = dst.ID
		dst.Visits = append(dst.Visits, pending[i])
	}
	return nil
}

func (m *memIdentityRepository) FindByNationalID(ctx context.Context, nationalID string, withVisits bool) (*entity.PatientIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.identities[nationalID]
	if !ok {
		return nil, nil
	}
	found := *stored
	found.Visits = append([]entity.VisitRecord(nil), stored.Visits...)
	found.HistoryLength = len(found.Visits)
	if !withVisits {
		found.Visits = nil
	}
	return &found, nil
}

func (m *memIdentityRepository) Search(ctx context.Context, term string, limit int) ([]entity.PatientIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []entity.PatientIdentity{}
	for _, p := range m.identities {
		if (p.Name != nil && strings.Contains(*p.Name, term)) || (p.Phone != nil && strings.Contains(*p.Phone, term)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memIdentityRepository) Delete(ctx context.Context, nationalID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[nationalID]; !ok {
		return 0, nil
	}
	delete(m.identities, nationalID)
	return 1, nil
}

func (m *memIdentityRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.identities)
}

// --- fakeSlotCache ---
var _ SlotCache = (*fakeSlotCache)(nil)

type fakeSlotCache struct {
	mu       sync.Mutex
	dates    map[string]map[string]uuid.UUID
	released []uuid.UUID

	LookupCallCount int32
}

func newFakeSlotCache() *fakeSlotCache {
	return &fakeSlotCache{dates: make(map[string]map[string]uuid.UUID)}
}

func (c *fakeSlotCache) Lookup(ctx context.Context, date time.Time, slotTime string) (bool, bool, error) {
	atomic.AddInt32(&c.LookupCallCount, 1)
	c.mu.Lock()
	defer c.mu.Unlock()

	day, ok := c.dates[date.Format(entity.SlotDateLayout)]
	if !ok {
		return false, false, nil
	}
	_, occupied := day[slotTime]
	return occupied, true, nil
}

func (c *fakeSlotCache) MarkOccupied(ctx context.Context, slot *entity.AppointmentSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if day, ok := c.dates[slot.DateKey()]; ok {
		day[slot.SlotTime] = slot.ID
	}
	return nil
}

func (c *fakeSlotCache) Release(ctx context.Context, slot *entity.AppointmentSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.released = append(c.released, slot.ID)
	if day, ok := c.dates[slot.DateKey()]; ok && day[slot.SlotTime] == slot.ID {
		delete(day, slot.SlotTime)
	}
	return nil
}

func (c *fakeSlotCache) WarmDate(ctx context.Context, date time.Time, slots []entity.AppointmentSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := make(map[string]uuid.UUID, len(slots))
	for _, s := range slots {
		day[s.SlotTime] = s.ID
	}
	c.dates[date.Format(entity.SlotDateLayout)] = day
	return nil
}
