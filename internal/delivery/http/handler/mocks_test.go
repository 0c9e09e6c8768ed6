package handler

import (
	"context"
	"errors"

	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/usecase"

	"github.com/google/uuid"
)

var errNotImplemented = errors.New("not implemented in mock")

// --- MockReservationUsecase ---
var _ usecase.ReservationUsecase = (*MockReservationUsecase)(nil)

type MockReservationUsecase struct {
	BookFunc          func(ctx context.Context, req *usecase.BookingRequest) (*usecase.BookingResult, error)
	CancelFunc        func(ctx context.Context, id uuid.UUID) error
	CompleteFunc      func(ctx context.Context, id uuid.UUID) (*entity.AppointmentSlot, error)
	AvailabilityFunc  func(ctx context.Context, date, slotTime string) (*usecase.AvailabilityResult, error)
	DayScheduleFunc   func(ctx context.Context, date string) ([]usecase.AvailabilityResult, error)
	ListByDateFunc    func(ctx context.Context, date string) ([]entity.AppointmentSlot, error)
	ListByPatientFunc func(ctx context.Context, patientRef uuid.UUID) ([]entity.AppointmentSlot, error)
	SearchFunc        func(ctx context.Context, term string) ([]entity.AppointmentSlot, error)
}

func (m *MockReservationUsecase) Book(ctx context.Context, req *usecase.BookingRequest) (*usecase.BookingResult, error) {
	if m.BookFunc != nil {
		return m.BookFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *MockReservationUsecase) Cancel(ctx context.Context, id uuid.UUID) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *MockReservationUsecase) Complete(ctx context.Context, id uuid.UUID) (*entity.AppointmentSlot, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *MockReservationUsecase) Availability(ctx context.Context, date, slotTime string) (*usecase.AvailabilityResult, error) {
	if m.AvailabilityFunc != nil {
		return m.AvailabilityFunc(ctx, date, slotTime)
	}
	return nil, errNotImplemented
}

func (m *MockReservationUsecase) DaySchedule(ctx context.Context, date string) ([]usecase.AvailabilityResult, error) {
	if m.DayScheduleFunc != nil {
		return m.DayScheduleFunc(ctx, date)
	}
	return nil, errNotImplemented
}

func (m *MockReservationUsecase) ListByDate(ctx context.Context, date string) ([]entity.AppointmentSlot, error) {
	if m.ListByDateFunc != nil {
		return m.ListByDateFunc(ctx, date)
	}
	return nil, errNotImplemented
}

func (m *MockReservationUsecase) ListByPatient(ctx context.Context, patientRef uuid.UUID) ([]entity.AppointmentSlot, error) {
	if m.ListByPatientFunc != nil {
		return m.ListByPatientFunc(ctx, patientRef)
	}
	return nil, errNotImplemented
}

func (m *MockReservationUsecase) Search(ctx context.Context, term string) ([]entity.AppointmentSlot, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, term)
	}
	return nil, errNotImplemented
}

// --- MockIdentityUsecase ---
var _ usecase.IdentityUsecase = (*MockIdentityUsecase)(nil)

type MockIdentityUsecase struct {
	RegisterOrUpdateFunc func(ctx context.Context, req *usecase.RegistrationRequest) (*usecase.IdentityResult, error)
	GetByNationalIDFunc  func(ctx context.Context, nationalID string) (*entity.PatientIdentity, error)
	HistoryFunc          func(ctx context.Context, nationalID string) ([]entity.VisitRecord, error)
	LatestVisitFunc      func(ctx context.Context, nationalID string) (*entity.VisitRecord, error)
	SearchFunc           func(ctx context.Context, term string) ([]entity.PatientIdentity, error)
	DeleteFunc           func(ctx context.Context, nationalID string) error
}

func (m *MockIdentityUsecase) RegisterOrUpdate(ctx context.Context, req *usecase.RegistrationRequest) (*usecase.IdentityResult, error) {
	if m.RegisterOrUpdateFunc != nil {
		return m.RegisterOrUpdateFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *MockIdentityUsecase) GetByNationalID(ctx context.Context, nationalID string) (*entity.PatientIdentity, error) {
	if m.GetByNationalIDFunc != nil {
		return m.GetByNationalIDFunc(ctx, nationalID)
	}
	return nil, errNotImplemented
}

func (m *MockIdentityUsecase) History(ctx context.Context, nationalID string) ([]entity.VisitRecord, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, nationalID)
	}
	return nil, errNotImplemented
}

func (m *MockIdentityUsecase) LatestVisit(ctx context.Context, nationalID string) (*entity.VisitRecord, error) {
	if m.LatestVisitFunc != nil {
		return m.LatestVisitFunc(ctx, nationalID)
	}
	return nil, errNotImplemented
}

func (m *MockIdentityUsecase) Search(ctx context.Context, term string) ([]entity.PatientIdentity, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, term)
	}
	return nil, errNotImplemented
}

func (m *MockIdentityUsecase) Delete(ctx context.Context, nationalID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, nationalID)
	}
	return errNotImplemented
}
