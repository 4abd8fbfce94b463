// Package transporttest содержит подставной сервис для тестов транспорта.
package transporttest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/service"
)

// Service отдаёт заранее заданные ответы и запоминает последний вызов.
// Реализует transport.Bookings и transport.Classes.
type Service struct {
	mu sync.Mutex

	Class    *model.FitnessClass
	Page     calendar.Page[service.ClassView]
	Booking  *model.Booking
	Bookings []model.Booking
	Events   []model.Event
	Err      error

	Calls         []string
	LastID        uuid.UUID
	LastBookingID uuid.UUID
	LastEmail     string
	LastBooking   service.CreateBookingInput
	LastList      service.ListClassesInput
	LastCreate    service.CreateClassInput
	LastUpdate    service.UpdateClassInput
}

func (s *Service) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, call)
	return s.Err
}

// Called сообщает, вызывался ли метод.
func (s *Service) Called(call string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Calls {
		if c == call {
			return true
		}
	}
	return false
}

func (s *Service) CreateBooking(_ context.Context, in service.CreateBookingInput) (*model.Booking, error) {
	s.LastBooking = in
	if err := s.record("CreateBooking"); err != nil {
		return nil, err
	}
	return s.Booking, nil
}

func (s *Service) ListBookingsByEmail(_ context.Context, email string) ([]model.Booking, error) {
	s.LastEmail = email
	if err := s.record("ListBookingsByEmail"); err != nil {
		return nil, err
	}
	return s.Bookings, nil
}

func (s *Service) CheckIn(_ context.Context, classID, bookingID uuid.UUID) (*model.Booking, error) {
	s.LastID, s.LastBookingID = classID, bookingID
	if err := s.record("CheckIn"); err != nil {
		return nil, err
	}
	return s.Booking, nil
}

func (s *Service) ListClasses(_ context.Context, in service.ListClassesInput) (calendar.Page[service.ClassView], error) {
	s.LastList = in
	if err := s.record("ListClasses"); err != nil {
		return calendar.Page[service.ClassView]{}, err
	}
	return s.Page, nil
}

func (s *Service) GetClass(_ context.Context, id uuid.UUID) (*model.FitnessClass, error) {
	s.LastID = id
	if err := s.record("GetClass"); err != nil {
		return nil, err
	}
	return s.Class, nil
}

func (s *Service) CreateClass(_ context.Context, in service.CreateClassInput) (*model.FitnessClass, error) {
	s.LastCreate = in
	if err := s.record("CreateClass"); err != nil {
		return nil, err
	}
	return s.Class, nil
}

func (s *Service) UpdateClass(_ context.Context, id uuid.UUID, in service.UpdateClassInput) (*model.FitnessClass, error) {
	s.LastID, s.LastUpdate = id, in
	if err := s.record("UpdateClass"); err != nil {
		return nil, err
	}
	return s.Class, nil
}

func (s *Service) CancelClass(_ context.Context, id uuid.UUID) (*model.FitnessClass, error) {
	s.LastID = id
	if err := s.record("CancelClass"); err != nil {
		return nil, err
	}
	return s.Class, nil
}

func (s *Service) AuditTrail(_ context.Context, id uuid.UUID) ([]model.Event, error) {
	s.LastID = id
	if err := s.record("AuditTrail"); err != nil {
		return nil, err
	}
	return s.Events, nil
}
