package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/service"
	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
)

// Bookings: операции с бронями, которые нужны обоим транспортам.
type Bookings interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	ListBookingsByEmail(ctx context.Context, email string) ([]model.Booking, error)
	CheckIn(ctx context.Context, classID, bookingID uuid.UUID) (*model.Booking, error)
}

// Classes: чтение расписания и администрирование занятий.
type Classes interface {
	ListClasses(ctx context.Context, in service.ListClassesInput) (calendar.Page[service.ClassView], error)
	GetClass(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error)
	CreateClass(ctx context.Context, in service.CreateClassInput) (*model.FitnessClass, error)
	UpdateClass(ctx context.Context, id uuid.UUID, in service.UpdateClassInput) (*model.FitnessClass, error)
	CancelClass(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error)
	AuditTrail(ctx context.Context, id uuid.UUID) ([]model.Event, error)
}

// Problem: ошибка в виде, который отдаётся клиенту.
type Problem struct {
	Kind    serverrors.Kind
	Reason  string
	Message string
}

const (
	ReasonTransient = "TRANSIENT_CONFLICT"
	ReasonInternal  = "INTERNAL"
)

// Describe раскладывает ошибку сервиса на категорию, код и текст.
// Внутренние ошибки наружу не раскрываются.
func Describe(err error) Problem {
	kind := serverrors.KindOf(err)
	switch kind {
	case serverrors.KindTransient:
		return Problem{Kind: kind, Reason: ReasonTransient, Message: serverrors.ErrTransient.Error()}
	case serverrors.KindInternal:
		return Problem{Kind: kind, Reason: ReasonInternal, Message: serverrors.ErrInternal.Error()}
	}
	rej, _ := calendar.AsRejection(err)
	return Problem{Kind: kind, Reason: string(rej.Reason), Message: rej.Error()}
}

// ParseID разбирает идентификатор из запроса; field попадает в текст отказа.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, calendar.Invalid("%s must be a valid uuid", field)
	}
	return id, nil
}

// Validate проверяет теги validate у запроса.
func Validate(req any) error {
	if rej := calendar.ValidateStruct(req); rej != nil {
		return rej
	}
	return nil
}
