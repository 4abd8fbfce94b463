package calendar

import (
	"errors"
	"fmt"
)

// Kind: категория отказа, по ней транспорт выбирает код ответа.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindBusinessRule
)

// Reason: стабильный машинный код отказа.
type Reason string

const (
	ReasonClassNotFound          Reason = "CLASS_NOT_FOUND"
	ReasonBookingNotFound        Reason = "BOOKING_NOT_FOUND"
	ReasonInvalidArgument        Reason = "INVALID_ARGUMENT"
	ReasonNoSlots                Reason = "NO_SLOTS"
	ReasonAlreadyStarted         Reason = "ALREADY_STARTED"
	ReasonTooLate                Reason = "TOO_LATE"
	ReasonDuplicateBooking       Reason = "DUPLICATE_BOOKING"
	ReasonBookingLimitExceeded   Reason = "BOOKING_LIMIT_EXCEEDED"
	ReasonInvalidStateTransition Reason = "INVALID_STATE_TRANSITION"
	ReasonCapacityBelowBookings  Reason = "CAPACITY_BELOW_BOOKINGS"
)

// Kind возвращает категорию для кода отказа.
func (r Reason) Kind() Kind {
	switch r {
	case ReasonClassNotFound, ReasonBookingNotFound:
		return KindNotFound
	case ReasonInvalidArgument:
		return KindValidation
	default:
		return KindBusinessRule
	}
}

// Rejection: ожидаемый отказ бизнес-правила: код плюс текст для человека.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

func (r *Rejection) Kind() Kind {
	return r.Reason.Kind()
}

// Is позволяет сравнивать отказы по коду через errors.Is.
func (r *Rejection) Is(target error) bool {
	var other *Rejection
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == r.Reason
}

func Reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Rejection {
	return Reject(ReasonInvalidArgument, format, args...)
}

// AsRejection достаёт отказ из цепочки ошибок.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// ReasonOf возвращает код отказа или пустую строку, если err не отказ.
func ReasonOf(err error) Reason {
	if rej, ok := AsRejection(err); ok {
		return rej.Reason
	}
	return ""
}
