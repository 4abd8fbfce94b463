package calendar

import (
	"time"

	"github.com/Leganyst/fitness-booking/internal/model"
)

const (
	// Минимальный запас времени до начала занятия для новой брони.
	MinBookingLeadTime = time.Hour
	// Сколько активных броней на будущие занятия может держать один клиент.
	MaxUpcomingBookings = 3
)

// BookingCheck: всё, что нужно для решения о допустимости брони.
// Class == nil означает, что занятие не найдено.
type BookingCheck struct {
	Class *model.FitnessClass
	// Есть ли у клиента неотменённая бронь на это занятие.
	HasActiveBooking bool
	// Неотменённые брони клиента на занятия, которые начнутся позже now.
	UpcomingBookings int64
}

// ValidateBooking проверяет правила по порядку и возвращает первый отказ.
// Ничего не пишет и не меняет. nil означает, что бронь допустима.
func ValidateBooking(in BookingCheck, now time.Time) *Rejection {
	c := in.Class
	if c == nil {
		return Reject(ReasonClassNotFound, "class not found")
	}

	if c.AvailableSlots <= 0 {
		return Reject(ReasonNoSlots, "no slots available for class %q", c.Name)
	}

	if c.StartTime.Before(now) {
		return Reject(ReasonAlreadyStarted, "class %q has already started", c.Name)
	}

	if c.StartTime.Sub(now) < MinBookingLeadTime {
		return Reject(ReasonTooLate, "bookings close %s before the class starts", MinBookingLeadTime)
	}

	if in.HasActiveBooking {
		return Reject(ReasonDuplicateBooking, "client already has a booking for class %q", c.Name)
	}

	if in.UpcomingBookings >= MaxUpcomingBookings {
		return Reject(ReasonBookingLimitExceeded, "client already holds %d upcoming bookings (max %d)",
			in.UpcomingBookings, MaxUpcomingBookings)
	}

	return nil
}

// Bookable дополнительно к правилам проверяет, что занятие ещё принимает брони.
// Вызывается уже под блокировкой строки занятия.
func Bookable(c *model.FitnessClass) *Rejection {
	if c.Status != model.ClassStatusUpcoming || !c.IsActive {
		return Reject(ReasonInvalidStateTransition, "class %q is %s and does not accept bookings", c.Name, c.Status)
	}
	return nil
}
