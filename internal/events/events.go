package events

import (
	"context"
	"time"
)

// Ключи маршрутизации доменных событий.
const (
	KeyBookingCreated   = "booking.created"
	KeyBookingCheckedIn = "booking.checked_in"
	KeyClassCreated     = "class.created"
	KeyClassUpdated     = "class.updated"
	KeyClassCancelled   = "class.cancelled"
	KeyClassCompleted   = "class.completed"
)

// Publisher отправляет событие после фиксации транзакции.
// Ошибка публикации не откатывает уже сделанное изменение.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

type BookingCreated struct {
	BookingID   string    `json:"booking_id"`
	ClassID     string    `json:"class_id"`
	ClassName   string    `json:"class_name"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	StartTime   time.Time `json:"start_time"`
	SlotsLeft   int       `json:"slots_left"`
	BookedAt    time.Time `json:"booked_at"`
}

type BookingCheckedIn struct {
	BookingID   string `json:"booking_id"`
	ClassID     string `json:"class_id"`
	ClientEmail string `json:"client_email"`
}

type ClassChanged struct {
	ClassID        string    `json:"class_id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Capacity       int       `json:"capacity"`
	AvailableSlots int       `json:"available_slots"`
}

// ClassCancelled несёт адресатов для уведомления об отмене.
type ClassCancelled struct {
	ClassChanged
	Recipients []Recipient `json:"recipients"`
}

type Recipient struct {
	BookingID   string `json:"booking_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
}

// Noop используется, когда публикация выключена.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

func (Noop) Close() error { return nil }
