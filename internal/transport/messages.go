package transport

import (
	"encoding/json"
	"time"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/service"
)

type Class struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Instructor     string    `json:"instructor"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TimeZone       string    `json:"timezone"`
	Capacity       int       `json:"capacity"`
	AvailableSlots int       `json:"available_slots"`
	Status         string    `json:"status"`
	IsActive       bool      `json:"is_active"`
}

func ClassFromView(v service.ClassView) Class {
	return Class{
		ID:             v.ID.String(),
		Name:           v.Name,
		Instructor:     v.Instructor,
		StartTime:      v.StartTime,
		EndTime:        v.EndTime,
		TimeZone:       v.TimeZone,
		Capacity:       v.Capacity,
		AvailableSlots: v.AvailableSlots,
		Status:         string(v.Status),
		IsActive:       v.IsActive,
	}
}

// ClassFromModel показывает время в собственной таймзоне занятия.
func ClassFromModel(c *model.FitnessClass) Class {
	return ClassFromView(service.NewClassView(c, nil))
}

type ClassPage struct {
	Items    []Class `json:"items"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int     `json:"total"`
	HasNext  bool    `json:"has_next"`
	HasPrev  bool    `json:"has_prev"`
}

func ClassPageFrom(p calendar.Page[service.ClassView]) ClassPage {
	page := calendar.MapPage(p, ClassFromView)
	return ClassPage{
		Items:    page.Items,
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
		HasNext:  page.HasNext,
		HasPrev:  page.HasPrev,
	}
}

type Booking struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	BookingTime time.Time `json:"booking_time"`
	CheckedIn   bool      `json:"checked_in"`
	IsCancelled bool      `json:"is_cancelled"`
	Class       *Class    `json:"class,omitempty"`
}

func BookingFromModel(b *model.Booking) Booking {
	out := Booking{
		ID:          b.ID.String(),
		ClassID:     b.ClassID.String(),
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		BookingTime: b.BookingTime,
		CheckedIn:   b.CheckedIn,
		IsCancelled: b.IsCancelled,
	}
	if b.Class != nil {
		c := ClassFromModel(b.Class)
		out.Class = &c
	}
	return out
}

type ClassEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	BookingID string          `json:"booking_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func ClassEventFromModel(e *model.Event) ClassEvent {
	out := ClassEvent{
		ID:        e.ID.String(),
		EventType: string(e.EventType),
		Details:   json.RawMessage(e.Details),
		CreatedAt: e.CreatedAt,
	}
	if e.BookingID != nil {
		out.BookingID = e.BookingID.String()
	}
	return out
}

// Запросы. Одни и те же структуры читаются из тела gRPC (JSON-кодек)
// и из HTTP; идентификаторы в HTTP приходят из пути.

type ListClassesRequest struct {
	TimeZone string `json:"timezone" form:"timezone"`
	Page     int    `json:"page" form:"page" validate:"gte=0"`
	PageSize int    `json:"page_size" form:"page_size" validate:"gte=0,lte=100"`
}

type ClassIDRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

type CreateClassRequest struct {
	Name       string    `json:"name" validate:"required"`
	Instructor string    `json:"instructor" validate:"required"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required"`
	Capacity   int       `json:"capacity" validate:"required"`
	TimeZone   string    `json:"timezone"`
}

func (r CreateClassRequest) Input() service.CreateClassInput {
	return service.CreateClassInput{
		Name:       r.Name,
		Instructor: r.Instructor,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Capacity:   r.Capacity,
		TimeZone:   r.TimeZone,
	}
}

type UpdateClassRequest struct {
	ID         string     `json:"id" validate:"required,uuid"`
	Name       *string    `json:"name,omitempty"`
	Instructor *string    `json:"instructor,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Capacity   *int       `json:"capacity,omitempty"`
}

func (r UpdateClassRequest) Input() service.UpdateClassInput {
	return service.UpdateClassInput{
		Name:       r.Name,
		Instructor: r.Instructor,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Capacity:   r.Capacity,
	}
}

type CheckInRequest struct {
	ClassID   string `json:"class_id" validate:"required,uuid"`
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

type CreateBookingRequest struct {
	ClassID     string `json:"class_id" validate:"required,uuid"`
	ClientName  string `json:"client_name" validate:"required"`
	ClientEmail string `json:"client_email" validate:"required"`
}

type ListBookingsRequest struct {
	Email string `json:"email" form:"email" validate:"required"`
}

type ListBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
}

type ClassEventsResponse struct {
	Events []ClassEvent `json:"events"`
}
