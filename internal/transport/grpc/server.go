package grpcx

import (
	"context"

	"github.com/Leganyst/fitness-booking/internal/service"
	"github.com/Leganyst/fitness-booking/internal/transport"
)

const ServiceName = "fitness.v1.BookingService"

// BookingServiceServer: методы сервиса бронирования.
type BookingServiceServer interface {
	ListClasses(context.Context, *transport.ListClassesRequest) (*transport.ClassPage, error)
	GetClass(context.Context, *transport.ClassIDRequest) (*transport.Class, error)
	CreateClass(context.Context, *transport.CreateClassRequest) (*transport.Class, error)
	UpdateClass(context.Context, *transport.UpdateClassRequest) (*transport.Class, error)
	CancelClass(context.Context, *transport.ClassIDRequest) (*transport.Class, error)
	ListClassEvents(context.Context, *transport.ClassIDRequest) (*transport.ClassEventsResponse, error)
	CheckIn(context.Context, *transport.CheckInRequest) (*transport.Booking, error)
	CreateBooking(context.Context, *transport.CreateBookingRequest) (*transport.Booking, error)
	ListBookings(context.Context, *transport.ListBookingsRequest) (*transport.ListBookingsResponse, error)
}

type Server struct {
	bookings transport.Bookings
	classes  transport.Classes
}

var _ BookingServiceServer = (*Server)(nil)

func NewServer(bookings transport.Bookings, classes transport.Classes) *Server {
	return &Server{bookings: bookings, classes: classes}
}

func (s *Server) ListClasses(ctx context.Context, in *transport.ListClassesRequest) (*transport.ClassPage, error) {
	if err := transport.Validate(in); err != nil {
		return nil, toStatus(err)
	}
	page, err := s.classes.ListClasses(ctx, service.ListClassesInput{
		TimeZone: in.TimeZone,
		Page:     in.Page,
		PageSize: in.PageSize,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := transport.ClassPageFrom(page)
	return &out, nil
}

func (s *Server) GetClass(ctx context.Context, in *transport.ClassIDRequest) (*transport.Class, error) {
	id, err := transport.ParseID("id", in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	c, err := s.classes.GetClass(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	out := transport.ClassFromModel(c)
	return &out, nil
}

func (s *Server) CreateClass(ctx context.Context, in *transport.CreateClassRequest) (*transport.Class, error) {
	if err := transport.Validate(in); err != nil {
		return nil, toStatus(err)
	}
	c, err := s.classes.CreateClass(ctx, in.Input())
	if err != nil {
		return nil, toStatus(err)
	}
	out := transport.ClassFromModel(c)
	return &out, nil
}

func (s *Server) UpdateClass(ctx context.Context, in *transport.UpdateClassRequest) (*transport.Class, error) {
	id, err := transport.ParseID("id", in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	c, err := s.classes.UpdateClass(ctx, id, in.Input())
	if err != nil {
		return nil, toStatus(err)
	}
	out := transport.ClassFromModel(c)
	return &out, nil
}

func (s *Server) CancelClass(ctx context.Context, in *transport.ClassIDRequest) (*transport.Class, error) {
	id, err := transport.ParseID("id", in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	c, err := s.classes.CancelClass(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	out := transport.ClassFromModel(c)
	return &out, nil
}

func (s *Server) ListClassEvents(ctx context.Context, in *transport.ClassIDRequest) (*transport.ClassEventsResponse, error) {
	id, err := transport.ParseID("id", in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	evs, err := s.classes.AuditTrail(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &transport.ClassEventsResponse{Events: make([]transport.ClassEvent, 0, len(evs))}
	for i := range evs {
		out.Events = append(out.Events, transport.ClassEventFromModel(&evs[i]))
	}
	return out, nil
}

func (s *Server) CheckIn(ctx context.Context, in *transport.CheckInRequest) (*transport.Booking, error) {
	classID, err := transport.ParseID("class_id", in.ClassID)
	if err != nil {
		return nil, toStatus(err)
	}
	bookingID, err := transport.ParseID("booking_id", in.BookingID)
	if err != nil {
		return nil, toStatus(err)
	}
	b, err := s.bookings.CheckIn(ctx, classID, bookingID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := transport.BookingFromModel(b)
	return &out, nil
}

func (s *Server) CreateBooking(ctx context.Context, in *transport.CreateBookingRequest) (*transport.Booking, error) {
	if err := transport.Validate(in); err != nil {
		return nil, toStatus(err)
	}
	classID, err := transport.ParseID("class_id", in.ClassID)
	if err != nil {
		return nil, toStatus(err)
	}
	b, err := s.bookings.CreateBooking(ctx, service.CreateBookingInput{
		ClassID:     classID,
		ClientName:  in.ClientName,
		ClientEmail: in.ClientEmail,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := transport.BookingFromModel(b)
	return &out, nil
}

func (s *Server) ListBookings(ctx context.Context, in *transport.ListBookingsRequest) (*transport.ListBookingsResponse, error) {
	if err := transport.Validate(in); err != nil {
		return nil, toStatus(err)
	}
	bookings, err := s.bookings.ListBookingsByEmail(ctx, in.Email)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &transport.ListBookingsResponse{Bookings: make([]transport.Booking, 0, len(bookings))}
	for i := range bookings {
		out.Bookings = append(out.Bookings, transport.BookingFromModel(&bookings[i]))
	}
	return out, nil
}
