package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/clock"
	"github.com/Leganyst/fitness-booking/internal/events"
	"github.com/Leganyst/fitness-booking/internal/metrics"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/obs"
	"github.com/Leganyst/fitness-booking/internal/repository"
	"github.com/Leganyst/fitness-booking/internal/repository/reperrors"
)

type BookingService struct {
	tx        repository.Transactor
	classes   repository.ClassRepository
	bookings  repository.BookingRepository
	audit     repository.EventRepository
	publisher events.Publisher
	clock     clock.Clock
	log       *slog.Logger
}

func NewBookingService(
	tx repository.Transactor,
	classes repository.ClassRepository,
	bookings repository.BookingRepository,
	audit repository.EventRepository,
	publisher events.Publisher,
	clk clock.Clock,
	log *slog.Logger,
) *BookingService {
	return &BookingService{
		tx:        tx,
		classes:   classes,
		bookings:  bookings,
		audit:     audit,
		publisher: publisher,
		clock:     clk,
		log:       log.With(slog.String("component", "booking_service")),
	}
}

type CreateBookingInput struct {
	ClassID     uuid.UUID
	ClientName  string
	ClientEmail string
}

// CreateBooking резервирует одно место на занятии.
//
// Сначала правила проверяются без блокировок, затем в транзакции строка
// занятия блокируется и все правила проверяются заново: решение принимается
// только по заблокированному состоянию.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	ctx, span := obs.Tracer().Start(ctx, "BookingService.CreateBooking")
	defer span.End()
	span.SetAttributes(attribute.String("class_id", in.ClassID.String()))
	started := time.Now()

	client, rej := calendar.ValidateClient(in.ClientName, in.ClientEmail)
	if rej != nil {
		return nil, s.rejected(rej)
	}

	log := s.log.With(
		slog.String("class_id", in.ClassID.String()),
		slog.String("client_email", client.Email),
	)

	now := s.clock.Now()
	check, err := s.bookingCheck(ctx, in.ClassID, client.Email, now, false)
	if err != nil {
		return nil, classify(ctx, log, "create_booking", err)
	}
	if rej := calendar.ValidateBooking(check, now); rej != nil {
		return nil, s.rejected(rej)
	}

	var (
		booking *model.Booking
		class   *model.FitnessClass
	)
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		// Лимит броней считается по всем занятиям клиента, поэтому
		// параллельные брони одного клиента идут по очереди.
		if err := s.tx.LockKey(txCtx, "booking:"+client.Email); err != nil {
			return err
		}

		now := s.clock.Now()
		locked, err := s.bookingCheck(txCtx, in.ClassID, client.Email, now, true)
		if err != nil {
			return err
		}
		if rej := calendar.ValidateBooking(locked, now); rej != nil {
			return rej
		}
		if rej := calendar.Bookable(locked.Class); rej != nil {
			return rej
		}

		ok, err := s.classes.DecrementSlot(txCtx, in.ClassID)
		if err != nil {
			return err
		}
		if !ok {
			return calendar.Reject(calendar.ReasonNoSlots, "no slots available for class %q", locked.Class.Name)
		}

		b := &model.Booking{
			ClassID:     in.ClassID,
			ClientName:  client.Name,
			ClientEmail: client.Email,
			BookingTime: now,
		}
		if err := s.bookings.Create(txCtx, b); err != nil {
			if reperrors.IsDuplicate(err) {
				return calendar.Reject(calendar.ReasonDuplicateBooking,
					"client already has a booking for class %q", locked.Class.Name)
			}
			return err
		}

		if err := s.audit.Append(txCtx, model.EventTypeBookingCreated, &b.ClassID, &b.ID, map[string]any{
			"client_email": b.ClientEmail,
			"slots_left":   locked.Class.AvailableSlots - 1,
		}); err != nil {
			return err
		}

		locked.Class.AvailableSlots--
		booking, class = b, locked.Class
		return nil
	})
	if err != nil {
		if rej, ok := calendar.AsRejection(err); ok {
			return nil, s.rejected(rej)
		}
		return nil, classify(ctx, log, "create_booking", err)
	}

	metrics.BookingsCreated.Inc()
	metrics.BookingDuration.Observe(time.Since(started).Seconds())
	log.InfoContext(ctx, "booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.Int("slots_left", class.AvailableSlots),
	)

	s.publish(ctx, events.KeyBookingCreated, events.BookingCreated{
		BookingID:   booking.ID.String(),
		ClassID:     class.ID.String(),
		ClassName:   class.Name,
		ClientName:  booking.ClientName,
		ClientEmail: booking.ClientEmail,
		StartTime:   class.StartTime,
		SlotsLeft:   class.AvailableSlots,
		BookedAt:    booking.BookingTime,
	})

	booking.Class = class
	return booking, nil
}

// ListBookingsByEmail возвращает все брони клиента, включая отменённые.
func (s *BookingService) ListBookingsByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	email, rej := calendar.ValidateEmail(email)
	if rej != nil {
		return nil, rej
	}

	bookings, err := s.bookings.ListByEmail(ctx, email)
	if err != nil {
		return nil, classify(ctx, s.log.With(slog.String("client_email", email)), "list_bookings", err)
	}
	return bookings, nil
}

// CheckIn отмечает клиента как пришедшего. Повторная отметка ничего не меняет.
func (s *BookingService) CheckIn(ctx context.Context, classID, bookingID uuid.UUID) (*model.Booking, error) {
	ctx, span := obs.Tracer().Start(ctx, "BookingService.CheckIn")
	defer span.End()

	log := s.log.With(
		slog.String("class_id", classID.String()),
		slog.String("booking_id", bookingID.String()),
	)

	var (
		booking *model.Booking
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		// Блокировка занятия упорядочивает отметку с завершением занятия,
		// которое считает пришедших.
		class, err := s.classes.GetForUpdate(txCtx, classID)
		if errors.Is(err, repository.ErrNotFound) {
			return calendar.Reject(calendar.ReasonClassNotFound, "class %s not found", classID)
		}
		if err != nil {
			return err
		}

		b, err := s.bookings.GetByID(txCtx, bookingID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && (b.ClassID != classID || b.IsCancelled)) {
			return calendar.Reject(calendar.ReasonBookingNotFound, "booking %s not found for class %s", bookingID, classID)
		}
		if err != nil {
			return err
		}

		if class.Status != model.ClassStatusUpcoming || !class.IsActive {
			return calendar.Reject(calendar.ReasonInvalidStateTransition,
				"class %q is %s, check-in is closed", class.Name, class.Status)
		}

		booking = b
		if b.CheckedIn {
			return nil
		}
		if err := s.bookings.MarkCheckedIn(txCtx, b.ID); err != nil {
			return err
		}
		b.CheckedIn = true
		changed = true
		return s.audit.Append(txCtx, model.EventTypeBookingCheckedIn, &b.ClassID, &b.ID, nil)
	})
	if err != nil {
		return nil, classify(ctx, log, "check_in", err)
	}

	if changed {
		log.InfoContext(ctx, "client checked in")
		s.publish(ctx, events.KeyBookingCheckedIn, events.BookingCheckedIn{
			BookingID:   booking.ID.String(),
			ClassID:     booking.ClassID.String(),
			ClientEmail: booking.ClientEmail,
		})
	}
	return booking, nil
}

func (s *BookingService) bookingCheck(
	ctx context.Context,
	classID uuid.UUID,
	email string,
	now time.Time,
	forUpdate bool,
) (calendar.BookingCheck, error) {
	var (
		class *model.FitnessClass
		err   error
	)
	if forUpdate {
		class, err = s.classes.GetForUpdate(ctx, classID)
	} else {
		class, err = s.classes.GetByID(ctx, classID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return calendar.BookingCheck{}, nil
	}
	if err != nil {
		return calendar.BookingCheck{}, err
	}

	has, err := s.bookings.HasActive(ctx, classID, email)
	if err != nil {
		return calendar.BookingCheck{}, err
	}
	upcoming, err := s.bookings.CountUpcomingByEmail(ctx, email, now)
	if err != nil {
		return calendar.BookingCheck{}, err
	}

	return calendar.BookingCheck{
		Class:            class,
		HasActiveBooking: has,
		UpcomingBookings: upcoming,
	}, nil
}

func (s *BookingService) rejected(rej *calendar.Rejection) error {
	metrics.BookingsRejected.WithLabelValues(string(rej.Reason)).Inc()
	s.log.Debug("booking rejected", slog.String("reason", string(rej.Reason)), slog.String("detail", rej.Detail))
	return rej
}

func (s *BookingService) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.log.WarnContext(ctx, "failed to publish event", slog.String("key", key), slog.Any("error", err))
	}
}
