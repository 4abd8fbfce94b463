package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/clock"
	"github.com/Leganyst/fitness-booking/internal/events"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/repository"
	"github.com/Leganyst/fitness-booking/internal/testutil"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	clock    *clock.Fixed
	classes  *repository.GormClassRepository
	bookings *repository.GormBookingRepository
	audit    *repository.GormEventRepository
	recorder *events.Recorder

	bookingSvc *BookingService
	classSvc   *ClassService
	reconciler *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLite(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		db:       db,
		clock:    clock.NewFixed(testNow),
		classes:  repository.NewGormClassRepository(db),
		bookings: repository.NewGormBookingRepository(db),
		audit:    repository.NewGormEventRepository(db),
		recorder: events.NewRecorder(),
	}
	tx := repository.NewGormTransactor(db, time.Second)

	f.bookingSvc = NewBookingService(tx, f.classes, f.bookings, f.audit, f.recorder, f.clock, log)
	f.reconciler = NewReconciler(tx, f.classes, f.bookings, f.audit, f.recorder, log)
	f.classSvc = NewClassService(tx, f.classes, f.bookings, f.audit, f.reconciler, f.recorder, f.clock, "UTC", log)
	return f
}

// addClass кладёт занятие напрямую в базу, минуя проверки CreateClass,
// чтобы можно было завести уже идущие или прошедшие занятия.
func (f *fixture) addClass(t *testing.T, start time.Time, capacity int, opts ...func(*model.FitnessClass)) *model.FitnessClass {
	t.Helper()

	c := &model.FitnessClass{
		Name:           "Yoga Class",
		Instructor:     "John Doe",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		TimeZone:       "UTC",
		Capacity:       capacity,
		AvailableSlots: capacity,
		Status:         model.ClassStatusUpcoming,
		IsActive:       true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := f.classes.Create(context.Background(), c); err != nil {
		t.Fatalf("create class: %v", err)
	}
	return c
}

// addBooking кладёт бронь напрямую, не трогая места занятия.
func (f *fixture) addBooking(t *testing.T, classID uuid.UUID, email string, checkedIn bool) *model.Booking {
	t.Helper()

	b := &model.Booking{
		ClassID:     classID,
		ClientName:  "Client",
		ClientEmail: email,
		BookingTime: f.clock.Now(),
		CheckedIn:   checkedIn,
	}
	if err := f.bookings.Create(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) reloadClass(t *testing.T, id uuid.UUID) *model.FitnessClass {
	t.Helper()
	c, err := f.classes.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload class: %v", err)
	}
	return c
}

func (f *fixture) book(email string, classID uuid.UUID) (*model.Booking, error) {
	return f.bookingSvc.CreateBooking(context.Background(), CreateBookingInput{
		ClassID:     classID,
		ClientName:  "Jane Smith",
		ClientEmail: email,
	})
}

func withSlots(n int) func(*model.FitnessClass) {
	return func(c *model.FitnessClass) { c.AvailableSlots = n }
}

func expectReason(t *testing.T, err error, want calendar.Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if got := calendar.ReasonOf(err); got != want {
		t.Fatalf("expected %s, got %v", want, err)
	}
}
