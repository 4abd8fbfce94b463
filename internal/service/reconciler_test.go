package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/events"
	"github.com/Leganyst/fitness-booking/internal/model"
)

func TestCompleteExpiredClasses_RecomputesFromCheckIns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// capacity=10, четверо пришли, конец 20 минут назад
	class := f.addClass(t, testNow.Add(-80*time.Minute), 10, withSlots(4))
	for i := 0; i < 4; i++ {
		f.addBooking(t, class.ID, uuid.NewString()+"@example.com", true)
	}
	for i := 0; i < 2; i++ {
		f.addBooking(t, class.ID, uuid.NewString()+"@example.com", false)
	}
	// ещё в пределах 15 минут после окончания
	recent := f.addClass(t, testNow.Add(-70*time.Minute), 10)

	n, err := f.reconciler.CompleteExpiredClasses(ctx, testNow)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 class completed, got %d", n)
	}

	got := f.reloadClass(t, class.ID)
	if got.Status != model.ClassStatusCompleted || got.AvailableSlots != 6 {
		t.Fatalf("expected completed with 6 slots, got %s/%d", got.Status, got.AvailableSlots)
	}
	if r := f.reloadClass(t, recent.ID); r.Status != model.ClassStatusUpcoming {
		t.Fatalf("class inside grace period must stay upcoming, got %s", r.Status)
	}

	// Повторный запуск с тем же now ничего не меняет.
	n, err = f.reconciler.CompleteExpiredClasses(ctx, testNow)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected idempotent second run, got %d", n)
	}
	again := f.reloadClass(t, class.ID)
	if again.Status != got.Status || again.AvailableSlots != got.AvailableSlots {
		t.Fatalf("state changed on second run: %+v -> %+v", got, again)
	}

	completedEvents := 0
	for _, k := range f.recorder.Keys() {
		if k == events.KeyClassCompleted {
			completedEvents++
		}
	}
	if completedEvents != 1 {
		t.Fatalf("expected one class.completed event, got %d", completedEvents)
	}
}

func TestCompleteExpiredClasses_IgnoresCancelledBookings(t *testing.T) {
	f := newFixture(t)
	class := f.addClass(t, testNow.Add(-3*time.Hour), 5, withSlots(3))
	f.addBooking(t, class.ID, "a@example.com", true)
	cancelled := f.addBooking(t, class.ID, "b@example.com", true)
	if err := f.db.Model(cancelled).Update("is_cancelled", true).Error; err != nil {
		t.Fatalf("cancel booking: %v", err)
	}

	if _, err := f.reconciler.CompleteExpiredClasses(context.Background(), testNow); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := f.reloadClass(t, class.ID).AvailableSlots; got != 4 {
		t.Fatalf("expected 4 slots (one checked-in attendee), got %d", got)
	}
}

func TestReconcileNoShows_TracksCheckIns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	class := f.addClass(t, testNow.Add(-30*time.Minute), 10, withSlots(7))
	var bookings []*model.Booking
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		bookings = append(bookings, f.addBooking(t, class.ID, email, false))
	}
	future := f.addClass(t, testNow.Add(3*time.Hour), 10, withSlots(7))

	n, err := f.reconciler.ReconcileNoShows(ctx, testNow)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 class updated, got %d", n)
	}
	if got := f.reloadClass(t, class.ID).AvailableSlots; got != 10 {
		t.Fatalf("nobody checked in, expected 10 slots, got %d", got)
	}
	if got := f.reloadClass(t, future.ID).AvailableSlots; got != 7 {
		t.Fatalf("future class must not be touched, got %d", got)
	}

	prev := 10
	for _, b := range bookings[:2] {
		if _, err := f.bookingSvc.CheckIn(ctx, class.ID, b.ID); err != nil {
			t.Fatalf("check in: %v", err)
		}
		if _, err := f.reconciler.ReconcileNoShows(ctx, testNow); err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		got := f.reloadClass(t, class.ID).AvailableSlots
		if got >= prev {
			t.Fatalf("slots must decrease with check-ins: %d -> %d", prev, got)
		}
		prev = got
	}
	if prev != 8 {
		t.Fatalf("expected 8 slots after two check-ins, got %d", prev)
	}

	n, err = f.reconciler.ReconcileNoShows(ctx, testNow)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no updates without new check-ins, got %d", n)
	}
}

func TestReconcileNoShows_SkipsClassesOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ended := f.addClass(t, testNow.Add(-2*time.Hour), 10, withSlots(3))
	cancelled := f.addClass(t, testNow.Add(-30*time.Minute), 10, func(c *model.FitnessClass) {
		c.Status = model.ClassStatusCancelled
		c.IsActive = false
		c.AvailableSlots = 0
	})

	n, err := f.reconciler.ReconcileNoShows(context.Background(), testNow)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no updates, got %d", n)
	}
	if got := f.reloadClass(t, ended.ID).AvailableSlots; got != 3 {
		t.Fatalf("ended class must not be touched, got %d", got)
	}
	if got := f.reloadClass(t, cancelled.ID).AvailableSlots; got != 0 {
		t.Fatalf("cancelled class must not be touched, got %d", got)
	}
}

func TestCancelClass_CascadesToBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	class := f.addClass(t, testNow.Add(3*time.Hour), 5)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := f.book(email, class.ID); err != nil {
			t.Fatalf("book: %v", err)
		}
	}

	got, err := f.reconciler.CancelClass(ctx, class.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.ClassStatusCancelled || got.AvailableSlots != 0 || got.IsActive {
		t.Fatalf("unexpected class after cancel: %+v", got)
	}

	var active int64
	if err := f.db.Model(&model.Booking{}).
		Where("class_id = ? AND is_cancelled = ?", class.ID, false).
		Count(&active).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected all bookings cancelled, %d still active", active)
	}

	evs := f.recorder.Events()
	last := evs[len(evs)-1]
	if last.Key != events.KeyClassCancelled {
		t.Fatalf("expected class.cancelled event, got %s", last.Key)
	}
	if n := len(last.Payload.(events.ClassCancelled).Recipients); n != 2 {
		t.Fatalf("expected 2 recipients, got %d", n)
	}

	_, err = f.reconciler.CancelClass(ctx, class.ID)
	expectReason(t, err, calendar.ReasonInvalidStateTransition)
}

func TestCancelClass_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reconciler.CancelClass(ctx, uuid.New())
	expectReason(t, err, calendar.ReasonClassNotFound)

	done := f.addClass(t, testNow.Add(-3*time.Hour), 5)
	if _, err := f.reconciler.CompleteExpiredClasses(ctx, testNow); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = f.reconciler.CancelClass(ctx, done.ID)
	expectReason(t, err, calendar.ReasonInvalidStateTransition)

	if got := f.reloadClass(t, done.ID); got.Status != model.ClassStatusCompleted {
		t.Fatalf("rejected cancel must not change status, got %s", got.Status)
	}
}
