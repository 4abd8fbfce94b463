package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/events"
	"github.com/Leganyst/fitness-booking/internal/metrics"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/obs"
	"github.com/Leganyst/fitness-booking/internal/repository"
)

const (
	JobCompleteExpired = "complete_expired_classes"
	JobReconcileNoShow = "reconcile_no_shows"
	JobCancelClass     = "cancel_class"
)

// Reconciler пересчитывает производное состояние занятий из фактов:
// статусы и свободные места. Каждый вызов выполняется в одной транзакции.
// Пересчёт всегда идёт от количества отметившихся, а не от дельт, поэтому
// повторный запуск безопасен.
type Reconciler struct {
	tx        repository.Transactor
	classes   repository.ClassRepository
	bookings  repository.BookingRepository
	audit     repository.EventRepository
	publisher events.Publisher
	log       *slog.Logger
}

func NewReconciler(
	tx repository.Transactor,
	classes repository.ClassRepository,
	bookings repository.BookingRepository,
	audit repository.EventRepository,
	publisher events.Publisher,
	log *slog.Logger,
) *Reconciler {
	return &Reconciler{
		tx:        tx,
		classes:   classes,
		bookings:  bookings,
		audit:     audit,
		publisher: publisher,
		log:       log.With(slog.String("component", "reconciler")),
	}
}

// CompleteExpiredClasses завершает занятия, закончившиеся больше
// calendar.CompletionGrace назад, и возвращает их количество.
func (r *Reconciler) CompleteExpiredClasses(ctx context.Context, now time.Time) (int, error) {
	ctx, span := obs.Tracer().Start(ctx, "Reconciler.CompleteExpiredClasses")
	defer span.End()
	defer observe(JobCompleteExpired, time.Now())

	var completed []model.FitnessClass
	err := r.tx.WithinTx(ctx, func(txCtx context.Context) error {
		classes, err := r.classes.ListEndedBeforeForUpdate(txCtx, now.Add(-calendar.CompletionGrace))
		if err != nil {
			return err
		}

		for i := range classes {
			c := &classes[i]
			checkedIn, err := r.bookings.CountCheckedIn(txCtx, c.ID)
			if err != nil {
				return err
			}
			if rej := calendar.Complete(c, checkedIn); rej != nil {
				return rej
			}
			if err := r.classes.Save(txCtx, c); err != nil {
				return err
			}
			if err := r.audit.Append(txCtx, model.EventTypeClassCompleted, &c.ID, nil, map[string]any{
				"checked_in":      checkedIn,
				"available_slots": c.AvailableSlots,
			}); err != nil {
				return err
			}
		}
		completed = classes
		return nil
	})
	if err != nil {
		metrics.ReconcilerRuns.WithLabelValues(JobCompleteExpired, "error").Inc()
		return 0, classify(ctx, r.log, JobCompleteExpired, err)
	}

	metrics.ReconcilerRuns.WithLabelValues(JobCompleteExpired, "ok").Inc()
	metrics.ClassesReconciled.WithLabelValues(JobCompleteExpired).Add(float64(len(completed)))
	span.SetAttributes(attribute.Int("classes.completed", len(completed)))

	if len(completed) > 0 {
		r.log.InfoContext(ctx, "classes completed", slog.Int("count", len(completed)))
	}
	for i := range completed {
		r.publish(ctx, events.KeyClassCompleted, classChanged(&completed[i]))
	}
	return len(completed), nil
}

// ReconcileNoShows для идущих занятий выставляет свободные места равными
// capacity минус отметившиеся. Пишет только там, где значение изменилось,
// и возвращает число обновлённых занятий.
func (r *Reconciler) ReconcileNoShows(ctx context.Context, now time.Time) (int, error) {
	ctx, span := obs.Tracer().Start(ctx, "Reconciler.ReconcileNoShows")
	defer span.End()
	defer observe(JobReconcileNoShow, time.Now())

	updated := 0
	err := r.tx.WithinTx(ctx, func(txCtx context.Context) error {
		classes, err := r.classes.ListInProgressForUpdate(txCtx, now)
		if err != nil {
			return err
		}

		for i := range classes {
			c := &classes[i]
			// Завершение важнее: такие занятия обработает CompleteExpiredClasses.
			if calendar.CompletionDue(c, now) {
				continue
			}

			checkedIn, err := r.bookings.CountCheckedIn(txCtx, c.ID)
			if err != nil {
				return err
			}
			slots := calendar.RecomputeSlots(c.Capacity, checkedIn)
			if slots == c.AvailableSlots {
				continue
			}

			if err := r.classes.UpdateSlots(txCtx, c.ID, slots); err != nil {
				return err
			}
			if err := r.audit.Append(txCtx, model.EventTypeClassSlotsReconciled, &c.ID, nil, map[string]any{
				"checked_in": checkedIn,
				"from":       c.AvailableSlots,
				"to":         slots,
			}); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		metrics.ReconcilerRuns.WithLabelValues(JobReconcileNoShow, "error").Inc()
		return 0, classify(ctx, r.log, JobReconcileNoShow, err)
	}

	metrics.ReconcilerRuns.WithLabelValues(JobReconcileNoShow, "ok").Inc()
	metrics.ClassesReconciled.WithLabelValues(JobReconcileNoShow).Add(float64(updated))
	span.SetAttributes(attribute.Int("classes.updated", updated))

	if updated > 0 {
		r.log.InfoContext(ctx, "slots reconciled for in-progress classes", slog.Int("count", updated))
	}
	return updated, nil
}

// CancelClass отменяет upcoming-занятие и все его активные брони.
func (r *Reconciler) CancelClass(ctx context.Context, classID uuid.UUID) (*model.FitnessClass, error) {
	ctx, span := obs.Tracer().Start(ctx, "Reconciler.CancelClass")
	defer span.End()
	defer observe(JobCancelClass, time.Now())

	log := r.log.With(slog.String("class_id", classID.String()))

	var (
		class     *model.FitnessClass
		cancelled []model.Booking
	)
	err := r.tx.WithinTx(ctx, func(txCtx context.Context) error {
		c, err := r.classes.GetForUpdate(txCtx, classID)
		if errors.Is(err, repository.ErrNotFound) {
			return calendar.Reject(calendar.ReasonClassNotFound, "class %s not found", classID)
		}
		if err != nil {
			return err
		}

		if rej := calendar.Cancel(c); rej != nil {
			return rej
		}
		if err := r.classes.Save(txCtx, c); err != nil {
			return err
		}

		cancelled, err = r.bookings.CancelByClass(txCtx, c.ID)
		if err != nil {
			return err
		}

		if err := r.audit.Append(txCtx, model.EventTypeClassCancelled, &c.ID, nil, map[string]any{
			"cancelled_bookings": len(cancelled),
		}); err != nil {
			return err
		}
		class = c
		return nil
	})
	if err != nil {
		result := "error"
		if _, ok := calendar.AsRejection(err); ok {
			result = "rejected"
		}
		metrics.ReconcilerRuns.WithLabelValues(JobCancelClass, result).Inc()
		return nil, classify(ctx, log, JobCancelClass, err)
	}

	metrics.ReconcilerRuns.WithLabelValues(JobCancelClass, "ok").Inc()
	log.InfoContext(ctx, "class cancelled", slog.Int("cancelled_bookings", len(cancelled)))

	payload := events.ClassCancelled{
		ClassChanged: classChanged(class),
		Recipients:   make([]events.Recipient, 0, len(cancelled)),
	}
	for _, b := range cancelled {
		payload.Recipients = append(payload.Recipients, events.Recipient{
			BookingID:   b.ID.String(),
			ClientName:  b.ClientName,
			ClientEmail: b.ClientEmail,
		})
	}
	r.publish(ctx, events.KeyClassCancelled, payload)

	return class, nil
}

func (r *Reconciler) publish(ctx context.Context, key string, payload any) {
	if err := r.publisher.Publish(ctx, key, payload); err != nil {
		r.log.WarnContext(ctx, "failed to publish event", slog.String("key", key), slog.Any("error", err))
	}
}

func observe(job string, started time.Time) {
	metrics.ReconcilerDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func classChanged(c *model.FitnessClass) events.ClassChanged {
	return events.ClassChanged{
		ClassID:        c.ID.String(),
		Name:           c.Name,
		Status:         string(c.Status),
		StartTime:      c.StartTime,
		EndTime:        c.EndTime,
		Capacity:       c.Capacity,
		AvailableSlots: c.AvailableSlots,
	}
}
