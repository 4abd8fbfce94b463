package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/clock"
	"github.com/Leganyst/fitness-booking/internal/events"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/obs"
	"github.com/Leganyst/fitness-booking/internal/repository"
)

type ClassService struct {
	tx         repository.Transactor
	classes    repository.ClassRepository
	bookings   repository.BookingRepository
	audit      repository.EventRepository
	reconciler *Reconciler
	publisher  events.Publisher
	clock      clock.Clock
	defaultTZ  string
	log        *slog.Logger
}

func NewClassService(
	tx repository.Transactor,
	classes repository.ClassRepository,
	bookings repository.BookingRepository,
	audit repository.EventRepository,
	reconciler *Reconciler,
	publisher events.Publisher,
	clk clock.Clock,
	defaultTZ string,
	log *slog.Logger,
) *ClassService {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &ClassService{
		tx:         tx,
		classes:    classes,
		bookings:   bookings,
		audit:      audit,
		reconciler: reconciler,
		publisher:  publisher,
		clock:      clk,
		defaultTZ:  defaultTZ,
		log:        log.With(slog.String("component", "class_service")),
	}
}

// ClassView: занятие с временем в таймзоне показа.
type ClassView struct {
	ID             uuid.UUID
	Name           string
	Instructor     string
	StartTime      time.Time
	EndTime        time.Time
	TimeZone       string
	Capacity       int
	AvailableSlots int
	Status         model.ClassStatus
	IsActive       bool
}

// NewClassView переводит время занятия в loc; при nil в собственную таймзону занятия.
func NewClassView(c *model.FitnessClass, loc *time.Location) ClassView {
	if loc == nil {
		own, rej := calendar.LoadLocation(c.TimeZone)
		if rej != nil {
			own = time.UTC
		}
		loc = own
	}
	window := calendar.Window(c).In(loc)
	return ClassView{
		ID:             c.ID,
		Name:           c.Name,
		Instructor:     c.Instructor,
		StartTime:      window.Start,
		EndTime:        window.End,
		TimeZone:       loc.String(),
		Capacity:       c.Capacity,
		AvailableSlots: c.AvailableSlots,
		Status:         c.Status,
		IsActive:       c.IsActive,
	}
}

type ListClassesInput struct {
	// IANA-имя таймзоны для показа; если пусто, у каждого занятия своя.
	TimeZone string
	Page     int
	PageSize int
}

func (s *ClassService) ListClasses(ctx context.Context, in ListClassesInput) (calendar.Page[ClassView], error) {
	var loc *time.Location
	if in.TimeZone != "" {
		l, rej := calendar.LoadLocation(in.TimeZone)
		if rej != nil {
			return calendar.Page[ClassView]{}, rej
		}
		loc = l
	}

	classes, err := s.classes.List(ctx)
	if err != nil {
		return calendar.Page[ClassView]{}, classify(ctx, s.log, "list_classes", err)
	}

	page := calendar.Paginate(classes, in.Page, in.PageSize)
	return calendar.MapPage(page, func(c model.FitnessClass) ClassView {
		return NewClassView(&c, loc)
	}), nil
}

func (s *ClassService) GetClass(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error) {
	c, err := s.classes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, calendar.Reject(calendar.ReasonClassNotFound, "class %s not found", id)
	}
	if err != nil {
		return nil, classify(ctx, s.log.With(slog.String("class_id", id.String())), "get_class", err)
	}
	return c, nil
}

type CreateClassInput struct {
	Name       string
	Instructor string
	StartTime  time.Time
	EndTime    time.Time
	Capacity   int
	// Если пусто, берётся таймзона сервиса.
	TimeZone string
}

func (s *ClassService) CreateClass(ctx context.Context, in CreateClassInput) (*model.FitnessClass, error) {
	ctx, span := obs.Tracer().Start(ctx, "ClassService.CreateClass")
	defer span.End()

	name, rej := calendar.NormalizeClassName(in.Name)
	if rej != nil {
		return nil, rej
	}
	instructor, rej := calendar.NormalizeInstructor(in.Instructor)
	if rej != nil {
		return nil, rej
	}
	if rej := calendar.ValidateSchedule(in.StartTime, in.EndTime); rej != nil {
		return nil, rej
	}
	if !in.StartTime.After(s.clock.Now()) {
		return nil, calendar.Invalid("start_time must be in the future")
	}
	if rej := calendar.ValidateCapacity(in.Capacity); rej != nil {
		return nil, rej
	}
	tz := in.TimeZone
	if tz == "" {
		tz = s.defaultTZ
	}
	if _, rej := calendar.LoadLocation(tz); rej != nil {
		return nil, rej
	}

	class := &model.FitnessClass{
		Name:           name,
		Instructor:     instructor,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		TimeZone:       tz,
		Capacity:       in.Capacity,
		AvailableSlots: in.Capacity,
		Status:         model.ClassStatusUpcoming,
		IsActive:       true,
	}

	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.classes.Create(txCtx, class); err != nil {
			return err
		}
		return s.audit.Append(txCtx, model.EventTypeClassCreated, &class.ID, nil, map[string]any{
			"name":     class.Name,
			"capacity": class.Capacity,
		})
	})
	if err != nil {
		return nil, classify(ctx, s.log, "create_class", err)
	}

	s.log.InfoContext(ctx, "class created",
		slog.String("class_id", class.ID.String()),
		slog.String("name", class.Name),
	)
	s.publish(ctx, events.KeyClassCreated, classChanged(class))
	return class, nil
}

// UpdateClassInput: nil означает «не менять».
type UpdateClassInput struct {
	Name       *string
	Instructor *string
	StartTime  *time.Time
	EndTime    *time.Time
	Capacity   *int
}

// UpdateClass меняет ещё не начавшееся занятие. Вместимость нельзя опустить
// ниже числа активных броней; свободные места пересчитываются от неё.
func (s *ClassService) UpdateClass(ctx context.Context, id uuid.UUID, in UpdateClassInput) (*model.FitnessClass, error) {
	ctx, span := obs.Tracer().Start(ctx, "ClassService.UpdateClass")
	defer span.End()

	log := s.log.With(slog.String("class_id", id.String()))

	var class *model.FitnessClass
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		c, err := s.classes.GetForUpdate(txCtx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return calendar.Reject(calendar.ReasonClassNotFound, "class %s not found", id)
		}
		if err != nil {
			return err
		}

		if c.Status != model.ClassStatusUpcoming || !c.IsActive {
			return calendar.Reject(calendar.ReasonInvalidStateTransition, "class %q is %s and cannot be modified", c.Name, c.Status)
		}
		now := s.clock.Now()
		if !c.StartTime.After(now) {
			return calendar.Reject(calendar.ReasonAlreadyStarted, "cannot modify a class that has already started")
		}

		if in.Name != nil {
			name, rej := calendar.NormalizeClassName(*in.Name)
			if rej != nil {
				return rej
			}
			c.Name = name
		}
		if in.Instructor != nil {
			instructor, rej := calendar.NormalizeInstructor(*in.Instructor)
			if rej != nil {
				return rej
			}
			c.Instructor = instructor
		}
		if in.StartTime != nil || in.EndTime != nil {
			if in.StartTime != nil {
				c.StartTime = *in.StartTime
			}
			if in.EndTime != nil {
				c.EndTime = *in.EndTime
			}
			if rej := calendar.ValidateSchedule(c.StartTime, c.EndTime); rej != nil {
				return rej
			}
			if !c.StartTime.After(now) {
				return calendar.Invalid("start_time must be in the future")
			}
		}
		if in.Capacity != nil {
			if rej := calendar.ValidateCapacity(*in.Capacity); rej != nil {
				return rej
			}
			active, err := s.bookings.CountActive(txCtx, c.ID)
			if err != nil {
				return err
			}
			slots, rej := calendar.ResizeSlots(*in.Capacity, active)
			if rej != nil {
				return rej
			}
			c.Capacity = *in.Capacity
			c.AvailableSlots = slots
		}

		if err := s.classes.Save(txCtx, c); err != nil {
			return err
		}
		if err := s.audit.Append(txCtx, model.EventTypeClassUpdated, &c.ID, nil, map[string]any{
			"capacity":        c.Capacity,
			"available_slots": c.AvailableSlots,
			"start_time":      c.StartTime,
			"end_time":        c.EndTime,
		}); err != nil {
			return err
		}
		class = c
		return nil
	})
	if err != nil {
		return nil, classify(ctx, log, "update_class", err)
	}

	log.InfoContext(ctx, "class updated")
	s.publish(ctx, events.KeyClassUpdated, classChanged(class))
	return class, nil
}

// CancelClass выполняет административную отмену, см. Reconciler.CancelClass.
func (s *ClassService) CancelClass(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error) {
	return s.reconciler.CancelClass(ctx, id)
}

// AuditTrail возвращает журнал изменений занятия.
func (s *ClassService) AuditTrail(ctx context.Context, id uuid.UUID) ([]model.Event, error) {
	if _, err := s.GetClass(ctx, id); err != nil {
		return nil, err
	}
	evs, err := s.audit.ListByClass(ctx, id)
	if err != nil {
		return nil, classify(ctx, s.log.With(slog.String("class_id", id.String())), "audit_trail", err)
	}
	return evs, nil
}

func (s *ClassService) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.log.WarnContext(ctx, "failed to publish event", slog.String("key", key), slog.Any("error", err))
	}
}
