package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Leganyst/fitness-booking/internal/clock"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/service"
)

type ClassCounter interface {
	Count(ctx context.Context) (int64, error)
}

type ClassCreator interface {
	CreateClass(ctx context.Context, in service.CreateClassInput) (*model.FitnessClass, error)
}

type sample struct {
	name       string
	instructor string
	daysAhead  int
	capacity   int
}

// Демонстрационное расписание на ближайшие четыре дня.
var samples = []sample{
	{"Yoga Class", "john Doe", 1, 20},
	{"Zumba Class", "Jane Smith", 2, 15},
	{"Pilates Class", "Alice Johnson", 3, 10},
	{"HIIT Class", "Bob Brown", 4, 25},
}

// SampleClasses заполняет пустую базу демонстрационными занятиями.
// Если занятия уже есть, ничего не делает и возвращает 0.
func SampleClasses(ctx context.Context, counter ClassCounter, classes ClassCreator, clk clock.Clock, log *slog.Logger) (int, error) {
	n, err := counter.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count classes: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	now := clk.Now().UTC().Truncate(time.Minute)
	for _, s := range samples {
		start := now.AddDate(0, 0, s.daysAhead)
		if _, err := classes.CreateClass(ctx, service.CreateClassInput{
			Name:       s.name,
			Instructor: s.instructor,
			StartTime:  start,
			EndTime:    start.Add(time.Hour),
			Capacity:   s.capacity,
			TimeZone:   "UTC",
		}); err != nil {
			return 0, fmt.Errorf("create sample class %q: %w", s.name, err)
		}
	}

	log.Info("sample classes added", slog.Int("count", len(samples)))
	return len(samples), nil
}
