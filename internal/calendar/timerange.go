package calendar

import (
	"errors"
	"time"
	_ "time/tzdata"

	"github.com/Leganyst/fitness-booking/internal/model"
)

var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал; границы обязательны, End строго позже Start.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Window возвращает интервал проведения занятия.
func Window(c *model.FitnessClass) TimeRange {
	return TimeRange{Start: c.StartTime, End: c.EndTime}
}

func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Contains: строго внутри интервала, границы не включаются.
func (tr TimeRange) Contains(t time.Time) bool {
	return t.After(tr.Start) && t.Before(tr.End)
}

// In переводит обе границы в таймзону loc; сами моменты не меняются.
func (tr TimeRange) In(loc *time.Location) TimeRange {
	if loc == nil {
		return tr
	}
	return TimeRange{Start: tr.Start.In(loc), End: tr.End.In(loc)}
}

// LoadLocation разбирает IANA-имя таймзоны. Пустое имя означает UTC.
func LoadLocation(name string) (*time.Location, *Rejection) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, Invalid("unknown timezone %q", name)
	}
	return loc, nil
}
