package calendar

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinClassNameLen  = 2
	MaxClassNameLen  = 50
	MaxClassDuration = 3 * time.Hour
	MinCapacity      = 2
	MaxCapacity      = 100
)

var classNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-]+$`)

// NormalizeClassName проверяет название и приводит его к Title Case.
func NormalizeClassName(name string) (string, *Rejection) {
	name = strings.TrimSpace(name)
	if n := len(name); n < MinClassNameLen || n > MaxClassNameLen {
		return "", Invalid("class name must be %d-%d characters", MinClassNameLen, MaxClassNameLen)
	}
	if !classNamePattern.MatchString(name) {
		return "", Invalid("class name may contain only letters, digits, spaces and hyphens")
	}
	return cases.Title(language.English).String(name), nil
}

func NormalizeInstructor(name string) (string, *Rejection) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < MinClassNameLen || n > MaxClassNameLen {
		return "", Invalid("instructor must be %d-%d characters", MinClassNameLen, MaxClassNameLen)
	}
	return name, nil
}

// ValidateSchedule: конец позже начала, длительность не больше MaxClassDuration.
func ValidateSchedule(start, end time.Time) *Rejection {
	tr, err := NewTimeRange(start, end)
	if err != nil {
		return Invalid("end_time must be after start_time")
	}
	if tr.Duration() > MaxClassDuration {
		return Invalid("class cannot be longer than %s", MaxClassDuration)
	}
	return nil
}

func ValidateCapacity(capacity int) *Rejection {
	if capacity < MinCapacity || capacity > MaxCapacity {
		return Invalid("capacity must be between %d and %d", MinCapacity, MaxCapacity)
	}
	return nil
}

// ResizeSlots пересчитывает свободные места при смене вместимости.
// Вместимость не может стать меньше числа активных броней.
func ResizeSlots(capacity int, activeBookings int64) (int, *Rejection) {
	if int64(capacity) < activeBookings {
		return 0, Reject(ReasonCapacityBelowBookings,
			"capacity %d is below the %d current bookings", capacity, activeBookings)
	}
	return capacity - int(activeBookings), nil
}
