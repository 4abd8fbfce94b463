package calendar

import (
	"time"

	"github.com/Leganyst/fitness-booking/internal/model"
)

// Через сколько после окончания занятие считается завершённым.
const CompletionGrace = 15 * time.Minute

// Допустимые переходы: upcoming -> completed, upcoming -> cancelled.
// completed и cancelled терминальны.
var transitions = map[model.ClassStatus][]model.ClassStatus{
	model.ClassStatusUpcoming: {model.ClassStatusCompleted, model.ClassStatusCancelled},
}

func CanTransition(from, to model.ClassStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s model.ClassStatus) bool {
	return len(transitions[s]) == 0
}

// CompletionDue: занятие активно, upcoming и закончилось больше CompletionGrace назад.
func CompletionDue(c *model.FitnessClass, now time.Time) bool {
	return c.Status == model.ClassStatusUpcoming &&
		c.IsActive &&
		now.After(c.EndTime.Add(CompletionGrace))
}

// InProgress: занятие активно, upcoming и идёт прямо сейчас (start < now < end).
func InProgress(c *model.FitnessClass, now time.Time) bool {
	return c.Status == model.ClassStatusUpcoming &&
		c.IsActive &&
		Window(c).Contains(now)
}

// RecomputeSlots считает свободные места по факту посещения: capacity минус отметившиеся.
func RecomputeSlots(capacity int, checkedIn int64) int {
	free := int64(capacity) - checkedIn
	if free < 0 {
		return 0
	}
	return int(free)
}

// Complete переводит занятие в completed и пересчитывает свободные места.
func Complete(c *model.FitnessClass, checkedIn int64) *Rejection {
	if !CanTransition(c.Status, model.ClassStatusCompleted) {
		return Reject(ReasonInvalidStateTransition, "class %q is %s and cannot be completed", c.Name, c.Status)
	}
	c.Status = model.ClassStatusCompleted
	c.AvailableSlots = RecomputeSlots(c.Capacity, checkedIn)
	return nil
}

// Cancel переводит занятие в cancelled: мест нет, занятие неактивно.
// Каскадная отмена броней остаётся за вызывающим.
func Cancel(c *model.FitnessClass) *Rejection {
	if !CanTransition(c.Status, model.ClassStatusCancelled) {
		return Reject(ReasonInvalidStateTransition, "class %q is %s and cannot be cancelled", c.Name, c.Status)
	}
	c.Status = model.ClassStatusCancelled
	c.AvailableSlots = 0
	c.IsActive = false
	return nil
}
