package clock

import (
	"sync"
	"time"
)

// Clock отдаёт текущий момент времени. Все правила бронирования и
// жизненного цикла занятий сравнивают моменты только через него.
type Clock interface {
	Now() time.Time
}

// System: реальные часы в опорной таймзоне.
type System struct {
	loc *time.Location
}

func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{loc: loc}
}

func (s System) Now() time.Time {
	return time.Now().In(s.loc)
}

func (s System) Location() *time.Location {
	return s.loc
}

// Fixed: управляемые часы для тестов.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
