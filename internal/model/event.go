package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Тип события аудита.
type EventType string

const (
	EventTypeBookingCreated       EventType = "booking_created"
	EventTypeBookingCheckedIn     EventType = "booking_checked_in"
	EventTypeClassCreated         EventType = "class_created"
	EventTypeClassUpdated         EventType = "class_updated"
	EventTypeClassCancelled       EventType = "class_cancelled"
	EventTypeClassCompleted       EventType = "class_completed"
	EventTypeClassSlotsReconciled EventType = "class_slots_reconciled"
)

// events — журнал изменений состояния. Пишется в той же транзакции,
// что и само изменение.
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	ClassID   *uuid.UUID `gorm:"type:uuid;index"`
	BookingID *uuid.UUID `gorm:"type:uuid;index"`

	Details datatypes.JSON

	// Навигационные поля
	Class   *FitnessClass `gorm:"foreignKey:ClassID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Booking *Booking      `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
