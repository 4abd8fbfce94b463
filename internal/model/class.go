package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статус занятия.
type ClassStatus string

const (
	ClassStatusUpcoming  ClassStatus = "upcoming"
	ClassStatusCompleted ClassStatus = "completed"
	ClassStatusCancelled ClassStatus = "cancelled"
)

// classes — групповые занятия. Не удаляются физически, только отменяются.
type FitnessClass struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name       string `gorm:"type:varchar(50);not null"`
	Instructor string `gorm:"type:varchar(50);not null"`

	// Всегда хранится в UTC.
	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null;index;check:chk_classes_time_window,end_time > start_time"`
	// Метка таймзоны, в которой занятие показывается по умолчанию.
	TimeZone string `gorm:"type:varchar(64);not null"`

	Capacity       int `gorm:"not null;check:chk_classes_capacity,capacity > 1"`
	AvailableSlots int `gorm:"not null;check:chk_classes_available_slots,available_slots >= 0 AND available_slots <= capacity"`

	Status   ClassStatus `gorm:"type:varchar(16);not null;index"`
	IsActive bool        `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FitnessClass) TableName() string {
	return "classes"
}

func (c *FitnessClass) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *FitnessClass) BeforeSave(tx *gorm.DB) error {
	c.StartTime = c.StartTime.UTC()
	c.EndTime = c.EndTime.UTC()
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
	return nil
}
