package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// bookings
//
// Пара (class_id, client_email) уникальна только среди неотменённых записей:
// отменённая бронь не мешает записаться на то же занятие повторно.
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ClassID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_bookings_class_email_active,where:is_cancelled = false"`
	ClientName  string    `gorm:"type:varchar(100);not null"`
	ClientEmail string    `gorm:"type:varchar(255);not null;index;uniqueIndex:idx_bookings_class_email_active"`

	BookingTime time.Time `gorm:"not null"`

	CheckedIn   bool `gorm:"not null;default:false"`
	IsCancelled bool `gorm:"not null;default:false;index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Class *FitnessClass `gorm:"foreignKey:ClassID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Booking) BeforeSave(tx *gorm.DB) error {
	b.ClientEmail = NormalizeEmail(b.ClientEmail)
	b.BookingTime = b.BookingTime.UTC()
	return nil
}

// NormalizeEmail приводит адрес к виду, в котором он хранится и сравнивается.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
