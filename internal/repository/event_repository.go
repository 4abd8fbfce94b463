package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/fitness-booking/internal/model"
)

type EventRepository interface {
	// Дописать событие аудита; details сериализуется в JSON.
	Append(ctx context.Context, eventType model.EventType, classID, bookingID *uuid.UUID, details any) error
	// События по занятию в порядке появления.
	ListByClass(ctx context.Context, classID uuid.UUID) ([]model.Event, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Append(
	ctx context.Context,
	eventType model.EventType,
	classID, bookingID *uuid.UUID,
	details any,
) error {
	var payload datatypes.JSON
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		payload = datatypes.JSON(b)
	}

	return conn(ctx, r.db).Create(&model.Event{
		EventType: eventType,
		ClassID:   classID,
		BookingID: bookingID,
		Details:   payload,
	}).Error
}

func (r *GormEventRepository) ListByClass(ctx context.Context, classID uuid.UUID) ([]model.Event, error) {
	var events []model.Event
	err := conn(ctx, r.db).
		Where("class_id = ?", classID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
