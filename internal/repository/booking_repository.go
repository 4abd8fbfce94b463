package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/fitness-booking/internal/model"
)

type BookingRepository interface {
	// Создать новое бронирование.
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Все брони клиента вместе с занятиями, свежие первыми.
	ListByEmail(ctx context.Context, email string) ([]model.Booking, error)
	// Есть ли неотменённая бронь клиента на занятие.
	HasActive(ctx context.Context, classID uuid.UUID, email string) (bool, error)
	// Неотменённые брони клиента на занятия, начинающиеся позже now.
	CountUpcomingByEmail(ctx context.Context, email string, now time.Time) (int64, error)
	// Неотменённые брони на занятие.
	CountActive(ctx context.Context, classID uuid.UUID) (int64, error)
	// Неотменённые брони с отметкой о посещении.
	CountCheckedIn(ctx context.Context, classID uuid.UUID) (int64, error)
	// Отменить все активные брони занятия, вернуть отменённые.
	CancelByClass(ctx context.Context, classID uuid.UUID) ([]model.Booking, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID) error
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return conn(ctx, r.db).Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := conn(ctx, r.db).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) ListByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := conn(ctx, r.db).
		Preload("Class").
		Where("client_email = ?", model.NormalizeEmail(email)).
		Order("booking_time DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) HasActive(ctx context.Context, classID uuid.UUID, email string) (bool, error) {
	var n int64
	err := r.active(ctx).
		Where("class_id = ? AND client_email = ?", classID, model.NormalizeEmail(email)).
		Count(&n).Error
	return n > 0, err
}

func (r *GormBookingRepository) CountUpcomingByEmail(ctx context.Context, email string, now time.Time) (int64, error) {
	var n int64
	err := r.active(ctx).
		Joins("JOIN classes ON classes.id = bookings.class_id").
		Where("bookings.client_email = ? AND classes.start_time > ?", model.NormalizeEmail(email), now.UTC()).
		Count(&n).Error
	return n, err
}

func (r *GormBookingRepository) CountActive(ctx context.Context, classID uuid.UUID) (int64, error) {
	var n int64
	err := r.active(ctx).Where("bookings.class_id = ?", classID).Count(&n).Error
	return n, err
}

func (r *GormBookingRepository) CountCheckedIn(ctx context.Context, classID uuid.UUID) (int64, error) {
	var n int64
	err := r.active(ctx).
		Where("bookings.class_id = ? AND bookings.checked_in = ?", classID, true).
		Count(&n).Error
	return n, err
}

func (r *GormBookingRepository) CancelByClass(ctx context.Context, classID uuid.UUID) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := r.active(ctx).Where("bookings.class_id = ?", classID).Find(&bookings).Error; err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, nil
	}

	err := conn(ctx, r.db).
		Model(&model.Booking{}).
		Where("class_id = ? AND is_cancelled = ?", classID, false).
		Update("is_cancelled", true).Error
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].IsCancelled = true
	}
	return bookings, nil
}

func (r *GormBookingRepository) MarkCheckedIn(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Update("checked_in", true).
		Error
}

func (r *GormBookingRepository) active(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Model(&model.Booking{}).
		Where("bookings.is_cancelled = ?", false)
}
