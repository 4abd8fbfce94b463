package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/fitness-booking/internal/model"
)

type ClassRepository interface {
	// Получить занятие по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error)
	// Получить занятие с эксклюзивной блокировкой строки до конца транзакции.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error)
	// Все занятия по времени начала.
	List(ctx context.Context) ([]model.FitnessClass, error)
	// Активные upcoming-занятия, закончившиеся раньше cutoff, под блокировкой.
	ListEndedBeforeForUpdate(ctx context.Context, cutoff time.Time) ([]model.FitnessClass, error)
	// Активные upcoming-занятия, идущие в момент now, под блокировкой.
	ListInProgressForUpdate(ctx context.Context, now time.Time) ([]model.FitnessClass, error)
	Create(ctx context.Context, class *model.FitnessClass) error
	// Сохранить все поля занятия.
	Save(ctx context.Context, class *model.FitnessClass) error
	// Атомарно занять одно место. false, если мест уже нет.
	DecrementSlot(ctx context.Context, id uuid.UUID) (bool, error)
	// Переписать число свободных мест.
	UpdateSlots(ctx context.Context, id uuid.UUID, slots int) error
	Count(ctx context.Context) (int64, error)
}

type GormClassRepository struct {
	db *gorm.DB
}

func NewGormClassRepository(db *gorm.DB) *GormClassRepository {
	return &GormClassRepository{db: db}
}

func (r *GormClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error) {
	var c model.FitnessClass
	if err := conn(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormClassRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.FitnessClass, error) {
	var c model.FitnessClass
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormClassRepository) List(ctx context.Context) ([]model.FitnessClass, error) {
	var classes []model.FitnessClass
	if err := conn(ctx, r.db).Order("start_time ASC").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *GormClassRepository) ListEndedBeforeForUpdate(ctx context.Context, cutoff time.Time) ([]model.FitnessClass, error) {
	var classes []model.FitnessClass
	err := r.upcomingActive(ctx).
		Where("end_time < ?", cutoff.UTC()).
		Order("end_time ASC").
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *GormClassRepository) ListInProgressForUpdate(ctx context.Context, now time.Time) ([]model.FitnessClass, error) {
	var classes []model.FitnessClass
	now = now.UTC()
	err := r.upcomingActive(ctx).
		Where("start_time < ? AND end_time > ?", now, now).
		Order("start_time ASC").
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *GormClassRepository) upcomingActive(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND is_active = ?", model.ClassStatusUpcoming, true)
}

func (r *GormClassRepository) Create(ctx context.Context, class *model.FitnessClass) error {
	return conn(ctx, r.db).Create(class).Error
}

func (r *GormClassRepository) Save(ctx context.Context, class *model.FitnessClass) error {
	return conn(ctx, r.db).Save(class).Error
}

func (r *GormClassRepository) DecrementSlot(ctx context.Context, id uuid.UUID) (bool, error) {
	res := conn(ctx, r.db).
		Model(&model.FitnessClass{}).
		Where("id = ? AND available_slots > 0", id).
		UpdateColumn("available_slots", gorm.Expr("available_slots - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormClassRepository) UpdateSlots(ctx context.Context, id uuid.UUID, slots int) error {
	return conn(ctx, r.db).
		Model(&model.FitnessClass{}).
		Where("id = ?", id).
		Update("available_slots", slots).
		Error
}

func (r *GormClassRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&model.FitnessClass{}).Count(&n).Error
	return n, err
}
