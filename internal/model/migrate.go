package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей сервиса бронирования.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&FitnessClass{},
		&Booking{},
		&Event{},
	)
}
