package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound возвращается, когда запись не найдена.
var ErrNotFound = errors.New("record not found")

type txKey struct{}

// Transactor открывает транзакцию и прокидывает её через ctx:
// все репозитории, вызванные с txCtx, работают внутри неё.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error
	// LockKey берёт транзакционную advisory-блокировку по ключу.
	LockKey(ctx context.Context, key string) error
}

type GormTransactor struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewGormTransactor(db *gorm.DB, lockTimeout time.Duration) *GormTransactor {
	return &GormTransactor{db: db, lockTimeout: lockTimeout}
}

func (t *GormTransactor) WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	// Вложенный вызов переиспользует уже открытую транзакцию.
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPostgres(tx) && t.lockTimeout > 0 {
			// SET не принимает параметры, поэтому значение подставляется строкой.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock_timeout: %w", err)
			}
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (t *GormTransactor) LockKey(ctx context.Context, key string) error {
	db := conn(ctx, t.db)
	if !isPostgres(db) {
		// sqlite и так сериализует писателей.
		return nil
	}
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// conn возвращает транзакцию из ctx, если она есть, иначе обычное соединение.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
