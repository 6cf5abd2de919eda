package persistence

import (
	"context"
	"fmt"

	"github.com/im7mortal/kmutex"
	"gorm.io/gorm"
)

// KeyedTransactor runs transactions serialized per key.
//
// Inside one process a keyed mutex orders callers; across processes sharing a
// Postgres store, the transaction first takes pg_advisory_xact_lock on the
// key, released automatically at commit or rollback.
type KeyedTransactor struct {
	db   *gorm.DB
	keys *kmutex.Kmutex
}

// NewKeyedTransactor creates a KeyedTransactor over db
func NewKeyedTransactor(db *gorm.DB) *KeyedTransactor {
	return &KeyedTransactor{db: db, keys: kmutex.New()}
}

// InTransaction runs fn in a transaction holding the lock of key
func (t *KeyedTransactor) InTransaction(ctx context.Context, key string, fn func(tx *gorm.DB) error) error {
	t.keys.Lock(key)
	defer t.keys.Unlock(key)

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AdvisoryLock(ctx, tx, key); err != nil {
			return err
		}
		return fn(tx)
	})
}

// AdvisoryLock takes a transaction-scoped advisory lock on key.
// Dialects without advisory locks rely on the in-process mutex alone.
func AdvisoryLock(ctx context.Context, tx *gorm.DB, key string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return nil
}
