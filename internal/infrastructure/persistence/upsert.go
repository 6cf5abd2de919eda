package persistence

import (
	"context"
	"errors"

	"github.com/erp/catalogsync/internal/domain/shared"
	"gorm.io/gorm"
)

// Keyed is implemented by models identified by a natural key
type Keyed interface {
	// NaturalKey returns the identifying column values, keyed by column name
	NaturalKey() map[string]any
}

// Upsert writes row by its natural key and returns the stored row.
//
// A row that does not exist, soft-deleted rows included, is inserted.
// An existing row has every column overwritten by row, zero values included,
// except created_at and the preserve columns. Store errors are returned unchanged.
func Upsert[T any, PT interface {
	*T
	Keyed
}](ctx context.Context, db *gorm.DB, row PT, preserve ...string) (PT, error) {
	db = db.WithContext(ctx)

	existing := PT(new(T))
	err := db.Unscoped().Where(row.NaturalKey()).Take(existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := db.Create(row).Error; err != nil {
			return nil, err
		}
		return row, nil
	}
	if err != nil {
		return nil, err
	}

	omit := append([]string{"created_at"}, preserve...)
	if err := db.Unscoped().Model(existing).Select("*").Omit(omit...).Updates(row).Error; err != nil {
		return nil, err
	}

	stored := PT(new(T))
	if err := db.Unscoped().Where(row.NaturalKey()).Take(stored).Error; err != nil {
		return nil, err
	}
	return stored, nil
}

// FindByKey loads the live row identified by key, or shared.ErrNotFound
func FindByKey[T any](ctx context.Context, db *gorm.DB, key map[string]any) (*T, error) {
	var row T
	if err := db.WithContext(ctx).Where(key).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// SoftDelete timestamps the deleted_at column of the row identified by key.
// It reports whether a live row was deleted; an unknown key is not an error.
func SoftDelete[T any](ctx context.Context, db *gorm.DB, key map[string]any) (bool, error) {
	result := db.WithContext(ctx).Where(key).Delete(new(T))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
