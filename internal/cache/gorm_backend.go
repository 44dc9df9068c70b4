package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaptv/zaptv/internal/database"
	"github.com/zaptv/zaptv/internal/models"
)

// GormBackend persists cache entries in the application database.
type GormBackend struct {
	db *database.DB
}

// NewGormBackend creates a backend over the given database connection.
func NewGormBackend(db *database.DB) *GormBackend {
	return &GormBackend{db: db}
}

// Get implements Backend.
func (b *GormBackend) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := b.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put implements Backend with an upsert on the key column.
func (b *GormBackend) Put(ctx context.Context, entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID.IsZero() {
		entry.ID = models.NewULID()
	}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body_kind", "payload", "expires_at", "updated_at"}),
	}).Create(entry).Error
}

// DeleteByPrefix implements Backend.
func (b *GormBackend) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	res := b.db.WithContext(ctx).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Delete(&models.CacheEntry{})
	return res.RowsAffected, res.Error
}

// DeleteExpired implements Backend.
func (b *GormBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := b.db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.CacheEntry{})
	return res.RowsAffected, res.Error
}

// escapeLike escapes LIKE wildcards so prefixes match literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
