package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaptv/zaptv/internal/config"
	"github.com/zaptv/zaptv/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		LogLevel:        "silent",
	}

	db, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	return db
}

func TestNew_SQLite(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, "sqlite", db.Driver())
}

func TestNew_InvalidDriver(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "invalid", DSN: ":memory:"}

	db, err := New(cfg, nil)
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDB_Close(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}

func TestDB_MigrateAndStoreEntry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	entry := models.CacheEntry{
		Key:       "zaptv:live_categories:http://host:user:all",
		BodyKind:  "json",
		Payload:   []byte(`[{"category_id":"1"}]`),
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, db.Create(&entry).Error)
	assert.False(t, entry.ID.IsZero(), "BeforeCreate must assign a ULID")

	var got models.CacheEntry
	require.NoError(t, db.Where("key = ?", entry.Key).First(&got).Error)
	assert.Equal(t, entry.Payload, got.Payload)
	assert.Equal(t, "json", got.BodyKind)
}

func TestDB_RejectsInvalidEntry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := db.Create(&models.CacheEntry{ExpiresAt: time.Now()}).Error
	assert.ErrorIs(t, err, models.ErrCacheKeyRequired)
}
