package models

import (
	"time"

	"gorm.io/gorm"
)

// CacheEntry is one cached upstream payload. Key carries the full composite
// cache key (namespace:kind:server:identity:selector); BodyKind records how
// the payload was interpreted at fetch time so it can be rehydrated without
// re-sniffing.
type CacheEntry struct {
	BaseModel
	Key       string    `gorm:"uniqueIndex;size:512;not null" json:"key"`
	BodyKind  string    `gorm:"size:16;not null;default:text" json:"body_kind"`
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

// TableName returns the database table name.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// Validate checks the entry for required fields.
func (e *CacheEntry) Validate() error {
	if e.Key == "" {
		return ErrCacheKeyRequired
	}
	if e.ExpiresAt.IsZero() {
		return ErrCacheExpiryRequired
	}
	return nil
}

// BeforeCreate validates the entry and assigns an ID.
func (e *CacheEntry) BeforeCreate(tx *gorm.DB) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return e.BaseModel.BeforeCreate(tx)
}

// Expired reports whether the entry is stale at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
