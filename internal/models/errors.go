package models

import "errors"

// Common validation errors for models.
var (
	// ErrCacheKeyRequired indicates a cache entry has no key.
	ErrCacheKeyRequired = errors.New("cache key is required")

	// ErrCacheExpiryRequired indicates a cache entry has no expiry.
	ErrCacheExpiryRequired = errors.New("cache expiry is required")
)
