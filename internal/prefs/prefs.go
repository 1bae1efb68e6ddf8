// Package prefs is the local key-value preference store. Each logical table
// (outfit collection, category list, name index structures) is persisted as one
// serialized blob under its own key.
package prefs

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("preference not found")

// Keys of the persisted tables.
const (
	KeyOutfits         = "outfits"
	KeyCategories      = "categories"
	KeyAllItemNames    = "allItemNames"
	KeyRecentItemNames = "recentItemNames"
	KeyItemFrequency   = "itemFrequency"
)

// Store is a flat key to bytes store. Set replaces the whole value atomically.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set atomically replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// Driver names a preference store backend.
type Driver string

const (
	DriverBolt   Driver = "bolt"
	DriverSQLite Driver = "sqlite"
	DriverMemory Driver = "memory"
)

// ValidDrivers is the set of supported drivers.
var ValidDrivers = []Driver{DriverBolt, DriverSQLite, DriverMemory}

// IsValid returns true if the driver is recognized.
func (d Driver) IsValid() bool {
	for _, v := range ValidDrivers {
		if d == v {
			return true
		}
	}
	return false
}

// Open constructs the store for driver. path is ignored by the memory driver.
func Open(driver Driver, path string) (Store, error) {
	switch driver {
	case DriverBolt:
		return NewBoltStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("prefs: unknown driver %q", driver)
	}
}
