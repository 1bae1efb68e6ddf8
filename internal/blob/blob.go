// Package blob stores compressed outfit images keyed by a reference string.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when the reference has no stored bytes.
var ErrNotFound = errors.New("blob not found")

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// ValidDrivers is the set of supported drivers.
var ValidDrivers = []Driver{DriverFilesystem, DriverS3, DriverMemory}

// IsValid reports whether d is a supported driver.
func (d Driver) IsValid() bool {
	for _, v := range ValidDrivers {
		if d == v {
			return true
		}
	}
	return false
}

// Open returns the Store for driver. dir is used by the filesystem driver and
// s3 by the S3 driver.
func Open(ctx context.Context, driver Driver, dir string, s3 S3Config) (Store, error) {
	switch driver {
	case DriverFilesystem, "":
		return NewFSStore(dir)
	case DriverS3:
		return NewS3Store(ctx, s3)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}

// Store saves, loads and deletes image bytes.
type Store interface {
	// Save writes data for ownerID and returns the reference to store on the record.
	// Saving twice for the same owner overwrites the previous bytes.
	Save(ctx context.Context, data []byte, ownerID string) (string, error)

	// Load returns the bytes for ref or ErrNotFound.
	Load(ctx context.Context, ref string) ([]byte, error)

	// Delete removes ref. Deleting an absent reference is not an error.
	Delete(ctx context.Context, ref string) error

	// List returns every stored reference, sorted.
	List(ctx context.Context) ([]string, error)

	Driver() Driver
}

// RefFor returns the reference used for an owner's image.
func RefFor(ownerID string) string {
	return ownerID + ".jpg"
}

// sanitizeRef ensures ref can't escape the store root.
func sanitizeRef(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("empty reference")
	}
	if strings.Contains(ref, "..") || strings.ContainsAny(ref, `/\`) {
		return "", fmt.Errorf("invalid reference %q", ref)
	}
	return ref, nil
}
