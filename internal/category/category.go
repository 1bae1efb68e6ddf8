// Package category manages the ordered, user-editable list of category labels.
//
// Outfits reference categories by label, so removing or renaming a label here
// never touches existing outfits.
package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/ajitpratap0/closetlog/internal/prefs"
)

var (
	// ErrDuplicate is returned when a label already exists.
	ErrDuplicate = errors.New("category already exists")

	// ErrEmpty is returned for a blank label.
	ErrEmpty = errors.New("category name is empty")

	// ErrNotFound is returned when a label or index does not exist.
	ErrNotFound = errors.New("category not found")
)

// Temperature bands used as the default list. Weather recommendations map
// onto these labels.
const (
	Freezing   = "Freezing"
	Cold       = "Cold"
	Cool       = "Cool"
	Warm       = "Warm"
	Hot        = "Hot"
	Sweltering = "Sweltering"
)

// Defaults returns a fresh copy of the default category list.
func Defaults() []string {
	return []string{Freezing, Cold, Cool, Warm, Hot, Sweltering}
}

// Manager owns the category list and persists it whole on every change.
type Manager struct {
	mu     sync.Mutex
	labels []string
	prefs  prefs.Store
	logger *slog.Logger
}

// NewManager creates a manager holding the default list.
func NewManager(p prefs.Store, logger *slog.Logger) *Manager {
	return &Manager{labels: Defaults(), prefs: p, logger: logger}
}

// Load reads the persisted list. A missing list keeps the defaults; an
// unreadable one falls back to the defaults and returns an error.
func (m *Manager) Load(ctx context.Context) error {
	data, err := m.prefs.Get(ctx, prefs.KeyCategories)
	if errors.Is(err, prefs.ErrNotFound) {
		m.set(Defaults())
		return nil
	}
	if err != nil {
		m.set(Defaults())
		return fmt.Errorf("reading categories: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		m.set(Defaults())
		m.logger.Warn("stored categories unreadable, using defaults", "error", err)
		return fmt.Errorf("decoding categories: %w", err)
	}
	m.set(labels)
	return nil
}

func (m *Manager) set(labels []string) {
	m.mu.Lock()
	m.labels = labels
	m.mu.Unlock()
}

// List returns a copy of the labels in display order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.labels)
}

// Contains reports whether label exists.
func (m *Manager) Contains(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.labels, label)
}

// Add appends a trimmed label.
func (m *Manager) Add(ctx context.Context, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmpty
	}
	return m.mutate(ctx, func(labels []string) ([]string, error) {
		if slices.Contains(labels, label) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, label)
		}
		return append(labels, label), nil
	})
}

// Remove deletes label. Outfits in that category keep the label.
func (m *Manager) Remove(ctx context.Context, label string) error {
	return m.mutate(ctx, func(labels []string) ([]string, error) {
		i := slices.Index(labels, label)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
		}
		return slices.Delete(labels, i, i+1), nil
	})
}

// Move relocates the label at index from to index to.
func (m *Manager) Move(ctx context.Context, from, to int) error {
	return m.mutate(ctx, func(labels []string) ([]string, error) {
		if from < 0 || from >= len(labels) || to < 0 || to >= len(labels) {
			return nil, fmt.Errorf("%w: index %d -> %d out of range", ErrNotFound, from, to)
		}
		label := labels[from]
		labels = slices.Delete(labels, from, from+1)
		return slices.Insert(labels, to, label), nil
	})
}

// Rename changes a label in place. Existing outfits are not rewritten.
func (m *Manager) Rename(ctx context.Context, oldLabel, newLabel string) error {
	newLabel = strings.TrimSpace(newLabel)
	if newLabel == "" {
		return ErrEmpty
	}
	return m.mutate(ctx, func(labels []string) ([]string, error) {
		i := slices.Index(labels, oldLabel)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, oldLabel)
		}
		if newLabel != oldLabel && slices.Contains(labels, newLabel) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, newLabel)
		}
		labels[i] = newLabel
		return labels, nil
	})
}

// Reset restores the default list.
func (m *Manager) Reset(ctx context.Context) error {
	return m.mutate(ctx, func([]string) ([]string, error) {
		return Defaults(), nil
	})
}

// mutate applies fn to a copy and commits only if persisting succeeds.
func (m *Manager) mutate(ctx context.Context, fn func([]string) ([]string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(slices.Clone(m.labels))
	if err != nil {
		return err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	if err := m.prefs.Set(ctx, prefs.KeyCategories, data); err != nil {
		return fmt.Errorf("saving categories: %w", err)
	}
	m.labels = next
	m.logger.Debug("categories saved", "count", len(next))
	return nil
}
