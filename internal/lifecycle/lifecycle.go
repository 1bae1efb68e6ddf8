// Package lifecycle runs maintenance over the stored wardrobe: moving legacy
// inline images into the blob store, sweeping image blobs no outfit
// references, and seeding the item-name index from existing outfits.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/names"
	"github.com/ajitpratap0/closetlog/internal/store"
)

// Report summarizes the results of a lifecycle run.
type Report struct {
	MigratedImages    int  `json:"migrated_images"`
	FailedImages      int  `json:"failed_images"`
	DroppedInline     int  `json:"dropped_inline"`
	OrphanBlobs       int  `json:"orphan_blobs"`
	NamesBootstrapped bool `json:"names_bootstrapped"`
	// SkippedUnloaded is set when the collection did not load cleanly and
	// the steps that read it as complete were skipped.
	SkippedUnloaded bool `json:"skipped_unloaded,omitempty"`
}

// Manager handles wardrobe maintenance.
type Manager struct {
	store  *store.Store
	blobs  blob.Store
	names  *names.Index
	logger *slog.Logger
}

// NewManager creates a new lifecycle manager. idx may be nil.
func NewManager(st *store.Store, blobs blob.Store, idx *names.Index, logger *slog.Logger) *Manager {
	return &Manager{
		store:  st,
		blobs:  blobs,
		names:  idx,
		logger: logger,
	}
}

// Run executes all maintenance steps. With dryRun nothing is written and the
// report counts what would change.
func (m *Manager) Run(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{}

	// An empty fallback collection references no images and holds no item
	// names, so sweeping or seeding from it would destroy real data.
	if m.store.Degraded() {
		m.logger.Warn("collection did not load cleanly, skipping maintenance")
		report.SkippedUnloaded = true
		return report, nil
	}

	// 1. Inline images
	m.migrateInline(ctx, dryRun, report)

	// 2. Orphaned blobs, after migration so fresh refs are seen
	orphans, err := m.sweepOrphans(ctx, dryRun)
	if err != nil {
		m.logger.Error("orphan sweep failed", "error", err)
	}
	report.OrphanBlobs = orphans

	// 3. Name index
	if m.names != nil {
		if dryRun {
			report.NamesBootstrapped = m.names.Len() == 0
		} else {
			done, err := m.names.Bootstrap(ctx, m.store.Snapshot().Outfits)
			if err != nil {
				m.logger.Error("name index bootstrap failed", "error", err)
			}
			report.NamesBootstrapped = done
		}
	}

	if !dryRun {
		if err := m.store.Flush(ctx); err != nil {
			return report, fmt.Errorf("saving collection: %w", err)
		}
	}
	return report, nil
}

// migrateInline moves legacy inline image bytes into the blob store. Records
// that already have a reference just drop the inline copy.
func (m *Manager) migrateInline(ctx context.Context, dryRun bool, report *Report) {
	for _, o := range m.store.Snapshot().Outfits {
		if len(o.ImageData) == 0 {
			continue
		}
		if o.ImageRef != "" {
			m.logger.Info("dropping inline image shadowed by blob", "id", o.ID, "ref", o.ImageRef)
			if !dryRun {
				m.store.Modify(o.ID, func(rec *models.Outfit) bool {
					if len(rec.ImageData) == 0 {
						return false
					}
					rec.ImageData = nil
					return true
				})
			}
			report.DroppedInline++
			continue
		}

		m.logger.Info("migrating inline image", "id", o.ID, "bytes", len(o.ImageData))
		if dryRun {
			report.MigratedImages++
			continue
		}
		if _, err := m.store.SetImage(ctx, o.ID, o.ImageData); err != nil {
			m.logger.Error("migrating inline image", "id", o.ID, "error", err)
			report.FailedImages++
			continue
		}
		report.MigratedImages++
	}
}

// sweepOrphans deletes blobs that no outfit references.
func (m *Manager) sweepOrphans(ctx context.Context, dryRun bool) (int, error) {
	refs, err := m.blobs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing blobs: %w", err)
	}

	used := make(map[string]struct{})
	for _, o := range m.store.Snapshot().Outfits {
		if o.ImageRef != "" {
			used[o.ImageRef] = struct{}{}
		}
	}

	swept := 0
	for _, ref := range refs {
		if _, ok := used[ref]; ok {
			continue
		}
		m.logger.Info("removing orphaned image", "ref", ref)
		if !dryRun {
			if err := m.blobs.Delete(ctx, ref); err != nil {
				m.logger.Error("deleting orphaned image", "ref", ref, "error", err)
				continue
			}
		}
		swept++
	}
	return swept, nil
}
