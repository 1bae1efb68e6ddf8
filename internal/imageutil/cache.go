package imageutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ajitpratap0/closetlog/internal/blob"
)

// DefaultCacheSize is the number of decoded images kept by a DecodeCache.
const DefaultCacheSize = 64

// DecodeCache keeps decoded images keyed by image reference. It belongs to the
// presentation layer; persisted records only carry the reference.
type DecodeCache struct {
	blobs  blob.Store
	cache  *lru.Cache[string, image.Image]
	logger *slog.Logger
}

// NewDecodeCache creates a cache holding up to size decoded images.
func NewDecodeCache(blobs blob.Store, size int, logger *slog.Logger) (*DecodeCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, image.Image](size)
	if err != nil {
		return nil, fmt.Errorf("imageutil: creating cache: %w", err)
	}
	return &DecodeCache{blobs: blobs, cache: c, logger: logger}, nil
}

// Get returns the decoded image for ref. Any load or decode failure yields nil
// so the caller renders a placeholder.
func (d *DecodeCache) Get(ctx context.Context, ref string) image.Image {
	if ref == "" {
		return nil
	}
	if img, ok := d.cache.Get(ref); ok {
		return img
	}
	data, err := d.blobs.Load(ctx, ref)
	if err != nil {
		d.logger.Warn("image load failed, using placeholder", "ref", ref, "error", err)
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.logger.Warn("image decode failed, using placeholder", "ref", ref, "error", err)
		return nil
	}
	d.cache.Add(ref, img)
	return img
}

// Invalidate drops ref, e.g. after the image was replaced or deleted.
func (d *DecodeCache) Invalidate(ref string) {
	d.cache.Remove(ref)
}

// Len returns the number of cached images.
func (d *DecodeCache) Len() int {
	return d.cache.Len()
}
