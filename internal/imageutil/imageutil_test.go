package imageutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/closetlog/internal/blob"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func noisyImage(w, h int) *image.RGBA {
	r := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSquareCrop_CentersShortestEdge(t *testing.T) {
	cropped := SquareCrop(testImage(300, 200))
	assert.Equal(t, 200, cropped.Bounds().Dx())
	assert.Equal(t, 200, cropped.Bounds().Dy())

	// Column 0 of the crop is column 50 of the source.
	r, _, _, _ := cropped.At(0, 0).RGBA()
	assert.Equal(t, uint32(50), r>>8)
}

func TestResize_RejectsInvalidSize(t *testing.T) {
	_, err := Resize(testImage(10, 10), 0, 10)
	require.Error(t, err)

	out, err := Resize(testImage(100, 50), 32, 32)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), out.Bounds())
}

func TestCompress_LowersQualityUnderCeiling(t *testing.T) {
	img := noisyImage(256, 256)

	high, err := Compress(img, 90, 0)
	require.NoError(t, err)

	limited, err := Compress(img, 90, len(high)/1024/2)
	require.NoError(t, err)
	assert.Less(t, len(limited), len(high))

	_, err = jpeg.Decode(bytes.NewReader(limited))
	require.NoError(t, err)
}

func TestProcessForStorage_ProducesSquareJPEG(t *testing.T) {
	raw := encodePNG(t, testImage(640, 480))

	out, err := ProcessForStorage(raw, Options{TargetSize: 128, Quality: 80, MaxKB: 1024})
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 128, 128), img.Bounds())
}

func TestProcessForStorage_RejectsGarbage(t *testing.T) {
	_, err := ProcessForStorage([]byte("not an image"), DefaultOptions())
	require.ErrorIs(t, err, ErrUnreadable)
}

func TestDecodeCache_CachesAndFallsBack(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs := blob.NewMemoryStore()

	data, err := Compress(testImage(16, 16), 80, 0)
	require.NoError(t, err)
	ref, err := blobs.Save(ctx, data, "o1")
	require.NoError(t, err)
	blobs.Put("broken.jpg", []byte("garbage"))

	c, err := NewDecodeCache(blobs, 4, logger)
	require.NoError(t, err)

	assert.NotNil(t, c.Get(ctx, ref))
	assert.Equal(t, 1, c.Len())

	// Served from cache even when the blob disappears.
	require.NoError(t, blobs.Delete(ctx, ref))
	assert.NotNil(t, c.Get(ctx, ref))

	c.Invalidate(ref)
	assert.Nil(t, c.Get(ctx, ref), "missing blob falls back to placeholder")
	assert.Nil(t, c.Get(ctx, "broken.jpg"), "undecodable blob falls back to placeholder")
	assert.Nil(t, c.Get(ctx, ""))
}
