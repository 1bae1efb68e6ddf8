// Package imageutil prepares outfit photos for storage: square crop, resize
// and JPEG compression under a size ceiling.
package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // decode PNG uploads

	"golang.org/x/image/draw"
)

const (
	// DefaultTargetSize is the edge length, in pixels, of stored images.
	DefaultTargetSize = 512

	// DefaultQuality is the starting JPEG quality.
	DefaultQuality = 80

	// DefaultMaxKB is the size ceiling for a stored image.
	DefaultMaxKB = 1024

	minQuality  = 10
	qualityStep = 10
)

// ErrUnreadable is returned when uploaded bytes are not a JPEG or PNG image.
var ErrUnreadable = errors.New("imageutil: unreadable image")

// Options controls ProcessForStorage.
type Options struct {
	TargetSize int
	Quality    int
	MaxKB      int
}

// DefaultOptions returns the storage settings used by the app.
func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, Quality: DefaultQuality, MaxKB: DefaultMaxKB}
}

// SquareCrop returns the centered square of img.
func SquareCrop(img image.Image) image.Image {
	b := img.Bounds()
	size := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2
	rect := image.Rect(0, 0, size, size)

	dst := image.NewRGBA(rect)
	draw.Draw(dst, rect, img, image.Point{X: x0, Y: y0}, draw.Src)
	return dst
}

// Resize scales img to w×h.
func Resize(img image.Image, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("imageutil: invalid target size %dx%d", w, h)
	}
	if img.Bounds().Empty() {
		return nil, errors.New("imageutil: empty image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst, nil
}

// Compress encodes img as JPEG, lowering quality in steps of 10 while the
// encoding exceeds maxKB and quality stays above 10.
func Compress(img image.Image, quality, maxKB int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	limit := maxKB * 1024

	var buf bytes.Buffer
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("imageutil: encoding jpeg: %w", err)
		}
		if maxKB <= 0 || buf.Len() <= limit || quality-qualityStep < minQuality {
			break
		}
		quality -= qualityStep
	}
	return buf.Bytes(), nil
}

// ProcessForStorage decodes raw (JPEG or PNG), crops it square, resizes it to
// the target edge and compresses it. When resizing is impossible the original
// image is compressed as is.
func ProcessForStorage(raw []byte, opts Options) ([]byte, error) {
	if opts.TargetSize <= 0 {
		opts.TargetSize = DefaultTargetSize
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	resized, err := Resize(SquareCrop(img), opts.TargetSize, opts.TargetSize)
	if err != nil {
		return Compress(img, opts.Quality, opts.MaxKB)
	}
	return Compress(resized, opts.Quality, opts.MaxKB)
}
