// Package imaging re-encodes uploaded chat images into bounded JPEGs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrUnsupported = errors.New("unsupported image format")

// DefaultMaxPixels bounds the decoded size when Options.MaxPixels is unset.
const DefaultMaxPixels = 40_000_000

type Options struct {
	MaxDimension int   `json:",default=1600"`
	Quality      int   `json:",default=80"`
	MaxBytes     int64 `json:",default=10485760"`
	MaxPixels    int64 `json:",default=40000000"`
}

type Result struct {
	Data         []byte
	MIME         string
	Width        int
	Height       int
	OriginalMIME string
}

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Reencode decodes data, scales it down to fit MaxDimension and encodes a
// JPEG at the configured quality. The output always differs from the input.
// Images whose header declares more than MaxPixels are refused before any
// pixel buffer is allocated.
func Reencode(data []byte, opt Options) (*Result, error) {
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrUnsupported, len(data))
	}
	mt := mimetype.Detect(data)
	if !accepted[mt.String()] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
	}
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	limit := opt.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if px := int64(hdr.Width) * int64(hdr.Height); px > limit {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupported, hdr.Width, hdr.Height, limit)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	dst := fit(src, opt.MaxDimension)

	q := opt.Quality
	if q <= 0 || q > 100 {
		q = 80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return nil, err
	}
	b := dst.Bounds()
	return &Result{
		Data:         buf.Bytes(),
		MIME:         "image/jpeg",
		Width:        b.Dx(),
		Height:       b.Dy(),
		OriginalMIME: mt.String(),
	}, nil
}

// fit scales src so its longest side is at most maxDim, flattening
// transparency onto white since JPEG carries no alpha.
func fit(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			h = max(1, h*maxDim/w)
			w = maxDim
		} else {
			w = max(1, w*maxDim/h)
			h = maxDim
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
