// Package preprocess normalizes user images before they are sent to the
// generation service: bake EXIF orientation into the pixels, flatten
// transparency onto white, cap the longest edge, and re-encode as JPEG.
// The output carries no metadata. Same input bytes always produce the same
// output bytes.
package preprocess

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// Options controls the optimization pass.
type Options struct {
	MaxSize int // longest edge in pixels
	Quality int // JPEG quality, 1-100
}

// Optimize decodes, normalizes, downsamples, and re-encodes a single image.
func Optimize(data []byte, opts Options) ([]byte, error) {
	// AutoOrientation applies the EXIF orientation tag while decoding, so
	// rotated phone photos come out the way they are displayed.
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = flatten(img)

	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w > opts.MaxSize || h > opts.MaxSize {
		if w >= h {
			img = imaging.Resize(img, opts.MaxSize, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, opts.MaxSize, imaging.Lanczos)
		}
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten composites the image onto an opaque white background, collapsing
// alpha channels and indexed palettes into plain RGB.
func flatten(img image.Image) image.Image {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Opaque() {
		return img
	}

	background := image.NewNRGBA(img.Bounds())
	draw.Draw(background, background.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(background, background.Bounds(), img, img.Bounds().Min, draw.Over)
	return background
}

// DecodeDataURL decodes a base64 image payload, with or without a
// "data:image/...;base64," header.
func DecodeDataURL(dataURL string) ([]byte, error) {
	payload := dataURL
	if strings.HasPrefix(payload, "data:") {
		idx := strings.IndexByte(payload, ',')
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URL: missing payload separator")
		}
		payload = payload[idx+1:]
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return decoded, nil
}

// EncodeDataURL wraps JPEG bytes in a data URL for transport to the
// generation service.
func EncodeDataURL(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}
