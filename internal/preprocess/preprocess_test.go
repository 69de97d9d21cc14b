package preprocess

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{MaxSize: 768, Quality: 85}
}

// pngWithAlpha encodes a w x h PNG with a semi-transparent fill.
func pngWithAlpha(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 128})
		}
	}

	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestOptimize_ResizesLongestEdge(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{name: "wide image capped by width", w: 1536, h: 768, wantW: 768, wantH: 384},
		{name: "tall image capped by height", w: 400, h: 1536, wantW: 200, wantH: 768},
		{name: "small image untouched", w: 300, h: 200, wantW: 300, wantH: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Optimize(pngWithAlpha(t, tt.w, tt.h), testOptions())
			require.NoError(t, err)

			img := decodeJPEG(t, out)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestOptimize_FlattensTransparencyOntoWhite(t *testing.T) {
	out, err := Optimize(pngWithAlpha(t, 100, 100), testOptions())
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	r, g, b, _ := img.At(50, 50).RGBA()

	// 50% red over white should land well above pure red on the green and
	// blue channels. JPEG is lossy so allow generous slack.
	assert.Greater(t, r>>8, uint32(180))
	assert.Greater(t, g>>8, uint32(100))
	assert.Greater(t, b>>8, uint32(100))
}

func TestOptimize_Deterministic(t *testing.T) {
	in := pngWithAlpha(t, 900, 600)

	first, err := Optimize(in, testOptions())
	require.NoError(t, err)
	second, err := Optimize(in, testOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestOptimize_RejectsGarbage(t *testing.T) {
	_, err := Optimize([]byte("not an image"), testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode image")
}

func TestDecodeDataURL(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04}
	encoded := base64.StdEncoding.EncodeToString(raw)

	t.Run("bare base64", func(t *testing.T) {
		out, err := DecodeDataURL(encoded)
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	})

	t.Run("with data URL header", func(t *testing.T) {
		out, err := DecodeDataURL("data:image/png;base64," + encoded)
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	})

	t.Run("header without separator", func(t *testing.T) {
		_, err := DecodeDataURL("data:image/png;base64")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed data URL")
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := DecodeDataURL("!!!not-base64!!!")
		require.Error(t, err)
	})
}

func TestEncodeDataURL(t *testing.T) {
	out := EncodeDataURL([]byte{0xFF, 0xD8})

	assert.True(t, strings.HasPrefix(out, "data:image/jpeg;base64,"))

	decoded, err := DecodeDataURL(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, decoded)
}
