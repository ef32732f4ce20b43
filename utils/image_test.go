package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, w, h int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

func encodePNG(buf *bytes.Buffer, img image.Image) error  { return png.Encode(buf, img) }
func encodeJPEG(buf *bytes.Buffer, img image.Image) error { return jpeg.Encode(buf, img, nil) }

func TestNormalizeImageBoundsLongEdge(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		maxW  int
		maxH  int
	}{
		{"wide landscape", 2048, 512, 1024, 256},
		{"tall portrait", 600, 3000, 205, 1024},
		{"already small", 640, 480, 640, 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testImage(t, tt.w, tt.h, encodePNG)

			norm := NormalizeImage(data, "photo.png")
			assert.Equal(t, "image/jpeg", norm.Mime)

			decoded, err := jpeg.Decode(bytes.NewReader(norm.Data))
			require.NoError(t, err)
			b := decoded.Bounds()
			assert.LessOrEqual(t, b.Dx(), MaxUploadEdge)
			assert.LessOrEqual(t, b.Dy(), MaxUploadEdge)
			assert.Equal(t, tt.maxW, b.Dx())
			assert.Equal(t, tt.maxH, b.Dy())
		})
	}
}

func TestNormalizeImageReencodesJPEG(t *testing.T) {
	data := testImage(t, 1500, 1500, encodeJPEG)
	norm := NormalizeImage(data, "meal.jpg")
	assert.Equal(t, "image/jpeg", norm.Mime)

	decoded, err := jpeg.Decode(bytes.NewReader(norm.Data))
	require.NoError(t, err)
	assert.Equal(t, 1024, decoded.Bounds().Dx())
}

func TestNormalizeImageFallsBackOnUndecodableData(t *testing.T) {
	garbage := []byte("definitely not an image")

	tests := []struct {
		filename string
		mime     string
	}{
		{"photo.png", "image/png"},
		{"photo.webp", "image/webp"},
		{"photo.HEIC", "image/heic"},
		{"photo.heif", "image/heic"},
		{"photo.jpg", "image/jpeg"},
		{"photo.xyz", "image/jpeg"},
		{"noextension", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			norm := NormalizeImage(garbage, tt.filename)
			assert.Equal(t, tt.mime, norm.Mime)
			assert.Equal(t, garbage, norm.Data, "original bytes must pass through untouched")
		})
	}
}

func TestExtensionForMime(t *testing.T) {
	assert.Equal(t, "png", ExtensionForMime("image/png"))
	assert.Equal(t, "jpg", ExtensionForMime("image/jpeg"))
	assert.Equal(t, "jpg", ExtensionForMime("image/heic"))
	assert.Equal(t, "jpg", ExtensionForMime(""))
}
