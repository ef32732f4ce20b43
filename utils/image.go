package utils

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// Long edge cap before the image goes out to the analysis model.
	MaxUploadEdge = 1024

	jpegQuality = 80
)

type NormalizedImage struct {
	Data []byte
	Mime string
}

// NormalizeImage bounds the long edge to MaxUploadEdge and re-encodes to JPEG.
// It never fails: when the bytes can't be decoded (unsupported codec, HEIC,
// truncated file) the original data comes back with a MIME type sniffed from
// the filename extension.
func NormalizeImage(data []byte, filename string) NormalizedImage {
	img, err := decodeImage(data)
	if err != nil {
		return NormalizedImage{Data: data, Mime: MimeFromFilename(filename)}
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxUploadEdge || h > MaxUploadEdge {
		if w >= h {
			img = imaging.Resize(img, MaxUploadEdge, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, MaxUploadEdge, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return NormalizedImage{Data: data, Mime: MimeFromFilename(filename)}
	}
	return NormalizedImage{Data: buf.Bytes(), Mime: "image/jpeg"}
}

func decodeImage(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	// image/webp only registers the decoder for lossy files; chai2010
	// handles the rest.
	return webp.Decode(bytes.NewReader(data))
}

// MimeFromFilename maps a file extension to a MIME type, defaulting to JPEG
// for anything unrecognized.
func MimeFromFilename(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "heic", "heif":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}

// ExtensionForMime picks the storage key suffix: png stays png, everything
// else is stored as jpg.
func ExtensionForMime(mime string) string {
	if strings.Contains(mime, "png") {
		return "png"
	}
	return "jpg"
}
