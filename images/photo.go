package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

var ErrInvalidImage = errors.New("invalid image")

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// AllowedFile reports whether filename has one of the accepted photo
// extensions (png, jpg, jpeg), case-insensitively.
func AllowedFile(filename string) bool {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[dot+1:])]
}

// SecureFilename reduces a client supplied filename to a safe base name:
// directories are dropped, separators become underscores and anything
// outside [A-Za-z0-9_.-] is removed.
func SecureFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.Join(strings.Fields(filename), "_")
	filename = unsafeFilenameChars.ReplaceAllString(filename, "")
	return strings.TrimLeft(filename, "._")
}

// PhotoStore writes uploaded profile photos to a directory as PNG files
// scaled down to fit MaxWidth x MaxHeight.
type PhotoStore struct {
	Dir       string
	MaxWidth  int
	MaxHeight int
}

func NewPhotoStore(dir string) *PhotoStore {
	return &PhotoStore{Dir: dir, MaxWidth: 400, MaxHeight: 400}
}

// Save decodes the uploaded image, normalises it to PNG and stores it under
// a unique name derived from the original filename. The stored name is
// returned.
func (s *PhotoStore) Save(filename string, data []byte) (string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	slog.Debug("Decoded uploaded photo", "format", format, "width", bounds.Dx(), "height", bounds.Dy())

	encoded, err := convertImageToPNG(img, s.MaxWidth, s.MaxHeight, png.BestCompression)
	if err != nil {
		return "", fmt.Errorf("failed to convert photo to PNG: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := storedName(filename)
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}

	slog.Info("Stored profile photo", "name", name, "size", len(encoded))
	return name, nil
}

// Path resolves a stored name inside the store directory. Names that are
// not plain base names are rejected.
func (s *PhotoStore) Path(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || SecureFilename(name) != name {
		return "", false
	}
	return filepath.Join(s.Dir, name), true
}

func storedName(filename string) string {
	base := SecureFilename(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return uuid.NewString() + ".png"
	}
	return uuid.NewString() + "_" + base + ".png"
}

// convertImageToPNG encodes an image to PNG, downscaled to fit within
// maxW×maxH when either is >0 (keeping aspect ratio)
func convertImageToPNG(img image.Image, maxW, maxH int, level png.CompressionLevel) ([]byte, error) {
	if maxW > 0 || maxH > 0 {
		img = resizeToFit(img, maxW, maxH)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resizeToFit scales img to fit within maxW×maxH (keeping aspect ratio)
func resizeToFit(src image.Image, maxW, maxH int) image.Image {
	bw := src.Bounds().Dx()
	bh := src.Bounds().Dy()

	if maxW <= 0 && maxH <= 0 {
		return src
	}
	if maxW <= 0 {
		maxW = int(math.Round(float64(bw) * float64(maxH) / float64(bh)))
	}
	if maxH <= 0 {
		maxH = int(math.Round(float64(bh) * float64(maxW) / float64(bw)))
	}

	scale := math.Min(float64(maxW)/float64(bw), float64(maxH)/float64(bh))
	if scale >= 1.0 {
		return src
	}
	w := int(math.Max(1, math.Round(float64(bw)*scale)))
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// CatmullRom = high quality, good for photos/faces
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
