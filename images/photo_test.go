package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		filename string
		allowed  bool
	}{
		{"photo.png", true},
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"archive.tar.png", true},
		{"photo.gif", false},
		{"photo", false},
		{"png", false},
		{"photo.png.exe", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			require.Equal(t, tt.allowed, AllowedFile(tt.filename))
		})
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"photo.png", "photo.png"},
		{"my photo.jpg", "my_photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\face.jpeg`, "face.jpeg"},
		{".hidden.png", "hidden.png"},
		{"pässfoto.jpg", "pssfoto.jpg"},
		{"...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, SecureFilename(tt.input))
		})
	}
}

func TestPhotoStoreSaveDownscales(t *testing.T) {
	store := NewPhotoStore(t.TempDir())

	name, err := store.Save("Passport Photo.jpg", encodeJPEG(t, testImage(800, 600)))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, "_Passport_Photo.png"), name)

	path, ok := store.Path(name)
	require.True(t, ok)
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, 400, img.Bounds().Dx())
	require.Equal(t, 300, img.Bounds().Dy())
}

func TestPhotoStoreSaveKeepsSmallImages(t *testing.T) {
	store := NewPhotoStore(filepath.Join(t.TempDir(), "nested", "uploads"))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(120, 160)))

	name, err := store.Save("face.png", buf.Bytes())
	require.NoError(t, err)

	path, ok := store.Path(name)
	require.True(t, ok)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 120, cfg.Width)
	require.Equal(t, 160, cfg.Height)
}

func TestPhotoStoreSaveUniqueNames(t *testing.T) {
	store := NewPhotoStore(t.TempDir())
	data := encodeJPEG(t, testImage(10, 10))

	first, err := store.Save("face.jpg", data)
	require.NoError(t, err)
	second, err := store.Save("face.jpg", data)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestPhotoStoreSaveRejectsNonImages(t *testing.T) {
	store := NewPhotoStore(t.TempDir())

	_, err := store.Save("fake.png", []byte("definitely not a png"))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestPhotoStorePath(t *testing.T) {
	store := NewPhotoStore("/srv/uploads")

	path, ok := store.Path("abc_face.png")
	require.True(t, ok)
	require.Equal(t, "/srv/uploads/abc_face.png", path)

	for _, name := range []string{"", "../secret.png", "a/b.png", ".env"} {
		_, ok := store.Path(name)
		require.False(t, ok, name)
	}
}

func TestConvertImageToPNGKeepsFullColor(t *testing.T) {
	src := testImage(800, 400)

	encoded, err := convertImageToPNG(src, 400, 400, png.BestCompression)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 400, 200), decoded.Bounds())
	_, paletted := decoded.(*image.Paletted)
	require.False(t, paletted, "photos are stored without palette quantization")
}

func TestConvertImageToPNGWithoutBounds(t *testing.T) {
	src := testImage(30, 20)

	encoded, err := convertImageToPNG(src, 0, 0, png.DefaultCompression)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, src.Bounds(), decoded.Bounds())
}
