package mrz

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQRCode(t *testing.T) {
	lines, err := Generate(validInput())
	require.NoError(t, err)

	b, err := QRCode(lines, 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, 256, img.Bounds().Dx())
	require.Equal(t, 256, img.Bounds().Dy())
}
