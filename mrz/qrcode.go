package mrz

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCode renders both lines, newline separated, as a PNG QR code of
// size x size pixels.
func QRCode(lines Lines, size int) ([]byte, error) {
	png, err := qrcode.Encode(lines[0]+"\n"+lines[1], qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mrz qr code: %w", err)
	}
	return png, nil
}
