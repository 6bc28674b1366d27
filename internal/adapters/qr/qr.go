// Package qr renders room join links as QR images.
package qr

import (
	"encoding/base64"
	"fmt"
	"image/color"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 300

// Brand blue, the same as the host color.
var foreground = color.RGBA{R: 0x18, G: 0x77, B: 0xf2, A: 0xff}

// PNG encodes url as a QR code of size x size pixels.
func PNG(url string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	q, err := qrcode.New(url, qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	q.ForegroundColor = foreground
	q.BackgroundColor = color.White
	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("qr png: %w", err)
	}
	return png, nil
}

// DataURL returns the QR code for url as an inline data:image/png URL.
func DataURL(url string, size int) (string, error) {
	png, err := PNG(url, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
