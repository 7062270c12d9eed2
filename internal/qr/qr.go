package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	qrreader "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrNoCode      = errors.New("no QR code found in image")
	ErrBadImage    = errors.New("unreadable image")
	ErrEmptyTicket = errors.New("ticket key is empty")
)

// maxImageBytes bounds uploaded scan images. A phone photo of a printed
// ticket stays well under this.
const maxImageBytes = 8 << 20

// Decode extracts the ticket key embedded in a QR-code image (PNG or JPEG).
func Decode(r io.Reader) (string, error) {
	img, _, err := image.Decode(io.LimitReader(r, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	result, err := qrreader.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return result.GetText(), nil
}

// Encode renders a ticket key as a QR-code PNG of the given pixel size.
func Encode(finalKey string, size int) ([]byte, error) {
	if finalKey == "" {
		return nil, ErrEmptyTicket
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(finalKey, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode ticket QR: %w", err)
	}
	return png, nil
}

// EncodeTo writes the QR-code PNG for a ticket key to w.
func EncodeTo(w io.Writer, finalKey string, size int) error {
	png, err := Encode(finalKey, size)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(png))
	return err
}
