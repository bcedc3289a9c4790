package qrcode

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"contactmap/internal/domain/service"

	"github.com/skip2/go-qrcode"
)

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// GenerateLocationQR renders a geo: URI (RFC 5870) for the coordinate as a
// PNG QR code. Map apps on both major mobile platforms open geo: URIs
// natively, so the scanning device lands directly on the pin.
func (s *qrcodeService) GenerateLocationQR(lat, lng float64, label string) ([]byte, error) {
	uri := FormatGeoURI(lat, lng, label)

	qrCode, err := qrcode.New(uri, s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}

// FormatGeoURI builds a geo: URI for the coordinate, optionally carrying a
// human-readable label as the q= query parameter.
func FormatGeoURI(lat, lng float64, label string) string {
	coords := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)

	if strings.TrimSpace(label) == "" {
		return "geo:" + coords
	}

	return "geo:" + coords + "?q=" + coords + "(" + url.QueryEscape(label) + ")"
}
