package service

// QRCodeService defines the interface for QR code generation services
type QRCodeService interface {
	// GenerateLocationQR renders a geo: URI for the given coordinate as a
	// PNG QR code, so another device can open the pin in its own map app.
	GenerateLocationQR(lat, lng float64, label string) ([]byte, error)
}
