package qrcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQRCodeService(t *testing.T) {
	tests := []struct {
		name                 string
		size                 int
		errorCorrectionLevel string
	}{
		{"Low error correction", 256, "L"},
		{"Medium error correction", 256, "M"},
		{"High error correction", 256, "Q"},
		{"Highest error correction", 256, "H"},
		{"Default error correction", 256, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewQRCodeService(tt.size, tt.errorCorrectionLevel)
			assert.NotNil(t, service)
		})
	}
}

func TestQRCodeService_GenerateLocationQR(t *testing.T) {
	service := NewQRCodeService(256, "M")

	qrBytes, err := service.GenerateLocationQR(37.7749, -122.4194, "Office")
	require.NoError(t, err)
	assert.NotEmpty(t, qrBytes)

	// Verify it's a valid PNG (starts with PNG magic number)
	assert.Equal(t, byte(0x89), qrBytes[0])
	assert.Equal(t, byte(0x50), qrBytes[1])
	assert.Equal(t, byte(0x4E), qrBytes[2])
	assert.Equal(t, byte(0x47), qrBytes[3])
}

func TestFormatGeoURI(t *testing.T) {
	tests := []struct {
		name     string
		lat      float64
		lng      float64
		label    string
		expected string
	}{
		{
			name:     "without label",
			lat:      37.7749,
			lng:      -122.4194,
			label:    "",
			expected: "geo:37.7749,-122.4194",
		},
		{
			name:     "blank label treated as absent",
			lat:      37.7749,
			lng:      -122.4194,
			label:    "   ",
			expected: "geo:37.7749,-122.4194",
		},
		{
			name:     "with label",
			lat:      51.5074,
			lng:      -0.1278,
			label:    "Home",
			expected: "geo:51.5074,-0.1278?q=51.5074,-0.1278(Home)",
		},
		{
			name:     "label with spaces is escaped",
			lat:      40.7128,
			lng:      -74.006,
			label:    "New York Office",
			expected: "geo:40.7128,-74.006?q=40.7128,-74.006(New+York+Office)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatGeoURI(tt.lat, tt.lng, tt.label))
		})
	}
}
