package qrcode

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	at := time.UnixMilli(1718000000123)

	name := FileName("seaside", at)
	assert.Equal(t, "hotel_seaside_1718000000123.png", name)

	code, generated, ok := ParseFileName(name)
	require.True(t, ok)
	assert.Equal(t, "seaside", code)
	assert.Equal(t, at.UnixMilli(), generated.UnixMilli())
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		name string
		file string
		code string
		ok   bool
	}{
		{"Hyphenated Code", "hotel_sea-side-2_1700000000000.png", "sea-side-2", true},
		{"Missing Timestamp", "hotel_seaside.png", "", false},
		{"Wrong Extension", "hotel_seaside_1700000000000.jpg", "", false},
		{"Wrong Prefix", "resort_seaside_1700000000000.png", "", false},
		{"Traversal", "hotel_../../etc_1700000000000.png", "", false},
		{"Backslash", `hotel_a\b_1700000000000.png`, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, ok := ParseFileName(tc.file)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestIsCandidate(t *testing.T) {
	assert.True(t, IsCandidate("hotel_x_1.png"))
	assert.False(t, IsCandidate("notes.txt"))
	assert.False(t, IsCandidate("hotel_x_1.jpg"))
}

func TestModuleWidth(t *testing.T) {
	assert.Equal(t, 10, ModuleWidth(400, 33))
	assert.Equal(t, 13, ModuleWidth(400, 25))
	assert.Equal(t, 1, ModuleWidth(100, 177))
	assert.Equal(t, 255, ModuleWidth(10000, 21))
}

func TestPNGEncoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName("seaside", time.Now()))

	err := NewPNGEncoder().EncodePNG("https://guest.example.com/userform?hotelCode=seaside", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, cfg.Width, cfg.Height)
	assert.LessOrEqual(t, cfg.Width, 400)
	assert.Greater(t, cfg.Width, 300)
}
