package qrcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yeqown/go-qrcode"
)

// Encoder renders a text payload into a PNG file
type Encoder interface {
	EncodePNG(payload, path string) error
}

// quietZone is the blank margin around the symbol, in modules
const quietZone = 2

// PNGEncoder encodes with the highest error correction level. The module
// width is chosen so the image, quiet zone included, comes as close to Size
// pixels as whole modules allow.
type PNGEncoder struct {
	Size int
}

// NewPNGEncoder returns an encoder producing roughly 400px images
func NewPNGEncoder() *PNGEncoder {
	return &PNGEncoder{Size: 400}
}

// EncodePNG writes the QR image for payload to path
func (e *PNGEncoder) EncodePNG(payload, path string) error {
	cfg := &qrcode.Config{EncMode: qrcode.EncModeByte, EcLevel: qrcode.ErrorCorrectionHighest}

	sizing, err := qrcode.NewWithConfig(payload, cfg)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	attr, err := sizing.Attribute()
	if err != nil {
		return fmt.Errorf("failed to size QR code: %w", err)
	}
	block := ModuleWidth(e.Size, (attr.W-attr.Borders[1]-attr.Borders[3])/attr.BlockWidth)

	qrc, err := qrcode.NewWithConfig(payload, cfg,
		qrcode.WithQRWidth(uint8(block)),
		qrcode.WithBorderWidth(quietZone*block),
		qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT),
	)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}

	if err := qrc.Save(path); err != nil {
		return fmt.Errorf("failed to save QR code: %w", err)
	}
	return nil
}

// ModuleWidth returns the pixel width of one module so that a symbol of
// modules modules plus its quiet zone fits within size pixels. The result
// stays between 1 and 255.
func ModuleWidth(size, modules int) int {
	width := size / (modules + 2*quietZone)
	if width < 1 {
		return 1
	}
	if width > 255 {
		return 255
	}
	return width
}

const (
	filePrefix = "hotel_"
	fileSuffix = ".png"
)

var fileNameRegex = regexp.MustCompile(`^hotel_([^_/\\]+)_(\d+)\.png$`)

// FileName builds the image name hotel_<code>_<epochms>.png
func FileName(hotelCode string, at time.Time) string {
	return fmt.Sprintf("%s%s_%d%s", filePrefix, hotelCode, at.UnixMilli(), fileSuffix)
}

// IsCandidate reports whether a directory entry looks like a QR image
func IsCandidate(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

// ParseFileName extracts the hotel code and generation time embedded in a QR
// image name. Names with path separators or any other shape are rejected.
func ParseFileName(name string) (hotelCode string, generated time.Time, ok bool) {
	m := fileNameRegex.FindStringSubmatch(name)
	if m == nil {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], time.UnixMilli(ms), true
}
