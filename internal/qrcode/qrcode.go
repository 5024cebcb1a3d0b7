// Package qrcode renders short URLs as QR codes.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	svg "github.com/ajstarks/svgo"
	qr "github.com/skip2/go-qrcode"

	"shortlink/internal/apperr"
)

// Size is the rendered width and height in pixels.
const Size = 300

type Format string

const (
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatJSON Format = "json"
)

var ErrUnknownFormat = apperr.New(apperr.CodeInvalidInput, "Invalid format. Supported formats: png, svg, json")

// ParseFormat maps a query value to a Format; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", ErrUnknownFormat
	}
}

// encode is shared by every renderer, so all formats carry the same
// error-correction level and the standard 4-module quiet zone.
func encode(content string) (*qr.QRCode, error) {
	code, err := qr.New(content, qr.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return code, nil
}

// PNG renders content as a Size x Size PNG.
func PNG(content string) ([]byte, error) {
	code, err := encode(content)
	if err != nil {
		return nil, err
	}
	return code.PNG(Size)
}

// SVG renders content as a Size x Size SVG document, one rect per dark module.
func SVG(content string) (string, error) {
	code, err := encode(content)
	if err != nil {
		return "", err
	}
	bitmap := code.Bitmap()
	dim := len(bitmap)

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(Size, Size, 0, 0, dim, dim)
	canvas.Rect(0, 0, dim, dim, "fill:#FFFFFF")
	canvas.Gstyle("fill:#000000;shape-rendering:crispEdges")
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				canvas.Rect(x, y, 1, 1)
			}
		}
	}
	canvas.Gend()
	canvas.End()
	return buf.String(), nil
}

// DataURL renders content as a base64 PNG data URL for embedding in HTML.
func DataURL(content string) (string, error) {
	png, err := PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
