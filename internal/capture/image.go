// Package capture handles camera snapshots attached to tickets. The
// kiosk frontend submits them as base64 data URIs; this package
// validates, normalizes and re-encodes them for storage and upload.
package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"

	apperrors "github.com/ctukiosk/backend/internal/errors"
)

const (
	// MaxDimension caps the longest edge of a stored snapshot.
	MaxDimension = 800

	// JPEGQuality is used for all re-encoded snapshots.
	JPEGQuality = 80

	dataURIPrefix = "data:image/"
)

// Snapshot is a decoded, normalized camera capture.
type Snapshot struct {
	JPEG   []byte
	Width  int
	Height int
}

// IsDataURI reports whether s looks like a base64 image data URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, dataURIPrefix) && strings.Contains(s, ";base64,")
}

// Decode parses a base64 image data URI, downscales anything larger
// than MaxDimension and re-encodes the result as JPEG. The original
// format (PNG, GIF, JPEG) is accepted; the output is always JPEG.
func Decode(dataURI string) (*Snapshot, error) {
	if !IsDataURI(dataURI) {
		return nil, apperrors.New(apperrors.ErrInvalid, "captured image is not a base64 data URI")
	}

	idx := strings.Index(dataURI, ";base64,")
	raw, err := base64.StdEncoding.DecodeString(dataURI[idx+len(";base64,"):])
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "captured image is not valid base64", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "captured image could not be decoded", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "failed to encode snapshot", err)
	}

	return &Snapshot{
		JPEG:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// DataURI renders the snapshot back into a JPEG data URI. Used as the
// stored form when no remote blob URL is available.
func (s *Snapshot) DataURI() string {
	return fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(s.JPEG))
}
