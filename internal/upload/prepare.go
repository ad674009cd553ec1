// Package upload checks local image files before they are sent to the
// server. Files are always uploaded as read; the server owns every
// transformation.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/disintegration/imaging"
)

// ErrUnsupportedFormat is returned for data that is not a JPEG, PNG or GIF.
var ErrUnsupportedFormat = errors.New("unsupported or unrecognized image format")

// Info describes an image about to be uploaded. Width and Height are the
// dimensions as displayed, after any EXIF orientation is applied.
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d", i.Format, i.Width, i.Height)
}

// DetectFormat returns "jpeg", "png" or "gif" from the leading magic bytes,
// or "" when the data is none of them.
func DetectFormat(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpeg"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return "png"
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "gif"
	}
	return ""
}

// Inspect verifies data is a complete JPEG, PNG or GIF and reports its
// format and dimensions. The data itself is never modified.
func Inspect(data []byte) (Info, error) {
	format := DetectFormat(data)
	if format == "" {
		return Info{}, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Info{}, fmt.Errorf("decoding image: %w", err)
	}
	bounds := img.Bounds()
	return Info{Format: format, Width: bounds.Dx(), Height: bounds.Dy(), Bytes: len(data)}, nil
}
