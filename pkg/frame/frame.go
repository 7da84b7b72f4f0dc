// Package frame defines the captured frame handle passed through the pipeline.
package frame

import (
	"errors"
	"fmt"
	"time"
)

// PixelFormat identifies the layout of Frame.Data.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatBGR24               // 3 bytes per pixel, OpenCV's native order
	FormatGray8               // 1 byte per pixel
)

// ErrFormatMismatch is returned when a frame is not in the expected pixel format.
var ErrFormatMismatch = errors.New("frame: pixel format mismatch")

// ErrShortBuffer is returned when Data is smaller than Width*Height*BytesPerPixel.
var ErrShortBuffer = errors.New("frame: buffer too small for dimensions")

// String returns the format name.
func (p PixelFormat) String() string {
	switch p {
	case FormatBGR24:
		return "bgr24"
	case FormatGray8:
		return "gray8"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the pixel stride, or 0 for unknown formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case FormatBGR24:
		return 3
	case FormatGray8:
		return 1
	default:
		return 0
	}
}

// ParsePixelFormat maps a format name back to its PixelFormat.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "bgr24", "bgr":
		return FormatBGR24, nil
	case "gray8", "gray":
		return FormatGray8, nil
	}
	return FormatUnknown, fmt.Errorf("unknown pixel format %q", s)
}

// Frame is one captured image. Sources hand out frames they no longer touch,
// so a frame may be shared with background work without copying.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	Format     PixelFormat
	Seq        uint64
	CapturedAt time.Time
}

// Validate checks that the buffer covers the declared dimensions.
func (f Frame) Validate() error {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrFormatMismatch, f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Data) < f.Width*f.Height*bpp {
		return fmt.Errorf("%w: %dx%d %s with %d bytes", ErrShortBuffer, f.Width, f.Height, f.Format, len(f.Data))
	}
	return nil
}

// Stride returns the number of bytes per row.
func (f Frame) Stride() int {
	return f.Width * f.Format.BytesPerPixel()
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	c := f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return c
}
