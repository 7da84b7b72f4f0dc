// Package imaging converts frames and crop regions to and from JPEG without OpenCV.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
	"github.com/teslashibe/go-facetrack/pkg/sharpness"
)

// DefaultQuality is the JPEG quality used for face crops.
const DefaultQuality = 90

// ErrRegionOutOfBounds is returned when a crop region does not fit the frame.
var ErrRegionOutOfBounds = errors.New("imaging: region outside frame")

// JPEGCodec encodes crops with image/jpeg.
type JPEGCodec struct {
	Quality int
}

// NewJPEGCodec creates a codec. Quality outside 1..100 falls back to DefaultQuality.
func NewJPEGCodec(quality int) *JPEGCodec {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &JPEGCodec{Quality: quality}
}

// EncodeRegion encodes the region of the frame as JPEG.
func (c *JPEGCodec) EncodeRegion(f frame.Frame, r geometry.Region) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if r.Width == 0 || r.Height == 0 || !r.Within(uint32(f.Width), uint32(f.Height)) {
		return nil, fmt.Errorf("%w: %+v in %dx%d", ErrRegionOutOfBounds, r, f.Width, f.Height)
	}

	img := Image(f)
	rect := image.Rect(int(r.X), int(r.Y), int(r.Right()), int(r.Bottom()))
	sub := img.(interface {
		SubImage(image.Rectangle) image.Image
	}).SubImage(rect)

	return encode(sub, c.Quality)
}

// DecodeGray decodes JPEG bytes to a grayscale sample.
func (c *JPEGCodec) DecodeGray(data []byte) (sharpness.Sample, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return sharpness.Sample{}, fmt.Errorf("decode jpeg: %w", err)
	}
	return sharpness.FromImage(img)
}

// FrameToJPEG encodes a whole frame, for previews.
func FrameToJPEG(f frame.Frame, quality int) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return encode(Image(f), quality)
}

// Image converts a valid frame to an image.Image. BGR frames are copied into
// RGBA; gray frames share the frame buffer.
func Image(f frame.Frame) image.Image {
	rect := image.Rect(0, 0, f.Width, f.Height)
	if f.Format == frame.FormatGray8 {
		return &image.Gray{Pix: f.Data, Stride: f.Stride(), Rect: rect}
	}

	img := image.NewRGBA(rect)
	stride := f.Stride()
	for y := 0; y < f.Height; y++ {
		src := f.Data[y*stride : y*stride+stride]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			dst[x*4+0] = src[x*3+2]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+0]
			dst[x*4+3] = 0xFF
		}
	}
	return img
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
