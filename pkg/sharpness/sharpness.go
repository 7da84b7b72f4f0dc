// Package sharpness scores how in-focus a grayscale image is.
//
// The score is the variance of the Laplacian response: sharp edges produce a
// wide spread of second-derivative values, blur flattens it.
package sharpness

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptySample is returned for nil or zero-sized samples.
	ErrEmptySample = errors.New("sharpness: empty sample")

	// ErrSampleSize is returned when the pixel buffer does not match the dimensions.
	ErrSampleSize = errors.New("sharpness: pixel buffer does not match dimensions")
)

// Sample is an 8-bit grayscale image stored row-major.
type Sample struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewSample validates and wraps a grayscale buffer.
func NewSample(width, height int, pix []uint8) (Sample, error) {
	s := Sample{Width: width, Height: height, Pix: pix}
	if err := s.Validate(); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// FromImage converts any image to a grayscale sample.
func FromImage(img image.Image) (Sample, error) {
	if img == nil {
		return Sample{}, ErrEmptySample
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Sample{}, ErrEmptySample
	}

	pix := make([]uint8, w*h)
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			off := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(pix[y*w:(y+1)*w], g.Pix[off:off+w])
		}
		return Sample{Width: w, Height: h, Pix: pix}, nil
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return Sample{Width: w, Height: h, Pix: pix}, nil
}

// Validate checks the sample dimensions against its buffer.
func (s Sample) Validate() error {
	if s.Width <= 0 || s.Height <= 0 || len(s.Pix) == 0 {
		return ErrEmptySample
	}
	if len(s.Pix) != s.Width*s.Height {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrSampleSize, s.Width, s.Height, s.Width*s.Height, len(s.Pix))
	}
	return nil
}

// At returns the pixel at (x, y) with reflect-101 border handling.
func (s Sample) At(x, y int) float64 {
	return float64(s.Pix[reflect101(y, s.Height)*s.Width+reflect101(x, s.Width)])
}

// Laplacian returns the 3x3 Laplacian response of the sample.
// The kernel is [0 1 0; 1 -4 1; 0 1 0], matching OpenCV's aperture-1 Laplacian.
func Laplacian(s Sample) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	out := make([]float64, 0, s.Width*s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			v := s.At(x, y-1) + s.At(x-1, y) + s.At(x+1, y) + s.At(x, y+1) - 4*s.At(x, y)
			out = append(out, v)
		}
	}
	return out, nil
}

// Score returns the variance of the Laplacian response. Higher is sharper.
func Score(s Sample) (float64, error) {
	resp, err := Laplacian(s)
	if err != nil {
		return 0, err
	}
	v := stat.PopVariance(resp, nil)
	if v < 0 {
		v = 0
	}
	return v, nil
}

// reflect101 mirrors an out-of-range index without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
