// Package cvcodec encodes crops and scores sharpness with OpenCV.
package cvcodec

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
	"github.com/teslashibe/go-facetrack/pkg/imaging"
	"github.com/teslashibe/go-facetrack/pkg/sharpness"
)

// ErrDecode is returned when encoded bytes do not decode to an image.
var ErrDecode = errors.New("cvcodec: decode failed")

// Codec is a bestframe codec backed by gocv. It also implements the scorer
// interface so sharpness is computed by OpenCV's Laplacian.
type Codec struct {
	Quality int
}

// New creates a codec. Quality outside 1..100 falls back to imaging.DefaultQuality.
func New(quality int) *Codec {
	if quality < 1 || quality > 100 {
		quality = imaging.DefaultQuality
	}
	return &Codec{Quality: quality}
}

// EncodeRegion encodes the region of the frame as JPEG.
func (c *Codec) EncodeRegion(f frame.Frame, r geometry.Region) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if r.Width == 0 || r.Height == 0 || !r.Within(uint32(f.Width), uint32(f.Height)) {
		return nil, fmt.Errorf("%w: %+v in %dx%d", imaging.ErrRegionOutOfBounds, r, f.Width, f.Height)
	}

	mt := gocv.MatTypeCV8UC3
	if f.Format == frame.FormatGray8 {
		mt = gocv.MatTypeCV8UC1
	}
	img, err := gocv.NewMatFromBytes(f.Height, f.Width, mt, f.Data[:f.Height*f.Stride()])
	if err != nil {
		return nil, fmt.Errorf("wrap frame: %w", err)
	}
	defer img.Close()

	crop := img.Region(image.Rect(int(r.X), int(r.Y), int(r.Right()), int(r.Bottom())))
	defer crop.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, crop, []int{int(gocv.IMWriteJpegQuality), c.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// DecodeGray decodes JPEG bytes to a grayscale sample.
func (c *Codec) DecodeGray(data []byte) (sharpness.Sample, error) {
	gray, err := decodeGray(data)
	if err != nil {
		return sharpness.Sample{}, err
	}
	defer gray.Close()

	pix, err := gray.DataPtrUint8()
	if err != nil {
		return sharpness.Sample{}, fmt.Errorf("read pixels: %w", err)
	}
	return sharpness.NewSample(gray.Cols(), gray.Rows(), append([]uint8(nil), pix...))
}

// Sharpness returns the variance of the Laplacian of the decoded image.
func (c *Codec) Sharpness(data []byte) (float64, error) {
	gray, err := decodeGray(data)
	if err != nil {
		return 0, err
	}
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	return sd * sd, nil
}

func decodeGray(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: empty buffer", ErrDecode)
	}
	gray, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if gray.Empty() {
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("%w: not an image", ErrDecode)
	}
	return gray, nil
}
