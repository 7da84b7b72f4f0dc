package cvcodec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
	"github.com/teslashibe/go-facetrack/pkg/imaging"
	"github.com/teslashibe/go-facetrack/pkg/sharpness"
)

func checker(w, h int) frame.Frame {
	data := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				copy(data[(y*w+x)*3:], []byte{255, 255, 255})
			}
		}
	}
	return frame.Frame{Data: data, Width: w, Height: h, Format: frame.FormatBGR24}
}

func TestCodec_EncodeRegion(t *testing.T) {
	c := New(0)
	assert.Equal(t, imaging.DefaultQuality, c.Quality)

	data, err := c.EncodeRegion(checker(128, 96), geometry.Region{X: 8, Y: 8, Width: 64, Height: 32})
	require.NoError(t, err)

	s, err := c.DecodeGray(data)
	require.NoError(t, err)
	assert.Equal(t, 64, s.Width)
	assert.Equal(t, 32, s.Height)
}

func TestCodec_EncodeRegionOutOfBounds(t *testing.T) {
	_, err := New(90).EncodeRegion(checker(64, 64), geometry.Region{X: 60, Width: 10, Height: 10})
	assert.ErrorIs(t, err, imaging.ErrRegionOutOfBounds)
}

func TestCodec_SharpnessMatchesPureGo(t *testing.T) {
	c := New(95)
	data, err := c.EncodeRegion(checker(64, 64), geometry.Region{Width: 64, Height: 64})
	require.NoError(t, err)

	cv, err := c.Sharpness(data)
	require.NoError(t, err)

	s, err := c.DecodeGray(data)
	require.NoError(t, err)
	pure, err := sharpness.Score(s)
	require.NoError(t, err)

	assert.InEpsilon(t, pure, cv, 1e-6)
}

func TestCodec_SharpnessFlat(t *testing.T) {
	c := New(95)
	flat := frame.Frame{Data: bytes.Repeat([]byte{90}, 32*32), Width: 32, Height: 32, Format: frame.FormatGray8}
	data, err := c.EncodeRegion(flat, geometry.Region{Width: 32, Height: 32})
	require.NoError(t, err)

	v, err := c.Sharpness(data)
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-6)
}

func TestCodec_DecodeErrors(t *testing.T) {
	c := New(90)
	_, err := c.Sharpness(nil)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = c.DecodeGray([]byte("garbage"))
	assert.ErrorIs(t, err, ErrDecode)
}
