// Package geometry turns raw face detections into frame-clamped crop regions.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Default frame bounds used when the caller does not configure any.
const (
	DefaultFrameWidth  = 1920
	DefaultFrameHeight = 1080
)

var (
	// ErrEmptyFrame is returned when the frame has zero width or height.
	ErrEmptyFrame = errors.New("geometry: empty frame")

	// ErrInvalidCoefficient is returned for non-positive or non-finite coefficients.
	ErrInvalidCoefficient = errors.New("geometry: invalid enlarge coefficient")
)

// Box is one face candidate reported by a detector, in pixels.
// A degraded detector may report boxes partially or fully outside the frame.
type Box struct {
	X      uint32 `json:"x"`
	Y      uint32 `json:"y"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Region is a crop rectangle guaranteed to lie inside the frame it was clamped to.
type Region struct {
	X      uint32 `json:"x"`
	Y      uint32 `json:"y"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Right returns the exclusive right edge.
func (r Region) Right() uint32 { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Region) Bottom() uint32 { return r.Y + r.Height }

// Area returns the region area in pixels.
func (r Region) Area() uint64 { return uint64(r.Width) * uint64(r.Height) }

// Within reports whether the region fits inside a frame of the given size.
func (r Region) Within(frameWidth, frameHeight uint32) bool {
	return uint64(r.X)+uint64(r.Width) <= uint64(frameWidth) &&
		uint64(r.Y)+uint64(r.Height) <= uint64(frameHeight)
}

// Area returns the box area in pixels.
func (b Box) Area() uint64 { return uint64(b.Width) * uint64(b.Height) }

// Widest returns the first box with the largest width.
func Widest(boxes []Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.Width > best.Width {
			best = b
		}
	}
	return best, true
}

// EnlargeAndClamp scales the box around its center by coefficient and clamps
// the result to [0, frameWidth) x [0, frameHeight).
//
// Overflow past the right/bottom edge shifts the crop back into the frame; a
// crop larger than the frame is pinned at the origin and trimmed to the frame.
// The result is never smaller than 1x1.
func EnlargeAndClamp(box Box, coefficient float64, frameWidth, frameHeight uint32) (Region, error) {
	if frameWidth == 0 || frameHeight == 0 {
		return Region{}, fmt.Errorf("%w: %dx%d", ErrEmptyFrame, frameWidth, frameHeight)
	}
	if coefficient <= 0 || math.IsNaN(coefficient) || math.IsInf(coefficient, 0) {
		return Region{}, fmt.Errorf("%w: %v", ErrInvalidCoefficient, coefficient)
	}

	x, w := enlargeAxis(float64(box.X), float64(box.Width), coefficient, float64(frameWidth))
	y, h := enlargeAxis(float64(box.Y), float64(box.Height), coefficient, float64(frameHeight))

	return Region{X: x, Y: y, Width: w, Height: h}, nil
}

// enlargeAxis applies the enlarge/shift/clamp rule to one axis.
func enlargeAxis(pos, size, coefficient, limit float64) (uint32, uint32) {
	newSize := math.Round(size * coefficient)
	start := math.Round(pos - (newSize-size)/2)

	if start+newSize > limit {
		start -= start + newSize - limit
	}
	if start < 0 {
		start = 0
	}
	if start > limit-1 {
		start = limit - 1
	}
	if start+newSize > limit {
		newSize = limit - start
	}
	if newSize < 1 {
		newSize = 1
	}

	return uint32(start), uint32(newSize)
}
