// Package detection provides face detection using computer vision
package detection

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
)

// Detection represents a detected face in pixel coordinates
type Detection struct {
	X, Y       float64 // Top-left corner (pixels, may be negative at frame edges)
	W, H       float64 // Width and height (pixels)
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Box converts the detection to an integer box inside a frame of the given
// size. Parts hanging off the frame are cut; ok is false when nothing is left.
func (d Detection) Box(frameWidth, frameHeight int) (geometry.Box, bool) {
	x0 := math.Max(0, math.Round(d.X))
	y0 := math.Max(0, math.Round(d.Y))
	x1 := math.Min(float64(frameWidth), math.Round(d.X+d.W))
	y1 := math.Min(float64(frameHeight), math.Round(d.Y+d.H))
	if x1-x0 < 1 || y1-y0 < 1 {
		return geometry.Box{}, false
	}
	return geometry.Box{
		X:      uint32(x0),
		Y:      uint32(y0),
		Width:  uint32(x1 - x0),
		Height: uint32(y1 - y0),
	}, true
}

// Boxes converts detections in order, dropping the ones entirely off-frame.
func Boxes(dets []Detection, frameWidth, frameHeight int) []geometry.Box {
	boxes := make([]geometry.Box, 0, len(dets))
	for _, d := range dets {
		if b, ok := d.Box(frameWidth, frameHeight); ok {
			boxes = append(boxes, b)
		}
	}
	return boxes
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in the frame and returns their boxes in detection order
	Detect(f frame.Frame) ([]geometry.Box, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	NMSThresh        float64 // Non-maximum suppression threshold
	TopK             int     // Maximum candidates before NMS
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.3,
		TopK:             5000,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Validate checks the config and returns a list of problems, or nil.
func (c *Config) Validate() []string {
	var errors []string
	if c.ModelPath == "" {
		errors = append(errors, "model path is required")
	}
	if c.ConfidenceThresh < 0 || c.ConfidenceThresh > 1 {
		errors = append(errors, fmt.Sprintf("confidence threshold must be in [0,1], got %.2f", c.ConfidenceThresh))
	}
	if c.NMSThresh < 0 || c.NMSThresh > 1 {
		errors = append(errors, fmt.Sprintf("nms threshold must be in [0,1], got %.2f", c.NMSThresh))
	}
	if c.TopK < 1 {
		errors = append(errors, fmt.Sprintf("top k must be >= 1, got %d", c.TopK))
	}
	if c.InputWidth < 1 || c.InputHeight < 1 {
		errors = append(errors, fmt.Sprintf("input size must be positive, got %dx%d", c.InputWidth, c.InputHeight))
	}
	return errors
}
