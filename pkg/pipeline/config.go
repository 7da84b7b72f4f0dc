package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/teslashibe/go-facetrack/pkg/bestframe"
	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
	"github.com/teslashibe/go-facetrack/pkg/presence"
)

// Config holds all tunable parameters for the per-frame driver
type Config struct {
	// Timing
	TickInterval time.Duration // How often Run captures a frame

	// Selection
	Mode                 bestframe.Mode
	CoefficientFrameSize float64 // Crop enlargement around the detection box
	BlurThreshold        float64 // Minimum Laplacian variance for an accepted crop
	WarmupFrames         int     // Consecutive big-face frames before cropping starts
	DiscardStale         bool    // Drop results of jobs that outlive a reset

	// Frame
	FrameWidth  uint32            // Clamp bounds for crop regions
	FrameHeight uint32
	PixelFormat frame.PixelFormat // Frames in any other format are skipped

	// Presence
	Presence presence.Config
}

// DefaultConfig returns the recommended configuration for a 1080p camera at 10 fps
func DefaultConfig() Config {
	return Config{
		TickInterval: 100 * time.Millisecond,

		Mode:                 bestframe.ModeSingle,
		CoefficientFrameSize: 1.5,
		BlurThreshold:        100,
		WarmupFrames:         1,

		FrameWidth:  geometry.DefaultFrameWidth,
		FrameHeight: geometry.DefaultFrameHeight,
		PixelFormat: frame.FormatBGR24,

		Presence: presence.DefaultConfig(),
	}
}

// Validate checks the config and returns a list of problems, or nil.
func (c *Config) Validate() []string {
	var errors []string

	if c.TickInterval <= 0 {
		errors = append(errors, fmt.Sprintf("tick interval must be positive, got %v", c.TickInterval))
	}
	if c.CoefficientFrameSize <= 0 || math.IsNaN(c.CoefficientFrameSize) || math.IsInf(c.CoefficientFrameSize, 0) {
		errors = append(errors, fmt.Sprintf("coefficient frame size must be a positive number, got %v", c.CoefficientFrameSize))
	}
	if c.BlurThreshold < 0 {
		errors = append(errors, fmt.Sprintf("blur threshold must be >= 0, got %v", c.BlurThreshold))
	}
	if c.WarmupFrames < 1 {
		errors = append(errors, fmt.Sprintf("warmup frames must be >= 1, got %d", c.WarmupFrames))
	}
	if c.FrameWidth == 0 || c.FrameHeight == 0 {
		errors = append(errors, fmt.Sprintf("frame size must be non-zero, got %dx%d", c.FrameWidth, c.FrameHeight))
	}
	if c.PixelFormat.BytesPerPixel() == 0 {
		errors = append(errors, "pixel format must be bgr24 or gray8")
	}
	errors = append(errors, c.Presence.Validate()...)

	return errors
}

func (c *Config) selectorOptions(mode bestframe.Mode, width, height uint32) bestframe.Options {
	return bestframe.Options{
		Mode:               mode,
		BlurThreshold:      c.BlurThreshold,
		EnlargeCoefficient: c.CoefficientFrameSize,
		FrameWidth:         width,
		FrameHeight:        height,
		DiscardStale:       c.DiscardStale,
	}
}
