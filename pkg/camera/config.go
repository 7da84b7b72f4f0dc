// Package camera provides runtime-configurable capture settings.
// It follows the same pattern as pkg/pipeline for tunable parameters.
package camera

import (
	"fmt"

	"github.com/teslashibe/go-facetrack/pkg/frame"
)

// Config holds all capture configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// Device is a camera index ("0"), a device path or a stream URL.
	Device string `json:"device"`

	// === Resolution ===
	Width     int    `json:"width"`     // Frame width in pixels
	Height    int    `json:"height"`    // Frame height in pixels
	Framerate int    `json:"framerate"` // Target FPS
	Format    string `json:"format"`    // Pixel format handed to the pipeline: bgr24 or gray8
	Quality   int    `json:"quality"`   // JPEG quality 1-100 for crops and previews

	// === Image controls ===
	// Values are passed to the driver as-is; 0 leaves the driver default.
	Brightness float64 `json:"brightness"` // -1.0 to +1.0
	Contrast   float64 `json:"contrast"`   // -1.0 to +1.0
	Gain       float64 `json:"gain"`       // 0 (auto) or 1.0 to 16.0

	// Exposure is manual exposure in driver units. Set to 0 for auto exposure.
	Exposure float64 `json:"exposure"`

	// AutoFocus enables continuous autofocus where supported.
	AutoFocus bool `json:"auto_focus"`

	// === Capture behaviour ===
	BufferSize   int `json:"buffer_size"`   // Driver queue length; 1 keeps frames fresh
	WarmupFrames int `json:"warmup_frames"` // Black frames tolerated after opening
}

// Capture limits accepted by Validate
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
	MaxGain      = 16.0
	MaxBuffer    = 32
	MaxWarmup    = 100
)

// DefaultConfig returns the recommended configuration.
// Uses 1920x1080 (1080p), the size the face thresholds are tuned for.
func DefaultConfig() Config {
	return Config{
		Device: "0",

		Width:     1920,
		Height:    1080,
		Framerate: 30,
		Format:    frame.FormatBGR24.String(),
		Quality:   90,

		AutoFocus: true,

		BufferSize:   1,
		WarmupFrames: 10,
	}
}

// LegacyConfig returns a 640x480 configuration for older webcams.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// PixelFormat returns the parsed Format.
func (c *Config) PixelFormat() (frame.PixelFormat, error) {
	return frame.ParsePixelFormat(c.Format)
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device is required")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}
	if _, err := c.PixelFormat(); err != nil {
		errors = append(errors, "format must be bgr24 or gray8")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	// Image controls
	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between -1.0 and 1.0")
	}
	if c.Contrast < -1.0 || c.Contrast > 1.0 {
		errors = append(errors, "contrast must be between -1.0 and 1.0")
	}
	if c.Gain != 0 && (c.Gain < 1.0 || c.Gain > MaxGain) {
		errors = append(errors, "gain must be 0 (auto) or between 1.0 and 16.0")
	}
	if c.Exposure < 0 {
		errors = append(errors, "exposure must be 0 (auto) or positive")
	}

	// Capture behaviour
	if c.BufferSize < 1 || c.BufferSize > MaxBuffer {
		errors = append(errors, fmt.Sprintf("buffer_size must be between 1 and %d", MaxBuffer))
	}
	if c.WarmupFrames < 0 || c.WarmupFrames > MaxWarmup {
		errors = append(errors, fmt.Sprintf("warmup_frames must be between 0 and %d", MaxWarmup))
	}

	return errors
}

// Capabilities returns the accepted ranges, for the camera API.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"max_gain":      MaxGain,
		"formats":       []string{frame.FormatBGR24.String(), frame.FormatGray8.String()},
		"presets":       PresetNames(),
	}
}
