package presence

import "fmt"

// Config holds the presence thresholds.
type Config struct {
	// Size gate for a "big" face, the one worth cropping.
	MinFaceWidth  uint32 `json:"min_face_width"`
	MinFaceHeight uint32 `json:"min_face_height"`

	// Near zone; both zero disables near/far notifications.
	MinNearFaceWidth  uint32 `json:"min_near_face_width"`
	MinNearFaceHeight uint32 `json:"min_near_face_height"`

	// TryCounter is the number of consecutive empty frames before the face is
	// declared lost.
	TryCounter int `json:"try_counter"`
}

// DefaultConfig returns thresholds tuned for a 1080p kiosk camera.
func DefaultConfig() Config {
	return Config{
		MinFaceWidth:      120,
		MinFaceHeight:     120,
		MinNearFaceWidth:  260,
		MinNearFaceHeight: 260,
		TryCounter:        10, // 1s at 10 fps
	}
}

// Validate checks the config and returns a list of problems, or nil.
func (c *Config) Validate() []string {
	var errors []string
	if c.TryCounter < 1 {
		errors = append(errors, fmt.Sprintf("try_counter must be >= 1, got %d", c.TryCounter))
	}
	if c.nearEnabled() && (c.MinNearFaceWidth < c.MinFaceWidth || c.MinNearFaceHeight < c.MinFaceHeight) {
		errors = append(errors, "near face thresholds must not be smaller than the minimum face size")
	}
	return errors
}

func (c *Config) nearEnabled() bool {
	return c.MinNearFaceWidth > 0 || c.MinNearFaceHeight > 0
}
