package bestframe

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
	"github.com/teslashibe/go-facetrack/pkg/sharpness"
)

// Mode selects which faces a job processes.
type Mode int

const (
	// ModeSingle keeps the sharpest crop of the widest face.
	ModeSingle Mode = iota
	// ModeAll encodes every face in the frame without a quality gate.
	ModeAll
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeAll {
		return "all"
	}
	return "single"
}

// ParseMode maps "single" or "all" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "single", "":
		return ModeSingle, nil
	case "all":
		return ModeAll, nil
	}
	return ModeSingle, fmt.Errorf("unknown mode %q", s)
}

// ErrBlurry is recorded when a candidate scores below the blur threshold.
var ErrBlurry = errors.New("bestframe: candidate below blur threshold")

// FaceData is one accepted crop. X, Y and WidthHeight describe the clamped
// region that was encoded, not the raw detection.
type FaceData struct {
	ID          string  `json:"id"`
	X           uint32  `json:"x"`
	Y           uint32  `json:"y"`
	WidthHeight uint32  `json:"width_height"`
	Image       []byte  `json:"image"`
	Score       float64 `json:"score"`
}

// Clone returns a deep copy.
func (f FaceData) Clone() FaceData {
	c := f
	c.Image = append([]byte(nil), f.Image...)
	return c
}

// Codec is the encode/convert collaborator.
type Codec interface {
	// EncodeRegion encodes the region of the frame as an image (JPEG).
	EncodeRegion(f frame.Frame, r geometry.Region) ([]byte, error)

	// DecodeGray decodes encoded bytes to a grayscale sample for scoring.
	DecodeGray(data []byte) (sharpness.Sample, error)
}

// Scorer is implemented by codecs that can score encoded bytes directly.
type Scorer interface {
	Sharpness(data []byte) (float64, error)
}

// Options are the per-call knobs of TryProcess.
type Options struct {
	Mode               Mode
	BlurThreshold      float64
	EnlargeCoefficient float64
	FrameWidth         uint32
	FrameHeight        uint32

	// DiscardStale drops results of jobs that started before the last Reset.
	DiscardStale bool
}

// Stats counts selector activity.
type Stats struct {
	Started  uint64 `json:"started"`
	Dropped  uint64 `json:"dropped"`
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
	Failed   uint64 `json:"failed"`
	Stale    uint64 `json:"stale"`
}
