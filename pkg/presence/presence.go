// Package presence turns per-frame face detections into debounced presence state.
//
// A frame with at least one detection puts the tracker in PresentSmall or
// PresentBig depending on the widest face; TryCounter consecutive empty frames
// put it back in Absent. Position, size and near/far changes are reported as
// events in the order they are derived.
package presence

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-facetrack/pkg/debug"
	"github.com/teslashibe/go-facetrack/pkg/events"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
)

// State is the coarse presence state.
type State int

const (
	Absent State = iota
	PresentSmall
	PresentBig
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case PresentSmall:
		return "present_small"
	case PresentBig:
		return "present_big"
	default:
		return "absent"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "absent":
		*s = Absent
	case "present_small":
		*s = PresentSmall
	case "present_big":
		*s = PresentBig
	default:
		return fmt.Errorf("unknown presence state %q", text)
	}
	return nil
}

// Observation is the input for one tick.
type Observation struct {
	Faces  int          // number of detections; 0 is a miss
	Widest geometry.Box // widest detection, valid when Faces > 0
}

// ObservationFrom builds an Observation from a frame's detections.
func ObservationFrom(boxes []geometry.Box) Observation {
	widest, ok := geometry.Widest(boxes)
	if !ok {
		return Observation{}
	}
	return Observation{Faces: len(boxes), Widest: widest}
}

// Snapshot is a consistent copy of the tracker state.
type Snapshot struct {
	State             State `json:"state"`
	HasFace           bool  `json:"has_face"`
	HasBigFace        bool  `json:"has_big_face"`
	Near              bool  `json:"near"`
	ConsecutiveMisses int   `json:"consecutive_misses"`
	BigFrames         int   `json:"big_frames"`
	X                 int   `json:"x"`
	Y                 int   `json:"y"`
	XPrev             int   `json:"x_prev"`
	YPrev             int   `json:"y_prev"`
}

// Result is what one tick produced.
type Result struct {
	Snapshot Snapshot
	Events   []events.Event

	// Absent is set on every tick at or past the miss limit; callers clear
	// any best-frame working state.
	Absent bool
}

// Tracker is the presence state machine. Observe is meant to be called from a
// single tick loop; Snapshot may be called from anywhere.
type Tracker struct {
	mu  sync.RWMutex
	cfg Config

	hasFace    bool
	hasBigFace bool
	near       bool
	misses     int
	bigFrames  int
	x, y       int
	xPrev      int
	yPrev      int
}

// NewTracker creates a tracker in the Absent state.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Config returns the active thresholds.
func (t *Tracker) Config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg
}

// SetConfig replaces the thresholds. State is kept.
func (t *Tracker) SetConfig(cfg Config) {
	t.mu.Lock()
	t.cfg = cfg
	if t.misses > cfg.TryCounter {
		t.misses = cfg.TryCounter
	}
	t.mu.Unlock()
}

// Observe advances the state machine by one tick.
func (t *Tracker) Observe(obs Observation) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evs []events.Event
	prevFace, prevBig, prevNear := t.hasFace, t.hasBigFace, t.near

	if obs.Faces > 0 {
		box := obs.Widest
		big := box.Width >= t.cfg.MinFaceWidth && box.Height >= t.cfg.MinFaceHeight

		t.misses = 0
		t.hasFace = true
		t.hasBigFace = big
		if big {
			t.bigFrames++
		} else {
			t.bigFrames = 0
		}
		t.x, t.y = int(box.X), int(box.Y)

		if !prevFace {
			evs = append(evs, events.New(events.FaceFound).WithBox(box))
		}
		if big && !prevBig {
			evs = append(evs, events.New(events.FaceFoundDelayed).WithBox(box))
		} else if !big && prevBig {
			evs = append(evs, events.New(events.FaceLostDelayed))
		}

		// Only one axis is reported per tick, X first.
		if t.x != t.xPrev {
			t.xPrev = t.x
			evs = append(evs, events.New(events.FaceXChanged).WithBox(box))
		} else if t.y != t.yPrev {
			t.yPrev = t.y
			evs = append(evs, events.New(events.FaceYChanged).WithBox(box))
		}

		if t.cfg.nearEnabled() {
			t.near = box.Width >= t.cfg.MinNearFaceWidth && box.Height >= t.cfg.MinNearFaceHeight
			if t.near && !prevNear {
				evs = append(evs, events.New(events.NearFace).WithBox(box))
			} else if !t.near && prevNear {
				e := events.New(events.FarAway).WithBox(box)
				e.Far = true
				evs = append(evs, e)
			}
		}
	} else if t.misses < t.cfg.TryCounter {
		t.misses++
	}

	absent := false
	if t.misses >= t.cfg.TryCounter {
		absent = true
		if t.hasBigFace {
			evs = append(evs, events.New(events.FaceLostDelayed))
		}
		if t.near {
			e := events.New(events.FarAway)
			e.Far = true
			evs = append(evs, e)
		}
		if t.hasFace {
			evs = append(evs, events.New(events.FaceLost))
		}
		// Back to the zero state. misses stays at the limit so Absent keeps
		// being reported until a face is seen.
		t.hasFace = false
		t.hasBigFace = false
		t.near = false
		t.bigFrames = 0
		t.x, t.y, t.xPrev, t.yPrev = 0, 0, 0, 0
	}

	snap := t.snapshotLocked()
	if len(evs) > 0 {
		debug.TrackLog("presence transition", "state", snap.State, "events", len(evs), "misses", snap.ConsecutiveMisses)
	}
	return Result{Snapshot: snap, Events: evs, Absent: absent}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// Reset returns the tracker to its zero state without firing events.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasFace, t.hasBigFace, t.near = false, false, false
	t.misses, t.bigFrames = 0, 0
	t.x, t.y, t.xPrev, t.yPrev = 0, 0, 0, 0
}

func (t *Tracker) snapshotLocked() Snapshot {
	state := Absent
	switch {
	case t.hasFace && t.hasBigFace:
		state = PresentBig
	case t.hasFace:
		state = PresentSmall
	}
	return Snapshot{
		State:             state,
		HasFace:           t.hasFace,
		HasBigFace:        t.hasBigFace,
		Near:              t.near,
		ConsecutiveMisses: t.misses,
		BigFrames:         t.bigFrames,
		X:                 t.x,
		Y:                 t.y,
		XPrev:             t.xPrev,
		YPrev:             t.yPrev,
	}
}
