// Package pipeline drives one tick per captured frame: detect, update presence,
// publish events and hand big faces to the best-frame selector.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-facetrack/pkg/bestframe"
	"github.com/teslashibe/go-facetrack/pkg/debug"
	"github.com/teslashibe/go-facetrack/pkg/events"
	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
	"github.com/teslashibe/go-facetrack/pkg/presence"
)

// ErrInvalidConfig is returned by New when the config does not validate.
var ErrInvalidConfig = errors.New("pipeline: invalid config")

// FrameSource interface for capturing frames
type FrameSource interface {
	Capture(ctx context.Context) (frame.Frame, error)
}

// Detector interface for finding faces in a frame
type Detector interface {
	Detect(f frame.Frame) ([]geometry.Box, error)
}

// Publisher receives every event the driver derives
type Publisher interface {
	Publish(e events.Event)
}

// TickResult is what one tick observed and produced.
type TickResult struct {
	Seq      uint64
	Skipped  bool // frame was in the wrong format; nothing was updated
	Faces    int
	Presence presence.Snapshot
	Events   []events.Event
	Launched bool // a selector job was started for this frame
	Absent   bool // the miss limit was reached and selector state was cleared

	// Latest retained results at the end of the tick. A job launched by this
	// tick usually lands on a later one.
	Best *bestframe.FaceData
	All  []bestframe.FaceData
}

// Stats counts driver activity.
type Stats struct {
	Ticks        uint64          `json:"ticks"`
	Skipped      uint64          `json:"skipped"`
	CaptureFails uint64          `json:"capture_fails"`
	DetectFails  uint64          `json:"detect_fails"`
	Selector     bestframe.Stats `json:"selector"`
}

// Driver ties the frame source, detector, presence tracker and selector together.
type Driver struct {
	cfg       Config
	source    FrameSource
	detector  Detector
	publisher Publisher
	logger    *slog.Logger

	tracker  *presence.Tracker
	selector *bestframe.Selector

	tickMu sync.Mutex // one tick at a time

	sizeMu      sync.RWMutex
	frameWidth  uint32
	frameHeight uint32

	ticks        atomic.Uint64
	skipped      atomic.Uint64
	captureFails atomic.Uint64
	detectFails  atomic.Uint64
}

// New creates a driver. The publisher may be nil.
func New(cfg Config, source FrameSource, detector Detector, codec bestframe.Codec, publisher Publisher, logger *slog.Logger) (*Driver, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	if source == nil || detector == nil || codec == nil {
		return nil, fmt.Errorf("%w: source, detector and codec are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Driver{
		cfg:         cfg,
		source:      source,
		detector:    detector,
		publisher:   publisher,
		logger:      logger,
		tracker:     presence.NewTracker(cfg.Presence),
		selector:    bestframe.New(codec, logger.With("component", "bestframe")),
		frameWidth:  cfg.FrameWidth,
		frameHeight: cfg.FrameHeight,
	}
	d.selector.OnSaved = d.facesSaved
	return d, nil
}

// Config returns the driver configuration.
func (d *Driver) Config() Config {
	d.sizeMu.RLock()
	defer d.sizeMu.RUnlock()
	cfg := d.cfg
	cfg.FrameWidth, cfg.FrameHeight = d.frameWidth, d.frameHeight
	cfg.Presence = d.tracker.Config()
	return cfg
}

// SetFrameSize updates the clamp bounds, e.g. after the camera resolution changed.
func (d *Driver) SetFrameSize(width, height uint32) error {
	if width == 0 || height == 0 {
		return geometry.ErrEmptyFrame
	}
	d.sizeMu.Lock()
	d.frameWidth, d.frameHeight = width, height
	d.sizeMu.Unlock()
	d.logger.Info("frame size updated", "width", width, "height", height)
	return nil
}

// SetPresenceConfig replaces the presence thresholds without resetting state.
func (d *Driver) SetPresenceConfig(cfg presence.Config) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	d.tracker.SetConfig(cfg)
	d.logger.Info("presence thresholds updated",
		"min_face", cfg.MinFaceWidth,
		"min_near_face", cfg.MinNearFaceWidth,
		"try_counter", cfg.TryCounter)
	return nil
}

// Tick processes one frame in the configured mode.
func (d *Driver) Tick(ctx context.Context) (TickResult, error) {
	return d.tick(ctx, d.cfg.Mode)
}

// FacePhoto processes one frame in single mode and returns the best crop
// retained so far.
func (d *Driver) FacePhoto(ctx context.Context) (bestframe.FaceData, bool, error) {
	res, err := d.tick(ctx, bestframe.ModeSingle)
	if err != nil || res.Best == nil {
		return bestframe.FaceData{}, false, err
	}
	return *res.Best, true, nil
}

// AllFaces processes one frame in all-faces mode and returns the latest list.
func (d *Driver) AllFaces(ctx context.Context) ([]bestframe.FaceData, error) {
	res, err := d.tick(ctx, bestframe.ModeAll)
	if err != nil {
		return nil, err
	}
	return res.All, nil
}

// Run ticks at TickInterval until the context is cancelled, then waits for
// the in-flight selector job.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()
	defer d.selector.Wait()

	d.logger.Info("pipeline started",
		"interval", d.cfg.TickInterval,
		"mode", d.cfg.Mode,
		"blur_threshold", d.cfg.BlurThreshold,
		"coefficient", d.cfg.CoefficientFrameSize,
		"try_counter", d.cfg.Presence.TryCounter)

	failures := 0
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("pipeline stopped", "ticks", d.ticks.Load())
			return

		case <-ticker.C:
			if _, err := d.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				failures++
				// Log the first failure and then every 50th so a dead camera
				// does not flood the log at 10 fps.
				if failures == 1 || failures%50 == 0 {
					d.logger.Warn("tick failed", "error", err, "consecutive", failures)
				}
				continue
			}
			if failures > 0 {
				d.logger.Info("capture recovered", "after", failures)
				failures = 0
			}
		}
	}
}

// Reset restarts the session: presence and retained crops are cleared.
func (d *Driver) Reset() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	d.tracker.Reset()
	d.selector.Reset()
	d.logger.Info("session reset")
}

// State returns the current presence snapshot.
func (d *Driver) State() presence.Snapshot {
	return d.tracker.Snapshot()
}

// Best returns a copy of the retained single-mode crop.
func (d *Driver) Best() (bestframe.FaceData, bool) {
	return d.selector.Best()
}

// Faces returns a copy of the retained all-faces list.
func (d *Driver) Faces() []bestframe.FaceData {
	return d.selector.Faces()
}

// Wait blocks until the in-flight selector job has finished.
func (d *Driver) Wait() {
	d.selector.Wait()
}

// Stats returns activity counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Ticks:        d.ticks.Load(),
		Skipped:      d.skipped.Load(),
		CaptureFails: d.captureFails.Load(),
		DetectFails:  d.detectFails.Load(),
		Selector:     d.selector.Stats(),
	}
}

func (d *Driver) tick(ctx context.Context, mode bestframe.Mode) (TickResult, error) {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	f, err := d.source.Capture(ctx)
	if err != nil {
		d.captureFails.Add(1)
		return TickResult{}, fmt.Errorf("capture: %w", err)
	}
	d.ticks.Add(1)
	res := TickResult{Seq: f.Seq}

	if f.Format != d.cfg.PixelFormat {
		d.skipped.Add(1)
		debug.TrackLog("frame skipped", "seq", f.Seq, "format", f.Format, "want", d.cfg.PixelFormat)
		res.Skipped = true
		res.Presence = d.tracker.Snapshot()
		return res, nil
	}
	if err := f.Validate(); err != nil {
		d.skipped.Add(1)
		d.logger.Warn("frame skipped", "seq", f.Seq, "error", err)
		res.Skipped = true
		res.Presence = d.tracker.Snapshot()
		return res, nil
	}

	boxes, err := d.detector.Detect(f)
	if err != nil {
		d.detectFails.Add(1)
		d.logger.Warn("detection failed, treating frame as empty", "seq", f.Seq, "error", err)
		boxes = nil
	}
	res.Faces = len(boxes)
	if len(boxes) > 0 {
		debug.TrackLog("faces detected", "seq", f.Seq, "count", len(boxes))
	}

	obs := d.tracker.Observe(presence.ObservationFrom(boxes))
	res.Presence = obs.Snapshot
	res.Events = obs.Events
	res.Absent = obs.Absent
	d.publish(obs.Events)

	switch {
	case obs.Absent:
		d.selector.Reset()
	case mode == bestframe.ModeSingle && obs.Snapshot.HasBigFace && obs.Snapshot.BigFrames >= d.cfg.WarmupFrames:
		res.Launched = d.selector.TryProcess(f, boxes, d.options(mode, f))
	case mode == bestframe.ModeAll && obs.Snapshot.HasFace && len(boxes) > 0:
		res.Launched = d.selector.TryProcess(f, boxes, d.options(mode, f))
	}

	if best, ok := d.selector.Best(); ok {
		res.Best = &best
	}
	res.All = d.selector.Faces()
	return res, nil
}

// options builds selector options. Clamp bounds never exceed the frame itself.
func (d *Driver) options(mode bestframe.Mode, f frame.Frame) bestframe.Options {
	d.sizeMu.RLock()
	w, h := d.frameWidth, d.frameHeight
	d.sizeMu.RUnlock()
	if fw := uint32(f.Width); fw < w {
		w = fw
	}
	if fh := uint32(f.Height); fh < h {
		h = fh
	}
	return d.cfg.selectorOptions(mode, w, h)
}

func (d *Driver) publish(evs []events.Event) {
	if d.publisher == nil {
		return
	}
	for _, e := range evs {
		d.publisher.Publish(e)
	}
}

func (d *Driver) facesSaved(mode bestframe.Mode, saved []bestframe.FaceData) {
	ids := make([]string, len(saved))
	for i, fd := range saved {
		ids[i] = fd.ID
	}
	d.logger.Info("faces saved", "mode", mode, "count", len(saved))
	if d.publisher == nil {
		return
	}
	e := events.New(events.FacesSaved)
	e.FaceIDs = ids
	d.publisher.Publish(e)
}
