// Package bestframe picks the sharpest usable face crop in the background.
//
// At most one job runs at a time: a frame offered while a job is in flight is
// dropped, never queued. Results are built off to the side and swapped in
// whole, so readers never see a half-written FaceData.
package bestframe

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facetrack/pkg/debug"
	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
	"github.com/teslashibe/go-facetrack/pkg/sharpness"
)

// Selector runs best-frame jobs one at a time.
type Selector struct {
	codec  Codec
	logger *slog.Logger

	busy atomic.Bool
	wg   sync.WaitGroup

	mu    sync.RWMutex
	best  *FaceData
	faces []FaceData
	gen   uint64

	// OnSaved is called from the job goroutine with the crops a job committed.
	OnSaved func(mode Mode, saved []FaceData)

	started  atomic.Uint64
	dropped  atomic.Uint64
	accepted atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64
	stale    atomic.Uint64
}

// New creates a selector around the codec.
func New(codec Codec, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{codec: codec, logger: logger}
}

// TryProcess starts a job for the frame unless one is already running.
// It returns true when a job was started.
func (s *Selector) TryProcess(f frame.Frame, boxes []geometry.Box, opts Options) bool {
	if len(boxes) == 0 {
		return false
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		debug.TrackLog("selector busy, frame dropped", "seq", f.Seq)
		return false
	}

	s.started.Add(1)
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	candidates := append([]geometry.Box(nil), boxes...)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.run(f, candidates, opts, gen)
	}()
	return true
}

// Busy reports whether a job is in flight.
func (s *Selector) Busy() bool {
	return s.busy.Load()
}

// Wait blocks until the in-flight job, if any, has finished.
func (s *Selector) Wait() {
	s.wg.Wait()
}

// Best returns a copy of the retained single-mode result.
func (s *Selector) Best() (FaceData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.best == nil {
		return FaceData{}, false
	}
	return s.best.Clone(), true
}

// Faces returns a copy of the retained all-faces result.
func (s *Selector) Faces() []FaceData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FaceData, len(s.faces))
	for i, fd := range s.faces {
		out[i] = fd.Clone()
	}
	return out
}

// Reset clears retained results. A job already running is not interrupted.
func (s *Selector) Reset() {
	s.mu.Lock()
	s.best = nil
	s.faces = nil
	s.gen++
	s.mu.Unlock()
}

// Stats returns activity counters.
func (s *Selector) Stats() Stats {
	return Stats{
		Started:  s.started.Load(),
		Dropped:  s.dropped.Load(),
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
		Failed:   s.failed.Load(),
		Stale:    s.stale.Load(),
	}
}

func (s *Selector) run(f frame.Frame, boxes []geometry.Box, opts Options, gen uint64) {
	var saved []FaceData
	if opts.Mode == ModeAll {
		saved = s.runAll(f, boxes, opts)
	} else {
		saved = s.runSingle(f, boxes, opts)
	}
	if saved == nil {
		return
	}

	s.mu.Lock()
	if opts.DiscardStale && gen != s.gen {
		s.mu.Unlock()
		s.stale.Add(1)
		s.logger.Debug("discarding result of job started before reset", "seq", f.Seq)
		return
	}
	if opts.Mode == ModeAll {
		s.faces = saved
	} else {
		best := saved[0]
		s.best = &best
	}
	s.mu.Unlock()

	if s.OnSaved != nil && len(saved) > 0 {
		out := make([]FaceData, len(saved))
		for i, fd := range saved {
			out[i] = fd.Clone()
		}
		s.OnSaved(opts.Mode, out)
	}
}

// runSingle scores the widest face and returns it when it clears the threshold.
func (s *Selector) runSingle(f frame.Frame, boxes []geometry.Box, opts Options) []FaceData {
	box, _ := geometry.Widest(boxes)

	fd, err := s.candidate(f, box, opts, true)
	if err != nil {
		if err == ErrBlurry {
			s.rejected.Add(1)
			debug.TrackLog("candidate rejected", "seq", f.Seq, "score", fd.Score, "threshold", opts.BlurThreshold)
		} else {
			s.failed.Add(1)
			s.logger.Error("face crop failed", "seq", f.Seq, "error", err)
		}
		return nil
	}

	s.accepted.Add(1)
	debug.TrackLog("candidate accepted", "seq", f.Seq, "score", fd.Score, "id", fd.ID)
	return []FaceData{fd}
}

// runAll encodes every face; a failing face is skipped.
func (s *Selector) runAll(f frame.Frame, boxes []geometry.Box, opts Options) []FaceData {
	list := make([]FaceData, 0, len(boxes))
	for i, box := range boxes {
		fd, err := s.candidate(f, box, opts, false)
		if err != nil {
			s.failed.Add(1)
			s.logger.Error("face crop failed", "seq", f.Seq, "face", i, "error", err)
			continue
		}
		list = append(list, fd)
	}
	s.accepted.Add(uint64(len(list)))
	return list
}

// candidate crops and encodes one face. Panics from the codec are turned into
// errors so one bad face cannot take the job down.
func (s *Selector) candidate(f frame.Frame, box geometry.Box, opts Options, score bool) (fd FaceData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codec panic: %v", r)
		}
	}()

	region, err := geometry.EnlargeAndClamp(box, opts.EnlargeCoefficient, opts.FrameWidth, opts.FrameHeight)
	if err != nil {
		return FaceData{}, err
	}
	debug.TrackLog("crop region", "box", box, "region", region)

	data, err := s.codec.EncodeRegion(f, region)
	if err != nil {
		return FaceData{}, fmt.Errorf("encode region: %w", err)
	}

	fd = FaceData{
		ID:          uuid.NewString(),
		X:           region.X,
		Y:           region.Y,
		WidthHeight: region.Width,
		Image:       data,
	}
	if !score {
		return fd, nil
	}

	fd.Score, err = s.score(data)
	if err != nil {
		return FaceData{}, fmt.Errorf("score: %w", err)
	}
	if fd.Score < opts.BlurThreshold {
		return fd, ErrBlurry
	}
	return fd, nil
}

func (s *Selector) score(data []byte) (float64, error) {
	if sc, ok := s.codec.(Scorer); ok {
		return sc.Sharpness(data)
	}
	sample, err := s.codec.DecodeGray(data)
	if err != nil {
		return 0, fmt.Errorf("decode gray: %w", err)
	}
	return sharpness.Score(sample)
}
