package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facetrack/pkg/events"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
)

func face(x, y, w, h uint32) Observation {
	return Observation{Faces: 1, Widest: geometry.Box{X: x, Y: y, Width: w, Height: h}}
}

var miss = Observation{}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Kind)
	}
	return out
}

func testConfig(tryCounter int) Config {
	return Config{MinFaceWidth: 40, MinFaceHeight: 40, TryCounter: tryCounter}
}

func TestTracker_SmallFaceThenAbsence(t *testing.T) {
	tr := NewTracker(testConfig(3))

	states := []State{}
	for _, obs := range []Observation{face(10, 10, 50, 30), miss, miss, miss} {
		states = append(states, tr.Observe(obs).Snapshot.State)
	}

	assert.Equal(t, []State{PresentSmall, PresentSmall, PresentSmall, Absent}, states)
}

func TestTracker_MissCounter(t *testing.T) {
	const k = 4

	t.Run("k misses declare absence", func(t *testing.T) {
		tr := NewTracker(testConfig(k))
		tr.Observe(face(0, 0, 100, 100))
		for i := 1; i < k; i++ {
			r := tr.Observe(miss)
			require.False(t, r.Absent, "miss %d", i)
			require.Equal(t, PresentBig, r.Snapshot.State)
			require.Equal(t, i, r.Snapshot.ConsecutiveMisses)
		}
		r := tr.Observe(miss)
		assert.True(t, r.Absent)
		assert.Equal(t, Absent, r.Snapshot.State)
		assert.Equal(t, []events.Kind{events.FaceLostDelayed, events.FaceLost}, kinds(r.Events))
	})

	t.Run("k-1 misses then a detection resets", func(t *testing.T) {
		tr := NewTracker(testConfig(k))
		tr.Observe(face(0, 0, 100, 100))
		for i := 1; i < k; i++ {
			tr.Observe(miss)
		}
		r := tr.Observe(face(0, 0, 100, 100))
		assert.False(t, r.Absent)
		assert.Equal(t, 0, r.Snapshot.ConsecutiveMisses)
		assert.Equal(t, PresentBig, r.Snapshot.State)
		assert.Empty(t, r.Events)
	})

	t.Run("counter saturates while absent", func(t *testing.T) {
		tr := NewTracker(testConfig(k))
		for i := 0; i < 3*k; i++ {
			r := tr.Observe(miss)
			assert.LessOrEqual(t, r.Snapshot.ConsecutiveMisses, k)
			assert.Empty(t, r.Events)
		}
	})
}

func TestTracker_BigFaceEvents(t *testing.T) {
	tr := NewTracker(testConfig(2))

	r := tr.Observe(face(100, 50, 60, 60))
	assert.Equal(t, []events.Kind{events.FaceFound, events.FaceFoundDelayed, events.FaceXChanged}, kinds(r.Events))
	assert.Equal(t, 1, r.Snapshot.BigFrames)

	// Y was masked by X on the first tick and is reported now.
	r = tr.Observe(face(100, 50, 60, 60))
	assert.Equal(t, []events.Kind{events.FaceYChanged}, kinds(r.Events))
	assert.Equal(t, 2, r.Snapshot.BigFrames)

	// Shrinking below the size gate leaves the big state immediately.
	r = tr.Observe(face(100, 50, 20, 20))
	assert.Equal(t, []events.Kind{events.FaceLostDelayed}, kinds(r.Events))
	assert.Equal(t, PresentSmall, r.Snapshot.State)
	assert.Equal(t, 0, r.Snapshot.BigFrames)
}

func TestTracker_BigRequiresBothDimensions(t *testing.T) {
	tr := NewTracker(testConfig(2))
	assert.Equal(t, PresentSmall, tr.Observe(face(0, 0, 200, 39)).Snapshot.State)
	assert.Equal(t, PresentBig, tr.Observe(face(0, 0, 40, 40)).Snapshot.State)
}

func TestTracker_PositionChangeXWinsOverY(t *testing.T) {
	tr := NewTracker(testConfig(5))
	tr.Observe(face(10, 10, 30, 30))
	r := tr.Observe(face(10, 10, 50, 50))
	require.Equal(t, []events.Kind{events.FaceYChanged}, kinds(r.Events))

	r = tr.Observe(face(20, 30, 50, 50))
	assert.Equal(t, []events.Kind{events.FaceXChanged}, kinds(r.Events))
	assert.Equal(t, 20, r.Snapshot.XPrev)
	assert.Equal(t, 10, r.Snapshot.YPrev, "Y is only committed on a tick where X is unchanged")

	r = tr.Observe(face(20, 30, 50, 50))
	assert.Equal(t, []events.Kind{events.FaceYChanged}, kinds(r.Events))
	assert.Equal(t, 30, r.Snapshot.YPrev)

	r = tr.Observe(face(20, 30, 50, 50))
	assert.Empty(t, r.Events)
}

func TestTracker_NearFar(t *testing.T) {
	cfg := testConfig(2)
	cfg.MinNearFaceWidth, cfg.MinNearFaceHeight = 200, 200
	tr := NewTracker(cfg)

	r := tr.Observe(face(0, 0, 250, 250))
	require.Contains(t, kinds(r.Events), events.NearFace)
	assert.True(t, r.Snapshot.Near)

	r = tr.Observe(face(0, 0, 100, 100))
	require.Equal(t, []events.Kind{events.FarAway}, kinds(r.Events))
	assert.True(t, r.Events[0].Far)
	require.NotNil(t, r.Events[0].Box)
	assert.Equal(t, uint32(100), r.Events[0].Box.Width)

	tr.Observe(face(0, 0, 250, 250))
	tr.Observe(miss)
	r = tr.Observe(miss)
	assert.Equal(t, []events.Kind{events.FaceLostDelayed, events.FarAway, events.FaceLost}, kinds(r.Events))
	assert.False(t, r.Snapshot.Near)
}

func TestTracker_AbsenceClearsPosition(t *testing.T) {
	tr := NewTracker(testConfig(2))
	tr.Observe(face(100, 100, 50, 50))
	tr.Observe(face(100, 100, 50, 50))
	tr.Observe(miss)

	r := tr.Observe(miss)
	require.True(t, r.Absent)
	assert.Equal(t, Snapshot{State: Absent, ConsecutiveMisses: 2}, r.Snapshot)

	// The same face coming back is a move from the origin, not a no-op.
	r = tr.Observe(face(100, 100, 50, 50))
	assert.Equal(t, []events.Kind{events.FaceFound, events.FaceFoundDelayed, events.FaceXChanged}, kinds(r.Events))
	assert.Equal(t, 100, r.Snapshot.XPrev)
	assert.Equal(t, 0, r.Snapshot.YPrev)

	r = tr.Observe(face(100, 100, 50, 50))
	assert.Equal(t, []events.Kind{events.FaceYChanged}, kinds(r.Events))
}

func TestTracker_NearDisabled(t *testing.T) {
	tr := NewTracker(testConfig(2))
	r := tr.Observe(face(0, 0, 1000, 1000))
	assert.NotContains(t, kinds(r.Events), events.NearFace)
	assert.False(t, r.Snapshot.Near)
}

func TestTracker_InvariantBigImpliesFace(t *testing.T) {
	tr := NewTracker(testConfig(3))
	seq := []Observation{face(0, 0, 50, 50), miss, face(5, 5, 10, 10), miss, miss, miss, face(1, 1, 90, 90), miss}
	for _, obs := range seq {
		s := tr.Observe(obs).Snapshot
		if s.HasBigFace {
			assert.True(t, s.HasFace)
		}
		assert.LessOrEqual(t, s.ConsecutiveMisses, 3)
	}
}

func TestTracker_SetConfigLowersMisses(t *testing.T) {
	tr := NewTracker(testConfig(5))
	tr.Observe(face(10, 10, 30, 30))
	for i := 0; i < 4; i++ {
		tr.Observe(miss)
	}
	assert.Equal(t, 4, tr.Snapshot().ConsecutiveMisses)

	tr.SetConfig(testConfig(2))
	assert.Equal(t, 2, tr.Snapshot().ConsecutiveMisses)

	r := tr.Observe(miss)
	assert.True(t, r.Absent)
	assert.Equal(t, 2, r.Snapshot.ConsecutiveMisses)
	assert.Equal(t, []events.Kind{events.FaceLost}, kinds(r.Events))
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(testConfig(3))
	tr.Observe(face(10, 10, 100, 100))
	tr.Reset()

	s := tr.Snapshot()
	assert.Equal(t, Absent, s.State)
	assert.Equal(t, Snapshot{}, s)
	assert.Equal(t, 3, tr.Config().TryCounter)
}

func TestObservationFrom(t *testing.T) {
	assert.Equal(t, Observation{}, ObservationFrom(nil))

	obs := ObservationFrom([]geometry.Box{{X: 1, Width: 10}, {X: 2, Width: 30}})
	assert.Equal(t, 2, obs.Faces)
	assert.Equal(t, uint32(2), obs.Widest.X)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())

	cfg.TryCounter = 0
	assert.Len(t, cfg.Validate(), 1)

	cfg = DefaultConfig()
	cfg.MinNearFaceWidth = cfg.MinFaceWidth - 1
	assert.Len(t, cfg.Validate(), 1)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "present_small", PresentSmall.String())
	assert.Equal(t, "present_big", PresentBig.String())
}
