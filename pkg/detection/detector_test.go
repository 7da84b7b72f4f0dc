package detection

import (
	"testing"

	"github.com/teslashibe/go-facetrack/pkg/geometry"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name    string
		det     Detection
		expectX float64
		expectY float64
	}{
		{
			name:    "centered face",
			det:     Detection{X: 860, Y: 440, W: 200, H: 200},
			expectX: 960,
			expectY: 540,
		},
		{
			name:    "top left corner",
			det:     Detection{X: 0, Y: 0, W: 20, H: 40},
			expectX: 10,
			expectY: 20,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.det.Center()
			if x != tc.expectX {
				t.Errorf("Center X: got %.2f, want %.2f", x, tc.expectX)
			}
			if y != tc.expectY {
				t.Errorf("Center Y: got %.2f, want %.2f", y, tc.expectY)
			}
		})
	}
}

func TestDetection_Area(t *testing.T) {
	d := Detection{W: 10, H: 20}
	if d.Area() != 200 {
		t.Errorf("Area: got %.2f, want 200", d.Area())
	}
}

func TestDetection_Box(t *testing.T) {
	tests := []struct {
		name   string
		det    Detection
		want   geometry.Box
		wantOK bool
	}{
		{
			name:   "inside frame",
			det:    Detection{X: 10.4, Y: 20.6, W: 100, H: 120},
			want:   geometry.Box{X: 10, Y: 21, Width: 100, Height: 120},
			wantOK: true,
		},
		{
			name:   "negative origin is cut",
			det:    Detection{X: -30, Y: -10, W: 100, H: 50},
			want:   geometry.Box{X: 0, Y: 0, Width: 70, Height: 40},
			wantOK: true,
		},
		{
			name:   "overflow is cut",
			det:    Detection{X: 600, Y: 400, W: 100, H: 100},
			want:   geometry.Box{X: 600, Y: 400, Width: 40, Height: 80},
			wantOK: true,
		},
		{
			name:   "entirely off frame",
			det:    Detection{X: -200, Y: 10, W: 100, H: 100},
			wantOK: false,
		},
		{
			name:   "degenerate",
			det:    Detection{X: 10, Y: 10, W: 0.2, H: 50},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.det.Box(640, 480)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Errorf("Box: got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestBoxes_KeepsOrder(t *testing.T) {
	dets := []Detection{
		{X: 300, Y: 10, W: 50, H: 50},
		{X: -500, Y: 10, W: 50, H: 50},
		{X: 10, Y: 10, W: 80, H: 80},
	}

	boxes := Boxes(dets, 640, 480)
	if len(boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(boxes))
	}
	if boxes[0].X != 300 || boxes[1].X != 10 {
		t.Errorf("unexpected order: %+v", boxes)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should be valid, got %v", errs)
	}

	cfg = Config{ConfidenceThresh: 2, NMSThresh: -1}
	if errs := cfg.Validate(); len(errs) != 5 {
		t.Errorf("expected 5 problems, got %d: %v", len(errs), errs)
	}
}
