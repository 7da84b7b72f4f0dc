package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestEnlargeAndClamp(t *testing.T) {
	tests := []struct {
		name   string
		box    Box
		coeff  float64
		expect Region
	}{
		{
			name:   "centered growth",
			box:    Box{X: 100, Y: 100, Width: 100, Height: 100},
			coeff:  1.5,
			expect: Region{X: 75, Y: 75, Width: 150, Height: 150},
		},
		{
			name:   "identity",
			box:    Box{X: 10, Y: 20, Width: 30, Height: 40},
			coeff:  1.0,
			expect: Region{X: 10, Y: 20, Width: 30, Height: 40},
		},
		{
			name:   "right edge overflow shifts left",
			box:    Box{X: 1900, Y: 10, Width: 100, Height: 50},
			coeff:  1.2,
			expect: Region{X: 1800, Y: 5, Width: 120, Height: 60},
		},
		{
			name:   "top left corner clamps to origin",
			box:    Box{X: 0, Y: 0, Width: 100, Height: 100},
			coeff:  2.0,
			expect: Region{X: 0, Y: 0, Width: 200, Height: 200},
		},
		{
			name:   "bottom overflow shifts up",
			box:    Box{X: 500, Y: 1050, Width: 100, Height: 100},
			coeff:  1.0,
			expect: Region{X: 500, Y: 980, Width: 100, Height: 100},
		},
		{
			name:   "crop larger than frame spans the frame",
			box:    Box{X: 100, Y: 100, Width: 1500, Height: 1000},
			coeff:  2.0,
			expect: Region{X: 0, Y: 0, Width: 1920, Height: 1080},
		},
		{
			name:   "shrinking coefficient",
			box:    Box{X: 100, Y: 100, Width: 100, Height: 100},
			coeff:  0.5,
			expect: Region{X: 125, Y: 125, Width: 50, Height: 50},
		},
		{
			name:   "box fully outside the frame",
			box:    Box{X: 5000, Y: 4000, Width: 80, Height: 80},
			coeff:  1.0,
			expect: Region{X: 1840, Y: 1000, Width: 80, Height: 80},
		},
		{
			name:   "zero area box",
			box:    Box{X: 10, Y: 10, Width: 0, Height: 0},
			coeff:  1.5,
			expect: Region{X: 10, Y: 10, Width: 1, Height: 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EnlargeAndClamp(tc.box, tc.coeff, DefaultFrameWidth, DefaultFrameHeight)
			if err != nil {
				t.Fatalf("EnlargeAndClamp: unexpected error %v", err)
			}
			if got != tc.expect {
				t.Errorf("EnlargeAndClamp: got %+v, want %+v", got, tc.expect)
			}
			if !got.Within(DefaultFrameWidth, DefaultFrameHeight) {
				t.Errorf("region %+v escapes the frame", got)
			}
		})
	}
}

func TestEnlargeAndClamp_Preconditions(t *testing.T) {
	box := Box{X: 1, Y: 1, Width: 10, Height: 10}

	if _, err := EnlargeAndClamp(box, 1.2, 0, 1080); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("zero width frame: got %v, want ErrEmptyFrame", err)
	}
	if _, err := EnlargeAndClamp(box, 1.2, 1920, 0); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("zero height frame: got %v, want ErrEmptyFrame", err)
	}
	for _, c := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := EnlargeAndClamp(box, c, 1920, 1080); !errors.Is(err, ErrInvalidCoefficient) {
			t.Errorf("coefficient %v: got %v, want ErrInvalidCoefficient", c, err)
		}
	}
}

// Random boxes, including out-of-frame ones, must always land inside the frame.
func TestEnlargeAndClamp_AlwaysInsideFrame(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	frames := [][2]uint32{{1920, 1080}, {640, 480}, {1, 1}, {3, 2000}}

	for i := 0; i < 5000; i++ {
		fw, fh := frames[i%len(frames)][0], frames[i%len(frames)][1]
		box := Box{
			X:      uint32(rng.Intn(int(fw) * 2)),
			Y:      uint32(rng.Intn(int(fh) * 2)),
			Width:  uint32(rng.Intn(int(fw) + 1)),
			Height: uint32(rng.Intn(int(fh) + 1)),
		}
		coeff := 0.5 + rng.Float64()*2.5

		r, err := EnlargeAndClamp(box, coeff, fw, fh)
		if err != nil {
			t.Fatalf("box %+v coeff %.2f: %v", box, coeff, err)
		}
		if !r.Within(fw, fh) || r.Width == 0 || r.Height == 0 {
			t.Fatalf("box %+v coeff %.2f frame %dx%d: region %+v out of bounds", box, coeff, fw, fh, r)
		}
	}
}

func TestWidest(t *testing.T) {
	if _, ok := Widest(nil); ok {
		t.Error("Widest: expected no result for empty input")
	}

	boxes := []Box{
		{X: 1, Width: 50, Height: 10},
		{X: 2, Width: 80, Height: 5},
		{X: 3, Width: 80, Height: 90},
		{X: 4, Width: 20, Height: 200},
	}
	got, ok := Widest(boxes)
	if !ok {
		t.Fatal("Widest: expected a result")
	}
	if got.X != 2 {
		t.Errorf("Widest: got box %+v, want the first 80px wide box", got)
	}
}
