package imaging

import "github.com/teslashibe/go-facetrack/pkg/frame"

// blankLevel is the mean channel value under which a frame counts as black.
const blankLevel = 30

// Blank reports whether a frame is likely a black warm-up frame. Many webcams
// deliver a few of these right after opening while exposure settles.
func Blank(f frame.Frame) bool {
	if f.Validate() != nil {
		return true
	}

	bpp := f.Format.BytesPerPixel()
	stepX := max(f.Width/10, 1)
	stepY := max(f.Height/10, 1)

	sum, samples := 0, 0
	for y := 0; y < f.Height; y += stepY {
		row := y * f.Stride()
		for x := 0; x < f.Width; x += stepX {
			px := f.Data[row+x*bpp : row+x*bpp+bpp]
			for _, c := range px {
				sum += int(c)
			}
			samples += bpp
		}
	}
	if samples == 0 {
		return true
	}
	return sum/samples < blankLevel
}
