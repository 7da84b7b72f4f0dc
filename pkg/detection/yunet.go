package detection

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/pkg/debug"
	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/geometry"
)

// ErrEmptyImage is returned when the input decodes to nothing.
var ErrEmptyImage = errors.New("detection: empty image")

// YuNetDetector uses OpenCV's FaceDetectorYN for face detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid detector config: %v", problems)
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	// Input size is updated per frame
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		float32(cfg.NMSThresh),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in a raw frame
func (d *YuNetDetector) Detect(f frame.Frame) ([]geometry.Box, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	img, err := matFromFrame(f)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	dets, err := d.detectMat(img)
	if err != nil {
		return nil, err
	}
	return Boxes(dets, f.Width, f.Height), nil
}

func (d *YuNetDetector) detectMat(img gocv.Mat) ([]Detection, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	var detections []Detection
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		detections = append(detections, Detection{
			X:          float64(faces.GetFloatAt(r, 0)),
			Y:          float64(faces.GetFloatAt(r, 1)),
			W:          float64(faces.GetFloatAt(r, 2)),
			H:          float64(faces.GetFloatAt(r, 3)),
			Confidence: float64(faces.GetFloatAt(r, 14)),
		})
	}

	if len(detections) > 0 {
		debug.TrackLog("yunet detections", "count", len(detections), "width", img.Cols(), "height", img.Rows())
	}

	return detections, nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

// matFromFrame wraps a frame as a 3-channel BGR Mat, which FaceDetectorYN requires.
func matFromFrame(f frame.Frame) (gocv.Mat, error) {
	switch f.Format {
	case frame.FormatBGR24:
		m, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data[:f.Height*f.Stride()])
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("wrap frame: %w", err)
		}
		return m, nil
	case frame.FormatGray8:
		gray, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Data[:f.Height*f.Stride()])
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("wrap frame: %w", err)
		}
		defer gray.Close()
		bgr := gocv.NewMat()
		gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)
		return bgr, nil
	}
	return gocv.Mat{}, fmt.Errorf("%w: %s", frame.ErrFormatMismatch, f.Format)
}
