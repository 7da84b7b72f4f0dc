// Package device captures frames from a local camera or stream through OpenCV.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/frame"
	"github.com/teslashibe/go-facetrack/pkg/imaging"
)

var (
	// ErrClosed is returned by Capture after Close.
	ErrClosed = errors.New("device: closed")

	// ErrReadFailed is returned when the driver delivers no frame.
	ErrReadFailed = errors.New("device: read failed")
)

// Device is a pipeline frame source backed by gocv.VideoCapture.
type Device struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	conv   gocv.Mat
	cfg    camera.Config
	format frame.PixelFormat
	seq    uint64
	warmup int
	logger *slog.Logger
}

// Open opens the configured device and applies its settings.
func Open(cfg camera.Config, logger *slog.Logger) (*Device, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", problems)
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Device{
		mat:    gocv.NewMat(),
		conv:   gocv.NewMat(),
		logger: logger,
	}
	if err := d.open(cfg); err != nil {
		d.mat.Close()
		d.conv.Close()
		return nil, err
	}
	return d, nil
}

// Config returns the applied configuration.
func (d *Device) Config() camera.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Apply changes settings on the open device. A new device reopens the capture.
func (d *Device) Apply(cfg camera.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vc == nil {
		return ErrClosed
	}

	if cfg.Device != d.cfg.Device {
		d.vc.Close()
		d.vc = nil
		return d.open(cfg)
	}

	format, err := cfg.PixelFormat()
	if err != nil {
		return err
	}
	d.applyProps(cfg)
	d.cfg, d.format = cfg, format
	return nil
}

// Capture reads the next frame. Black frames right after opening are skipped,
// up to WarmupFrames of them.
func (d *Device) Capture(ctx context.Context) (frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return frame.Frame{}, err
		}
		if d.vc == nil {
			return frame.Frame{}, ErrClosed
		}

		if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
			return frame.Frame{}, ErrReadFailed
		}

		f, err := d.toFrame()
		if err != nil {
			return frame.Frame{}, err
		}
		if d.warmup > 0 && imaging.Blank(f) {
			d.warmup--
			continue
		}
		d.warmup = 0
		return f, nil
	}
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	d.mat.Close()
	d.conv.Close()
	return err
}

func (d *Device) open(cfg camera.Config) error {
	format, err := cfg.PixelFormat()
	if err != nil {
		return err
	}

	vc, err := gocv.OpenVideoCapture(deviceID(cfg.Device))
	if err != nil {
		return fmt.Errorf("open camera %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %s: not opened", cfg.Device)
	}

	d.vc = vc
	d.applyProps(cfg)
	d.cfg, d.format = cfg, format
	d.warmup = cfg.WarmupFrames

	d.logger.Info("camera opened",
		"device", cfg.Device,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
		"fps", vc.Get(gocv.VideoCaptureFPS),
		"format", format)
	return nil
}

func (d *Device) applyProps(cfg camera.Config) {
	d.vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	d.vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	d.vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	d.vc.Set(gocv.VideoCaptureBufferSize, float64(cfg.BufferSize))

	if cfg.Brightness != 0 {
		d.vc.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	}
	if cfg.Contrast != 0 {
		d.vc.Set(gocv.VideoCaptureContrast, cfg.Contrast)
	}
	if cfg.Gain != 0 {
		d.vc.Set(gocv.VideoCaptureGain, cfg.Gain)
	}
	if cfg.Exposure != 0 {
		d.vc.Set(gocv.VideoCaptureExposure, cfg.Exposure)
	}
	autoFocus := 0.0
	if cfg.AutoFocus {
		autoFocus = 1
	}
	d.vc.Set(gocv.VideoCaptureAutoFocus, autoFocus)
}

// toFrame converts the captured Mat to the configured pixel format and copies
// it out, so the frame stays valid after the next Read.
func (d *Device) toFrame() (frame.Frame, error) {
	src := d.mat
	switch {
	case d.format == frame.FormatGray8 && d.mat.Channels() == 3:
		gocv.CvtColor(d.mat, &d.conv, gocv.ColorBGRToGray)
		src = d.conv
	case d.format == frame.FormatGray8 && d.mat.Channels() == 4:
		gocv.CvtColor(d.mat, &d.conv, gocv.ColorBGRAToGray)
		src = d.conv
	case d.format == frame.FormatBGR24 && d.mat.Channels() == 1:
		gocv.CvtColor(d.mat, &d.conv, gocv.ColorGrayToBGR)
		src = d.conv
	case d.format == frame.FormatBGR24 && d.mat.Channels() == 4:
		gocv.CvtColor(d.mat, &d.conv, gocv.ColorBGRAToBGR)
		src = d.conv
	}

	d.seq++
	f := frame.Frame{
		Data:       src.ToBytes(),
		Width:      src.Cols(),
		Height:     src.Rows(),
		Format:     d.format,
		Seq:        d.seq,
		CapturedAt: time.Now(),
	}
	if err := f.Validate(); err != nil {
		return frame.Frame{}, fmt.Errorf("convert frame: %w", err)
	}
	return f, nil
}

// deviceID turns "0" into a camera index and leaves paths and URLs alone.
func deviceID(s string) interface{} {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return s
}
