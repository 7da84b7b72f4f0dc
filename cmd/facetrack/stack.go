package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facetrack/internal/config"
	"github.com/teslashibe/go-facetrack/internal/log"
	"github.com/teslashibe/go-facetrack/pkg/bestframe"
	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/camera/device"
	"github.com/teslashibe/go-facetrack/pkg/detection"
	"github.com/teslashibe/go-facetrack/pkg/imaging"
	"github.com/teslashibe/go-facetrack/pkg/imaging/cvcodec"
	"github.com/teslashibe/go-facetrack/pkg/pipeline"
)

// Options holds the capture and selection flags shared by all subcommands
type Options struct {
	Camera      string
	Preset      string
	Model       string
	Codec       string
	Quality     int
	Interval    time.Duration
	Coefficient float64
	Blur        float64
	Warmup      int
	Discard     bool
	TryCounter  int
	MinFace     int
	MinNearFace int
}

var opts Options

func addCaptureFlags(cmd *cobra.Command) {
	def := pipeline.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&opts.Camera, "camera", "c", "", "Camera index, device path or stream URL (default from FACETRACK_CAMERA)")
	f.StringVarP(&opts.Preset, "preset", "p", "default", "Camera preset")
	f.StringVarP(&opts.Model, "model", "m", "", "YuNet ONNX model (default from FACETRACK_MODEL)")
	f.StringVar(&opts.Codec, "codec", "cv", "Crop codec: cv (OpenCV) or go (image/jpeg)")
	f.IntVarP(&opts.Quality, "quality", "q", imaging.DefaultQuality, "JPEG quality of saved crops")
	f.DurationVarP(&opts.Interval, "interval", "i", def.TickInterval, "Time between captured frames")
	f.Float64Var(&opts.Coefficient, "coefficient", def.CoefficientFrameSize, "Crop enlargement around the face box")
	f.Float64VarP(&opts.Blur, "blur-threshold", "b", def.BlurThreshold, "Minimum sharpness of a saved crop")
	f.IntVar(&opts.Warmup, "warmup", def.WarmupFrames, "Consecutive big-face frames before cropping starts")
	f.BoolVar(&opts.Discard, "discard-stale", false, "Drop crops from jobs that outlive a reset")
	f.IntVar(&opts.TryCounter, "try-counter", def.Presence.TryCounter, "Empty frames before a face counts as gone")
	f.IntVar(&opts.MinFace, "min-face", int(def.Presence.MinFaceWidth), "Minimum width and height of a big face")
	f.IntVar(&opts.MinNearFace, "min-near-face", int(def.Presence.MinNearFaceWidth), "Minimum width and height of a near face, 0 disables")
}

// Stack is an opened camera, detector and driver
type Stack struct {
	Camera   camera.Config
	Device   *device.Device
	Detector detection.Detector
	Driver   *pipeline.Driver
}

// Close releases the camera and the detector
func (s *Stack) Close() {
	if s.Device != nil {
		s.Device.Close()
	}
	if s.Detector != nil {
		s.Detector.Close()
	}
}

func (o *Options) cameraConfig() (camera.Config, error) {
	preset := camera.GetPreset(o.Preset)
	if preset == nil {
		return camera.Config{}, fmt.Errorf("unknown preset %q, available: %v", o.Preset, camera.PresetNames())
	}
	cfg := *preset
	cfg.Device = o.Camera
	if cfg.Device == "" {
		cfg.Device = config.Camera()
	}
	cfg.Quality = o.Quality
	return cfg, nil
}

func (o *Options) pipelineConfig(mode bestframe.Mode, cam camera.Config) (pipeline.Config, error) {
	format, err := cam.PixelFormat()
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.DefaultConfig()
	cfg.TickInterval = o.Interval
	cfg.Mode = mode
	cfg.CoefficientFrameSize = o.Coefficient
	cfg.BlurThreshold = o.Blur
	cfg.WarmupFrames = o.Warmup
	cfg.DiscardStale = o.Discard
	cfg.FrameWidth = uint32(cam.Width)
	cfg.FrameHeight = uint32(cam.Height)
	cfg.PixelFormat = format
	cfg.Presence.TryCounter = o.TryCounter
	cfg.Presence.MinFaceWidth = uint32(o.MinFace)
	cfg.Presence.MinFaceHeight = uint32(o.MinFace)
	cfg.Presence.MinNearFaceWidth = uint32(o.MinNearFace)
	cfg.Presence.MinNearFaceHeight = uint32(o.MinNearFace)
	return cfg, nil
}

func (o *Options) codec() (bestframe.Codec, error) {
	switch o.Codec {
	case "cv":
		return cvcodec.New(o.Quality), nil
	case "go":
		return imaging.NewJPEGCodec(o.Quality), nil
	}
	return nil, fmt.Errorf("unknown codec %q, want cv or go", o.Codec)
}

// openStack opens the camera and detector and builds a driver over them.
func openStack(o Options, mode bestframe.Mode, publisher pipeline.Publisher) (*Stack, error) {
	camCfg, err := o.cameraConfig()
	if err != nil {
		return nil, err
	}
	pcfg, err := o.pipelineConfig(mode, camCfg)
	if err != nil {
		return nil, err
	}
	codec, err := o.codec()
	if err != nil {
		return nil, err
	}

	detCfg := detection.DefaultConfig()
	detCfg.ModelPath = o.Model
	if detCfg.ModelPath == "" {
		detCfg.ModelPath = config.ModelPath()
	}

	s := &Stack{Camera: camCfg}
	s.Detector, err = detection.NewYuNet(detCfg)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	s.Device, err = device.Open(camCfg, log.Component("camera"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open camera %s: %w", camCfg.Device, err)
	}

	s.Driver, err = pipeline.New(pcfg, s.Device, s.Detector, codec, publisher, log.Component("pipeline"))
	if err != nil {
		s.Close()
		return nil, err
	}

	log.Info("capture ready",
		"camera", camCfg.Device,
		"size", fmt.Sprintf("%dx%d", camCfg.Width, camCfg.Height),
		"model", detCfg.ModelPath,
		"codec", o.Codec,
		"mode", mode)
	return s, nil
}
