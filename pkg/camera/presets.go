package camera

import "github.com/teslashibe/go-facetrack/pkg/frame"

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLegacy  = "legacy"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	Preset4K      = "4k"
	PresetNight   = "night"
	PresetBright  = "bright"
	PresetGray    = "gray"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLegacy:  LegacyConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		Preset4K:      UHD4KConfig(),
		PresetNight:   NightModeConfig(),
		PresetBright:  BrightModeConfig(),
		PresetGray:    GrayConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLegacy,
		Preset720p,
		Preset1080p,
		Preset4K,
		PresetNight,
		PresetBright,
		PresetGray,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p HD configuration.
// Good balance of quality and performance.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// UHD4KConfig returns 4K UHD configuration.
// Maximum detail for distant faces, higher CPU usage.
func UHD4KConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 3840
	cfg.Height = 2160
	cfg.Framerate = 15
	return cfg
}

// NightModeConfig returns configuration for dim lobbies.
// Lower resolution and higher gain keep the detector fed at night.
func NightModeConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.Gain = 8.0
	cfg.Brightness = 0.3
	cfg.WarmupFrames = 30
	return cfg
}

// BrightModeConfig returns configuration for backlit entrances.
func BrightModeConfig() Config {
	cfg := DefaultConfig()
	cfg.Brightness = -0.2
	cfg.Contrast = 0.2
	return cfg
}

// GrayConfig captures single-channel frames, halving detector and codec cost.
func GrayConfig() Config {
	cfg := DefaultConfig()
	cfg.Format = frame.FormatGray8.String()
	return cfg
}
