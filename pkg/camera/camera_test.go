package camera

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facetrack/pkg/frame"
)

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			require.NotNil(t, cfg)
			assert.Empty(t, cfg.Validate())
		})
	}
	assert.Nil(t, GetPreset("fisheye"))
	assert.Len(t, Presets(), len(PresetNames()))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errors int
	}{
		{"default", func(c *Config) {}, 0},
		{"no device", func(c *Config) { c.Device = "" }, 1},
		{"tiny", func(c *Config) { c.Width, c.Height = 10, 10 }, 2},
		{"bad format", func(c *Config) { c.Format = "nv12" }, 1},
		{"gain below one", func(c *Config) { c.Gain = 0.5 }, 1},
		{"auto gain", func(c *Config) { c.Gain = 0 }, 0},
		{"buffer", func(c *Config) { c.BufferSize = 0 }, 1},
		{"brightness and contrast", func(c *Config) { c.Brightness, c.Contrast = 2, -2 }, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			assert.Len(t, cfg.Validate(), tc.errors)
		})
	}
}

func TestConfig_PixelFormat(t *testing.T) {
	cfg := GrayConfig()
	f, err := cfg.PixelFormat()
	require.NoError(t, err)
	assert.Equal(t, frame.FormatGray8, f)
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())
	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	var params map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"preset":"720p","quality":70,"auto_focus":false}`), &params))
	require.NoError(t, m.UpdateConfig(params))

	cfg := m.GetConfig()
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 70, cfg.Quality)
	assert.False(t, cfg.AutoFocus)
	assert.Equal(t, "0", cfg.Device, "presets keep the device")
	require.Len(t, applied, 1)
	assert.Equal(t, cfg, applied[0])
}

func TestManager_UpdateConfigErrors(t *testing.T) {
	m := NewManager(DefaultConfig())

	assert.Error(t, m.UpdateConfig(map[string]interface{}{"preset": "nope"}))
	assert.Error(t, m.UpdateConfig(map[string]interface{}{"zoom": 2.0}))
	assert.Error(t, m.UpdateConfig(map[string]interface{}{"width": 5}))
	assert.Equal(t, DefaultConfig(), m.GetConfig())
}

func TestManager_CallbackFailureKeepsConfig(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.OnConfigChange = func(cfg Config) error { return errors.New("device busy") }

	err := m.SetConfig(LegacyConfig())
	assert.Error(t, err)
	assert.Equal(t, 1920, m.GetConfig().Width)
}

func TestManager_GetConfigJSON(t *testing.T) {
	m := NewManager(DefaultConfig())
	out := m.GetConfigJSON()
	assert.Equal(t, float64(1920), out["width"])
	assert.Equal(t, "bgr24", out["format"])
}
