package device

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/frame"
)

func TestDeviceID(t *testing.T) {
	assert.Equal(t, 0, deviceID("0"))
	assert.Equal(t, 2, deviceID("2"))
	assert.Equal(t, "/dev/video0", deviceID("/dev/video0"))
	assert.Equal(t, "rtsp://cam.local/stream", deviceID("rtsp://cam.local/stream"))
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Width = 0
	_, err := Open(cfg, nil)
	assert.Error(t, err)
}

// TestCapture_RealDevice needs a camera or video file in FACETRACK_TEST_CAMERA.
func TestCapture_RealDevice(t *testing.T) {
	dev := os.Getenv("FACETRACK_TEST_CAMERA")
	if dev == "" {
		t.Skip("FACETRACK_TEST_CAMERA not set, skipping test")
	}

	cfg := camera.LegacyConfig()
	cfg.Device = dev
	cfg.Format = frame.FormatGray8.String()

	d, err := Open(cfg, nil)
	require.NoError(t, err)
	defer d.Close()

	f1, err := d.Capture(context.Background())
	require.NoError(t, err)
	require.NoError(t, f1.Validate())
	assert.Equal(t, frame.FormatGray8, f1.Format)

	f2, err := d.Capture(context.Background())
	require.NoError(t, err)
	assert.Greater(t, f2.Seq, f1.Seq)

	require.NoError(t, d.Close())
	_, err = d.Capture(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCapture_CancelledContext(t *testing.T) {
	d := &Device{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
