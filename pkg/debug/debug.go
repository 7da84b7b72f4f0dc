// Package debug gates verbose per-frame tracking logs
package debug

import "github.com/teslashibe/go-facetrack/internal/log"

// Tracking controls whether per-frame tracking logs are shown (detections,
// presence transitions, selector decisions). Very verbose at 10 fps.
var Tracking bool

// TrackLog logs a message only if tracking debug mode is enabled
func TrackLog(msg string, args ...any) {
	if Tracking {
		log.L().Info(msg, append([]any{"trace", "tracking"}, args...)...)
	}
}
