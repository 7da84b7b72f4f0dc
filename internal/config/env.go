// Package config provides environment helpers for the facetrack command.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Defaults used when the environment does not say otherwise.
const (
	DefaultCamera   = "0"
	DefaultPort     = "8181"
	DefaultLogLevel = "info"
	DefaultModel    = "models/face_detection_yunet.onnx"
)

// Camera returns the capture device from FACETRACK_CAMERA, either an index
// or a device path.
func Camera() string {
	return env("FACETRACK_CAMERA", DefaultCamera)
}

// ModelPath returns the YuNet model path from FACETRACK_MODEL.
func ModelPath() string {
	return env("FACETRACK_MODEL", DefaultModel)
}

// Port returns the dashboard port from FACETRACK_PORT.
func Port() string {
	return env("FACETRACK_PORT", DefaultPort)
}

// MQTTBroker returns MQTT_BROKER, or "" when export is disabled.
func MQTTBroker() string {
	return os.Getenv("MQTT_BROKER")
}

// LogLevel returns LOG_LEVEL.
func LogLevel() string {
	return env("LOG_LEVEL", DefaultLogLevel)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
