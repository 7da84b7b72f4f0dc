package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/hub"
	"github.com/teslashibe/go-facetrack/pkg/pipeline"
	"github.com/teslashibe/go-facetrack/pkg/presence"
)

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Presence presence.Snapshot `json:"presence"`
	Stats    pipeline.Stats    `json:"stats"`
	Mode     string            `json:"mode"`
	HasPhoto bool              `json:"has_photo"`
	Faces    int               `json:"faces"`
	Clients  int               `json:"clients"`
}

func (s *Server) status() StatusResponse {
	_, hasPhoto := s.pipeline.Best()
	return StatusResponse{
		Presence: s.pipeline.State(),
		Stats:    s.pipeline.Stats(),
		Mode:     s.pipeline.Config().Mode.String(),
		HasPhoto: hasPhoto,
		Faces:    len(s.pipeline.Faces()),
		Clients:  s.eventHub.ClientCount() + s.faceHub.ClientCount(),
	}
}

// handleStatus returns presence state and counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleEvents returns recent events
func (s *Server) handleEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return c.JSON(s.events)
}

// handleFace returns the retained best crop with its base64 image
func (s *Server) handleFace(c *fiber.Ctx) error {
	fd, ok := s.pipeline.Best()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no face photo yet",
		})
	}
	return c.JSON(fd)
}

// handleFaceJPEG returns the retained best crop as an image
func (s *Server) handleFaceJPEG(c *fiber.Ctx) error {
	fd, ok := s.pipeline.Best()
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set("X-Face-Id", fd.ID)
	return c.Send(fd.Image)
}

// handleFaces returns the latest all-faces list
func (s *Server) handleFaces(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Faces())
}

// handleFaceImage returns one saved crop by ID
func (s *Server) handleFaceImage(c *fiber.Ctx) error {
	found := s.savedFaces([]string{c.Params("id")})
	if len(found) == 0 {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(found[0].Image)
}

// handleReset restarts the tracking session
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.pipeline.Reset()
	s.logger.Info("session reset from dashboard")
	return c.JSON(s.status())
}

// handleGetPresence returns the presence thresholds
func (s *Server) handleGetPresence(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Config().Presence)
}

// handleUpdatePresence applies a partial threshold update; omitted fields keep
// their current value
func (s *Server) handleUpdatePresence(c *fiber.Ctx) error {
	cfg := s.pipeline.Config().Presence
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.pipeline.SetPresenceConfig(cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.pipeline.Config().Presence)
}

// handleGetCamera returns the camera config and capabilities
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "camera not configurable",
		})
	}
	return c.JSON(fiber.Map{
		"config":       s.camera.GetConfigJSON(),
		"capabilities": camera.Capabilities(),
	})
}

// handleUpdateCamera applies a partial camera update, optionally from a preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "camera not configurable",
		})
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.logger.Info("camera updated", "params", len(params))
	return c.JSON(fiber.Map{
		"config": s.camera.GetConfigJSON(),
	})
}

// handleCameraPresets lists the available presets
func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(camera.Presets())
}

// handleEventsWS streams events; the current status is sent first
func (s *Server) handleEventsWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.status()); err != nil {
		return
	}
	hub.NewClient(s.eventHub, c).Run()
}

// handleFacesWS streams saved crops as binary JPEG messages
func (s *Server) handleFacesWS(c *websocket.Conn) {
	hub.NewClient(s.faceHub, c).Run()
}
