// Package web provides the face tracking dashboard API
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facetrack/pkg/bestframe"
	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/events"
	"github.com/teslashibe/go-facetrack/pkg/hub"
	"github.com/teslashibe/go-facetrack/pkg/pipeline"
	"github.com/teslashibe/go-facetrack/pkg/presence"
)

// eventBuffer is how many recent events GET /api/events returns
const eventBuffer = 500

// Pipeline is the part of the driver the dashboard reads and controls
type Pipeline interface {
	State() presence.Snapshot
	Best() (bestframe.FaceData, bool)
	Faces() []bestframe.FaceData
	Stats() pipeline.Stats
	Config() pipeline.Config
	SetPresenceConfig(cfg presence.Config) error
	Reset()
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	pipeline Pipeline
	camera   *camera.Manager

	// Recent events, oldest first
	events   []events.Event
	eventsMu sync.RWMutex

	// Hubs for websocket broadcast
	eventHub *hub.Hub
	faceHub  *hub.Hub
}

// NewServer creates a new dashboard server. cam may be nil when the frame
// source is not a configurable camera.
func NewServer(port string, p Pipeline, cam *camera.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:     port,
		logger:   logger,
		pipeline: p,
		camera:   cam,
		events:   make([]events.Event, 0, eventBuffer),
		eventHub: hub.New("events", logger),
		faceHub:  hub.New("faces", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facetrack",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleEvents)
	api.Get("/face", s.handleFace)
	api.Get("/face.jpg", s.handleFaceJPEG)
	api.Get("/faces", s.handleFaces)
	api.Get("/faces/:id/image", s.handleFaceImage)
	api.Post("/reset", s.handleReset)
	api.Get("/presence", s.handleGetPresence)
	api.Put("/presence", s.handleUpdatePresence)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/faces", websocket.New(s.handleFacesWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())

	go s.eventHub.Run(ctx)
	go s.faceHub.Run(ctx)

	return s.app.Listener(ln)
}

// Consume records and broadcasts events from the subscription until ctx is
// done or the subscription is closed.
func (s *Server) Consume(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			s.AddEvent(e)
		}
	}
}

// AddEvent records an event and broadcasts it to clients. On FacesSaved the
// saved crops are pushed to /ws/faces as binary JPEG messages.
func (s *Server) AddEvent(e events.Event) {
	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > eventBuffer {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if err := s.eventHub.BroadcastJSON(e); err != nil {
		s.logger.Error("encode event", "kind", e.Kind, "error", err)
	}

	if e.Kind == events.FacesSaved {
		for _, fd := range s.savedFaces(e.FaceIDs) {
			s.faceHub.BroadcastBinary(fd.Image)
		}
	}
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// savedFaces finds retained crops by ID
func (s *Server) savedFaces(ids []string) []bestframe.FaceData {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var out []bestframe.FaceData
	if best, ok := s.pipeline.Best(); ok && want[best.ID] {
		out = append(out, best)
	}
	for _, fd := range s.pipeline.Faces() {
		if want[fd.ID] {
			out = append(out, fd)
		}
	}
	return out
}
