// Package notify exports tracking events to an MQTT broker.
//
// Every event is published as JSON on <prefix>/events/<kind>. When images are
// enabled, each crop named by a faces_saved event is also published on
// <prefix>/faces/<id>. The broker holds a retained <prefix>/status of
// "online" or "offline" (the latter through the last will).
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/teslashibe/go-facetrack/pkg/bestframe"
	"github.com/teslashibe/go-facetrack/pkg/events"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("notify: broker timeout")

// Config holds the MQTT export settings.
type Config struct {
	Broker         string        `json:"broker"`    // e.g. tcp://localhost:1883
	ClientID       string        `json:"client_id"` // random when empty
	Username       string        `json:"username"`
	Password       string        `json:"-"`
	TopicPrefix    string        `json:"topic_prefix"`
	QoS            byte          `json:"qos"`
	IncludeImages  bool          `json:"include_images"`
	KeepAlive      time.Duration `json:"keep_alive"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// DefaultConfig returns settings for a broker on localhost.
func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://localhost:1883",
		TopicPrefix:    "facetrack",
		QoS:            0,
		KeepAlive:      30 * time.Second,
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 2 * time.Second,
	}
}

// Validate checks the config and returns a list of problems, or nil.
func (c *Config) Validate() []string {
	var errors []string
	if c.Broker == "" {
		errors = append(errors, "broker is required")
	}
	if c.TopicPrefix == "" {
		errors = append(errors, "topic prefix is required")
	}
	if c.QoS > 2 {
		errors = append(errors, fmt.Sprintf("qos must be 0, 1 or 2, got %d", c.QoS))
	}
	if c.PublishTimeout <= 0 {
		errors = append(errors, "publish timeout must be positive")
	}
	return errors
}

// Topic returns the topic an event kind is published on.
func Topic(prefix string, kind events.Kind) string {
	return prefix + "/events/" + string(kind)
}

// FaceTopic returns the topic a saved crop is published on.
func FaceTopic(prefix, id string) string {
	return prefix + "/faces/" + id
}

// StatusTopic returns the retained online/offline topic.
func StatusTopic(prefix string) string {
	return prefix + "/status"
}

// Payload encodes an event.
func Payload(e events.Event) ([]byte, error) {
	return json.Marshal(e)
}

// Sender publishes one message.
type Sender interface {
	Send(topic string, payload []byte, retained bool) error
}

// FaceSource looks up retained crops for faces_saved events.
type FaceSource interface {
	Best() (bestframe.FaceData, bool)
	Faces() []bestframe.FaceData
}

// Notifier forwards events to a Sender.
type Notifier struct {
	cfg    Config
	sender Sender
	faces  FaceSource
	logger *slog.Logger
	close  func()
}

// New creates a notifier on an existing sender. faces may be nil.
func New(cfg Config, sender Sender, faces FaceSource, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, sender: sender, faces: faces, logger: logger}
}

// Connect dials the broker and returns a notifier publishing through it.
func Connect(cfg Config, faces FaceSource, logger *slog.Logger) (*Notifier, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid mqtt config: %v", problems)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "facetrack-" + uuid.New().String()
	}

	status := StatusTopic(cfg.TopicPrefix)
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetWill(status, "offline", cfg.QoS, true)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
		c.Publish(status, cfg.QoS, true, "online")
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}

	n := New(cfg, &mqttSender{client: client, qos: cfg.QoS, timeout: cfg.PublishTimeout}, faces, logger)
	n.close = func() {
		client.Publish(status, cfg.QoS, true, "offline").WaitTimeout(cfg.PublishTimeout)
		client.Disconnect(250)
	}
	return n, nil
}

// Publish sends one event, plus the saved crops when images are enabled.
func (n *Notifier) Publish(e events.Event) error {
	payload, err := Payload(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Kind, err)
	}
	if err := n.sender.Send(Topic(n.cfg.TopicPrefix, e.Kind), payload, false); err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind, err)
	}

	if e.Kind != events.FacesSaved || !n.cfg.IncludeImages || n.faces == nil {
		return nil
	}
	for _, fd := range n.savedFaces(e.FaceIDs) {
		data, err := json.Marshal(fd)
		if err != nil {
			return fmt.Errorf("encode face %s: %w", fd.ID, err)
		}
		if err := n.sender.Send(FaceTopic(n.cfg.TopicPrefix, fd.ID), data, false); err != nil {
			return fmt.Errorf("publish face %s: %w", fd.ID, err)
		}
	}
	return nil
}

// Forward publishes events from the subscription until ctx is done or the
// subscription is closed. Failures are logged and the event is dropped.
func (n *Notifier) Forward(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			if err := n.Publish(e); err != nil {
				n.logger.Warn("mqtt publish failed", "kind", e.Kind, "error", err)
			}
		}
	}
}

// Close publishes the offline status and disconnects.
func (n *Notifier) Close() {
	if n.close != nil {
		n.close()
	}
}

func (n *Notifier) savedFaces(ids []string) []bestframe.FaceData {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []bestframe.FaceData
	if best, ok := n.faces.Best(); ok && want[best.ID] {
		out = append(out, best)
	}
	for _, fd := range n.faces.Faces() {
		if want[fd.ID] {
			out = append(out, fd)
		}
	}
	return out
}

type mqttSender struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
}

func (s *mqttSender) Send(topic string, payload []byte, retained bool) error {
	token := s.client.Publish(topic, s.qos, retained, payload)
	if !token.WaitTimeout(s.timeout) {
		return ErrTimeout
	}
	return token.Error()
}
