package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facetrack/internal/config"
	"github.com/teslashibe/go-facetrack/internal/log"
	"github.com/teslashibe/go-facetrack/pkg/bestframe"
	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/events"
	"github.com/teslashibe/go-facetrack/pkg/notify"
	"github.com/teslashibe/go-facetrack/pkg/web"
)

var runOpts struct {
	Mode   string
	Port   string
	Broker string
	Topic  string
	QoS    int
	Images bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track faces continuously and serve the dashboard",
	RunE:  runTrack,
}

func init() {
	addCaptureFlags(runCmd)
	f := runCmd.Flags()
	f.StringVar(&runOpts.Mode, "mode", bestframe.ModeSingle.String(), "Selection mode: single or all")
	f.StringVar(&runOpts.Port, "port", "", "Dashboard port (default from FACETRACK_PORT)")
	f.StringVar(&runOpts.Broker, "mqtt", "", "MQTT broker URL, empty disables export (default from MQTT_BROKER)")
	f.StringVar(&runOpts.Topic, "mqtt-topic", notify.DefaultConfig().TopicPrefix, "MQTT topic prefix")
	f.IntVar(&runOpts.QoS, "mqtt-qos", 0, "MQTT quality of service")
	f.BoolVar(&runOpts.Images, "mqtt-images", false, "Publish saved crops over MQTT")
	rootCmd.AddCommand(runCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mode, err := bestframe.ParseMode(runOpts.Mode)
	if err != nil {
		return err
	}
	port := runOpts.Port
	if port == "" {
		port = config.Port()
	}
	broker := runOpts.Broker
	if broker == "" {
		broker = config.MQTTBroker()
	}

	bus := events.NewBus(log.Component("events"))
	stack, err := openStack(opts, mode, bus)
	if err != nil {
		return err
	}
	defer stack.Close()

	cam := camera.NewManager(stack.Camera)
	cam.OnConfigChange = func(cfg camera.Config) error {
		if cfg.Format != stack.Camera.Format {
			return errors.New("pixel format cannot change while tracking")
		}
		if err := stack.Device.Apply(cfg); err != nil {
			return err
		}
		return stack.Driver.SetFrameSize(uint32(cfg.Width), uint32(cfg.Height))
	}

	server := web.NewServer(port, stack.Driver, cam, log.Component("web"))
	go server.Consume(ctx, bus.Subscribe(256))

	if broker != "" {
		ncfg := notify.DefaultConfig()
		ncfg.Broker = broker
		ncfg.TopicPrefix = runOpts.Topic
		ncfg.QoS = byte(runOpts.QoS)
		ncfg.IncludeImages = runOpts.Images
		n, err := notify.Connect(ncfg, stack.Driver, log.Component("mqtt"))
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer n.Close()
		go n.Forward(ctx, bus.Subscribe(256))
	}

	go func() {
		if err := server.Start(ctx); err != nil {
			log.Error("dashboard stopped", "error", err)
		}
	}()
	defer server.Shutdown()

	log.Info("tracking", "dashboard", "http://localhost:"+port, "mqtt", broker != "")
	stack.Driver.Run(ctx)

	stats := stack.Driver.Stats()
	log.Info("stopped",
		"ticks", stats.Ticks,
		"accepted", stats.Selector.Accepted,
		"rejected", stats.Selector.Rejected,
		"dropped_events", bus.Dropped())
	return nil
}
