// Command cluster-sensor samples the instrument-cluster sensors and publishes
// value changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/cluster-sensor/internal/adc"
	"github.com/sweeney/cluster-sensor/internal/config"
	"github.com/sweeney/cluster-sensor/internal/engine"
	"github.com/sweeney/cluster-sensor/internal/gpio"
	"github.com/sweeney/cluster-sensor/internal/logger"
	"github.com/sweeney/cluster-sensor/internal/mqtt"
	"github.com/sweeney/cluster-sensor/internal/scheduler"
	"github.com/sweeney/cluster-sensor/internal/sensor"
	"github.com/sweeney/cluster-sensor/internal/status"
	"github.com/sweeney/cluster-sensor/internal/web"
)

// statusInterval is how often runLoop refreshes the status tracker.
const statusInterval = time.Second

// overrides holds command-line values that replace config file settings.
// Zero values (and a negative heartbeat) leave the file value in place.
type overrides struct {
	backend   string
	broker    string
	httpAddr  string
	heartbeat time.Duration
	logLevel  string
	logFile   string
	logSerial string
}

func main() {
	configPath := flag.String("config", "/etc/cluster-sensor.yaml", "Path to YAML config file (missing file uses defaults)")
	var o overrides
	flag.StringVar(&o.backend, "backend", "", `Hardware backend override ("ads1115" or "sim")`)
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address override")
	flag.StringVar(&o.httpAddr, "http", "", `HTTP status address override ("off" disables)`)
	flag.DurationVar(&o.heartbeat, "heartbeat", -1, "Heartbeat interval override (0 to disable)")
	flag.StringVar(&o.logLevel, "log-level", "", "Minimum log level override (critical, error, warn, info)")
	flag.StringVar(&o.logFile, "log-file", "", "Append log entries to this file")
	flag.StringVar(&o.logSerial, "log-serial", "", "Also write log entries to this serial port")
	printState := flag.Bool("print-state", false, "Sample every sensor once, print the values and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(cfg, o)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func applyOverrides(cfg *config.Config, o overrides) {
	if o.backend != "" {
		cfg.Hardware.Backend = o.backend
	}
	if o.broker != "" {
		cfg.MQTT.Broker = o.broker
	}
	switch o.httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = o.httpAddr
	}
	if o.heartbeat >= 0 {
		cfg.Heartbeat = o.heartbeat
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.logSerial != "" {
		cfg.Log.Serial = o.logSerial
	}
}

func run(cfg *config.Config, printState bool) error {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	// Initialize log sinks
	var sinks logger.Sinks
	sinks.Add(os.Stderr)
	if cfg.Log.File != "" {
		if err := sinks.AddFile(cfg.Log.File); err != nil {
			return err
		}
	}
	if cfg.Log.Serial != "" {
		if err := sinks.AddSerial(cfg.Log.Serial, cfg.Log.SerialBaud); err != nil {
			sinks.Close()
			return err
		}
	}
	defer sinks.Close()
	lg := logger.New(&sinks, level, cfg.Log.QueueSize)
	defer lg.Close()

	// Initialize hardware
	hw := openHardware(cfg.Hardware, lg)
	defer hw.Close()

	eng, health := engine.New(cfg.Engine(), engine.Deps{
		ADC:   hw.adc,
		Speed: hw.speed,
		RPM:   hw.rpm,
		Log:   lg,
	})
	defer eng.Close()
	logHealth(lg, health)

	// Print state mode
	if printState {
		for _, t := range eng.Tasks() {
			t.Run()
		}
		printSnapshot(os.Stdout, eng.Snapshot())
		return nil
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Topics:     mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix},
		BufferSize: cfg.MQTT.BufferSize,
		Log:        lg,
	})
	defer publisher.Close()

	if err := registerPublisher(eng, publisher, lg); err != nil {
		return err
	}

	// Start the sensor tasks
	sched := scheduler.New(lg)
	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx, eng.Tasks()); err != nil {
		cancel()
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		cancel()
		sched.Wait()
	}()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:     cfg.Hardware.Backend,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
		LogLevel:    level.String(),
	})
	tracker.SetHealth(health.Status.String())
	tracker.Update(eng.Snapshot(), sched.Stats())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		lg.Warnf("failed to publish startup event: %v", err)
	} else {
		lg.Infof("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		lg.Infof("http status server listening on %s", cfg.HTTP.Addr)
	}

	lg.Infof("started: backend=%s broker=%s prefix=%s heartbeat=%v",
		cfg.Hardware.Backend, cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.Heartbeat)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(eng, sched, publisher, publisher, tracker, lg, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// hardware bundles the peripherals handed to the engine. Nil members
// leave the matching channels degraded.
type hardware struct {
	adc   *adc.Reader
	speed gpio.EdgeSource
	rpm   gpio.EdgeSource
}

func openHardware(hc config.HardwareConfig, lg logger.Logger) *hardware {
	hw := &hardware{}
	switch hc.Backend {
	case config.BackendSim:
		hw.adc = adc.NewReader(adc.NewSimPeripheral(hc.SimSeed, 40), lg)
		hw.speed = gpio.NewSimEdgeSource(hc.SimSpeedPeriod)
		hw.rpm = gpio.NewSimEdgeSource(hc.SimRPMPeriod)
	default:
		dev, err := adc.OpenADS1115(hc.I2CBus, hc.I2CAddress)
		if err != nil {
			lg.Errorf("adc: %v", err)
		} else {
			hw.adc = adc.NewReader(dev, lg)
		}
		hw.speed = gpio.NewRealEdgeSource(hc.GPIOChip, hc.PinSpeed)
		hw.rpm = gpio.NewRealEdgeSource(hc.GPIOChip, hc.PinRPM)
	}
	return hw
}

func (hw *hardware) Close() error {
	var errs []error
	if hw.adc != nil {
		errs = append(errs, hw.adc.Close())
	}
	if hw.speed != nil {
		errs = append(errs, hw.speed.Close())
	}
	if hw.rpm != nil {
		errs = append(errs, hw.rpm.Close())
	}
	return errors.Join(errs...)
}

func logHealth(lg logger.Logger, h engine.Health) {
	switch h.Status {
	case engine.HealthOK:
		lg.Infof("sensor engine ready: %s", h)
	case engine.HealthDegraded:
		lg.Warnf("sensor engine ready: %s", h)
	default:
		lg.Criticalf("sensor engine has no working channel: %s", h)
	}
}

// registerPublisher forwards every change notification to MQTT, plus each
// stream's first value so the retained sensor topics are populated before
// anything changes. Publish only enqueues, so neither blocks a sensor task.
func registerPublisher(eng *engine.Engine, publisher mqtt.Publisher, lg logger.Logger) error {
	forward := func(r sensor.Reading) {
		if err := publisher.Publish(r); err != nil {
			lg.Warnf("publish %s: %v", r.Kind, err)
		}
	}
	for _, kind := range sensor.Kinds {
		if err := eng.Register(kind, forward); err != nil {
			return fmt.Errorf("register %s: %w", kind, err)
		}
	}
	if err := eng.OnBaseline(forward); err != nil {
		return fmt.Errorf("register baseline: %w", err)
	}
	return nil
}

// printSnapshot writes one "kind: value" line per channel.
func printSnapshot(w io.Writer, channels []sensor.ChannelStatus) {
	for _, c := range channels {
		fmt.Fprintf(w, "%s: %s\n", c.Kind, displayValue(c))
	}
}

func displayValue(c sensor.ChannelStatus) string {
	switch {
	case c.Degraded:
		return "DEGRADED"
	case c.Value == nil:
		return "UNKNOWN"
	case c.Value.Unit() == "":
		return c.Value.String()
	}
	return c.Value.String() + " " + c.Value.Unit()
}

type channelSource interface {
	Snapshot() []sensor.ChannelStatus
}

type taskSource interface {
	Stats() []scheduler.TaskStats
}

func runLoop(channels channelSource, tasks taskSource, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, lg logger.Logger, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	refresh := func() {
		tracker.Update(channels.Snapshot(), tasks.Stats())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			lg.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			refresh()
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				lg.Warnf("failed to publish shutdown event: %v", err)
			} else {
				lg.Infof("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			refresh()

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t

			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			lg.Infof("heartbeat: uptime=%v ready=%v mqtt=%v", snap.Uptime().Truncate(time.Second), snap.Ready(), snap.MQTTConnected)
			hbEvent := mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				lg.Warnf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
