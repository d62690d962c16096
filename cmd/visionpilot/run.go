package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nerrad567/visionpilot/internal/actuator"
	"github.com/nerrad567/visionpilot/internal/api"
	"github.com/nerrad567/visionpilot/internal/clock"
	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/infrastructure/database"
	"github.com/nerrad567/visionpilot/internal/infrastructure/influxdb"
	"github.com/nerrad567/visionpilot/internal/infrastructure/logging"
	"github.com/nerrad567/visionpilot/internal/infrastructure/mqtt"
	"github.com/nerrad567/visionpilot/internal/journal"
	"github.com/nerrad567/visionpilot/internal/overlay"
	"github.com/nerrad567/visionpilot/internal/perception"
	"github.com/nerrad567/visionpilot/internal/statusbus"
	"github.com/nerrad567/visionpilot/internal/telemetry"
	_ "github.com/nerrad567/visionpilot/migrations"
)

// Shutdown and start-up bounds.
const (
	windowStartupTimeout = 30 * time.Second
	teardownTimeout      = 10 * time.Second
	journalBuffer        = 256
)

// run is the application logic, separated from main for testability.
//
// Start-up faults (bad config, unreachable broker or database, detector
// never healthy, window never found) are returned before any session
// begins. Once running, it returns nil on a clean shutdown.
func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	log.Info("starting VisionPilot",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", opts.configPath,
		"dry_run", cfg.Actuator.DryRun,
	)

	clk := clock.Real{}
	var observers []engine.Observer

	// Session journal (optional)
	var journalRepo journal.Repository
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("journal database ready", "path", db.Path())

		journalRepo = journal.NewSQLiteRepository(db.DB)
		jo := journal.NewObserver(journalRepo, journalBuffer, log.Component("journal"))
		jo.Start()
		defer closeWithTimeout(log, "journal", jo.Close)
		observers = append(observers, jo)
	}

	// Cycle telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		observers = append(observers, telemetry.NewObserver(influxClient, 0))
	}

	// Status bus (optional)
	var mqttClient *mqtt.Client
	var bus *statusbus.Bus
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", mqttClient.Topics().Prefix(),
		)

		bus = statusbus.New(mqttClient, mqttClient.Topics(), statusbus.Options{QoS: byte(cfg.MQTT.QoS)}, log.Component("statusbus"))
		bus.Start()
		defer closeWithTimeout(log, "status bus", bus.Close)
		observers = append(observers, bus)
	}

	// Detector
	provider, stopDetector, err := startDetector(ctx, cfg, log.Component("detector"))
	if err != nil {
		return err
	}
	defer stopDetector()

	// Pointer and registries
	act := newActuator(cfg, clk, log.Component("actuator"))
	rt, err := engine.NewRuntime(cfg, act, clk, log.Component("engine"))
	if err != nil {
		return fmt.Errorf("building runtime: %w", err)
	}
	for _, o := range rt.States.Overlaps() {
		log.Warn("state signatures overlap", "overlap", o)
	}

	locator := newLocator(cfg)

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(log.Component("api"))
		observers = append(observers, hub)
	}

	factory := func() (*engine.Controller, error) {
		var renderer engine.Renderer
		if cfg.Overlay.Enabled {
			hud, err := overlay.Open(cfg.Overlay.Output, cfg.Overlay.MaxDetections)
			if err != nil {
				return nil, err
			}
			renderer = hud
		}
		return engine.NewController(engine.ControllerConfig{
			Runtime:   rt,
			Config:    cfg,
			Locator:   locator,
			Capturer:  perception.NewRegionCapturer(clk.Now),
			Provider:  provider,
			Clock:     clk,
			Renderer:  renderer,
			Observers: observers,
			DryRun:    cfg.Actuator.DryRun,
			Logger:    log.Component("engine"),
		})
	}
	host := engine.NewHost(ctx, factory, rt.Modes, clk, cfg.Actuator.DryRun, log.Component("host"))

	// Every session must be torn down before the sinks above close.
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := host.Stop(stopCtx); err != nil && !errors.Is(err, engine.ErrNotRunning) {
			log.Warn("session did not stop cleanly", "error", err)
		}
		if err := host.Wait(); err != nil {
			log.Error("last session ended with error", "error", err)
		}
	}()

	if bus != nil {
		if err := bus.BindControl(mqttClient, host); err != nil {
			return err
		}
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Host:     host,
			Modes:    rt.Modes,
			Features: rt.Features,
			Journal:  journalRepo,
			Hub:      hub,
			Version:  version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if influxClient != nil {
			deps.InfluxDB = influxClient
		}
		if db != nil {
			deps.DB = db
		}
		srv, err := api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				log.Error("error closing API server", "error", err)
			}
		}()
	}

	controllable := cfg.API.Enabled || cfg.MQTT.Enabled
	if opts.idle {
		if !controllable {
			return errors.New("--idle needs the API or MQTT enabled to receive a start request")
		}
		log.Info("idle, waiting for a start request")
	} else {
		if err := waitForWindow(ctx, locator, cfg, clk, log); err != nil {
			return err
		}
		if err := host.Start(); err != nil {
			return fmt.Errorf("starting session: %w", err)
		}
	}

	if controllable {
		<-ctx.Done()
		log.Info("shutdown signal received, cleaning up")
	} else if err := host.Wait(); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	log.Info("VisionPilot stopped", "summary", host.LastSummary())
	return nil
}

// loadConfig reads the file and applies command-line overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.model != "" {
		cfg.Detection.ModelPath = opts.model
	}
	if opts.window != "" {
		cfg.Window.Keyword = opts.window
		cfg.Window.Static = nil
	}
	if opts.replay != "" {
		cfg.Detection.Replay = opts.replay
	}
	if opts.dryRun {
		cfg.Actuator.DryRun = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the configured logger. When the overlay shares the
// log stream, logs move to the other one.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Overlay.Enabled {
		return logging.New(cfg.Logging, version)
	}
	logOut := strings.ToLower(cfg.Logging.Output)
	if logOut == "" {
		logOut = "stdout"
	}
	overlayOut := cfg.Overlay.Output
	if overlayOut == "" {
		overlayOut = "stderr"
	}
	if logOut != overlayOut {
		return logging.New(cfg.Logging, version)
	}
	var w io.Writer = os.Stdout
	if overlayOut == "stdout" {
		w = os.Stderr
	}
	return logging.NewWithWriter(cfg.Logging, version, w)
}

// newActuator returns the dry-run recorder or the xdotool clicker.
func newActuator(cfg *config.Config, clk clock.Clock, log actuator.Logger) actuator.Actuator {
	if cfg.Actuator.DryRun {
		d := actuator.NewDryRun()
		d.SetLogger(log)
		return d
	}
	pointer := actuator.NewXdotoolPointer(cfg.Actuator.Binary, clk.Sleep)
	return actuator.NewClicker(pointer, actuator.Options{
		MoveDuration: config.Seconds(cfg.Timing.ClickDuration),
		OffsetRadius: cfg.Actuator.OffsetRadius,
	})
}

// newLocator returns the static rectangle when configured, otherwise wmctrl.
func newLocator(cfg *config.Config) perception.Locator {
	if s := cfg.Window.Static; s != nil {
		return perception.StaticLocator{Window: perception.NewWindowInfo(s.Left, s.Top, s.Width, s.Height)}
	}
	return perception.NewWmctrlLocator("")
}

// waitForWindow polls until the target window appears. Not finding it
// within windowStartupTimeout is fatal.
func waitForWindow(ctx context.Context, locator perception.Locator, cfg *config.Config, clk clock.Clock, log *logging.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, windowStartupTimeout)
	defer cancel()

	retry := config.Seconds(cfg.Timing.WindowRetryDelay)
	if retry <= 0 {
		retry = time.Second
	}
	for {
		win, err := locator.Locate(ctx, cfg.Window.Keyword)
		if err == nil {
			log.Info("target window found", "keyword", cfg.Window.Keyword, "width", win.Width, "height", win.Height)
			return nil
		}
		if !errors.Is(err, perception.ErrWindowNotFound) {
			return fmt.Errorf("locating window: %w", err)
		}
		log.Info("waiting for target window", "keyword", cfg.Window.Keyword)
		if sleepErr := clk.Sleep(ctx, retry); sleepErr != nil {
			return fmt.Errorf("target window %q not found: %w", cfg.Window.Keyword, perception.ErrWindowNotFound)
		}
	}
}

// closeWithTimeout drains an async sink with a bounded wait.
func closeWithTimeout(log *logging.Logger, name string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Warn("closing "+name+" failed", "error", err)
	}
}
