package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/switchboard/cmd"
	"github.com/smazurov/switchboard/internal/api"
	"github.com/smazurov/switchboard/internal/config"
	"github.com/smazurov/switchboard/internal/engine"
	_ "github.com/smazurov/switchboard/internal/engine/sim"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/logging"
	"github.com/smazurov/switchboard/internal/metrics/exporters"
	"github.com/smazurov/switchboard/internal/nats"
	"github.com/smazurov/switchboard/internal/presets"
	"github.com/smazurov/switchboard/internal/registry"
	"github.com/smazurov/switchboard/internal/systemd"
	"github.com/smazurov/switchboard/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Engine settings
	Engine       string `help:"Media engine backend (see 'engines')" default:"sim" toml:"engine.name" env:"ENGINE_NAME"`
	StateTimeout string `help:"Timeout for graph state changes" default:"15s" toml:"engine.state_timeout" env:"ENGINE_STATE_TIMEOUT"`
	RecordDir    string `help:"Directory for input recordings" default:"recordings" toml:"engine.record_dir" env:"ENGINE_RECORD_DIR"`

	// Presets settings
	PresetsFile  string `help:"Mixer presets file" default:"presets.toml" toml:"presets.file" env:"PRESETS_FILE"`
	PresetsWatch bool   `help:"Reapply presets when the file changes" default:"false" toml:"presets.watch" env:"PRESETS_WATCH"`

	// NATS settings
	NATSEnabled  bool   `help:"Publish events and accept control commands over NATS" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NATSEmbedded bool   `help:"Run an embedded NATS server" default:"true" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NATSURL      string `help:"NATS server URL, ignored with the embedded server" default:"nats://127.0.0.1:4222" toml:"nats.url" env:"NATS_URL"`
	NATSPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Metrics settings
	MetricsPrometheus bool   `help:"Expose Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSE        bool   `help:"Stream mixer counters on /api/metrics" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`
	MetricsInterval   string `help:"Mixer counter sampling interval" default:"1s" toml:"metrics.interval" env:"METRICS_INTERVAL"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingMixer    string `help:"Mixer logging level" default:"info" toml:"logging.mixer" env:"LOGGING_MIXER"`
	LoggingRegistry string `help:"Registry logging level" default:"info" toml:"logging.registry" env:"LOGGING_REGISTRY"`
	LoggingEngine   string `help:"Engine logging level" default:"info" toml:"logging.engine" env:"LOGGING_ENGINE"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingPresets  string `help:"Presets logging level" default:"info" toml:"logging.presets" env:"LOGGING_PRESETS"`
	LoggingNATS     string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		// Modules without a dedicated option (e.g. "main") can still be
		// tuned from the [logging] table.
		logCfg := config.LoadLoggingConfig(opts.Config)
		logCfg.Level = opts.LoggingLevel
		logCfg.Format = opts.LoggingFormat
		for module, level := range map[string]string{
			"mixer":    opts.LoggingMixer,
			"registry": opts.LoggingRegistry,
			"engine":   opts.LoggingEngine,
			"api":      opts.LoggingAPI,
			"http":     opts.LoggingHTTP,
			"presets":  opts.LoggingPresets,
			"nats":     opts.LoggingNATS,
		} {
			logCfg.Modules[module] = level
		}
		logging.Initialize(logCfg)

		logger := logging.GetLogger("main")
		logger.Info("Starting", "version", version.String())

		stateTimeout, err := time.ParseDuration(opts.StateTimeout)
		if err != nil {
			stateTimeout = 15 * time.Second
		}

		eng, err := engine.Open(opts.Engine)
		if err != nil {
			logger.Error("Failed to open media engine", "error", err)
			os.Exit(1)
		}

		// Create event bus for in-process event handling
		eventBus := events.New()
		api.ForwardLogs(eventBus)

		reg := registry.New(registry.Options{
			Engine:       eng,
			EventBus:     eventBus,
			StateTimeout: stateTimeout,
			RecordDir:    opts.RecordDir,
			Logger:       logging.GetLogger("registry"),
		})

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CORSOrigin,
			Registry:     reg,
			EventBus:     eventBus,
		}
		if opts.MetricsPrometheus {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.MetricsSSE {
			interval, parseErr := time.ParseDuration(opts.MetricsInterval)
			if parseErr != nil || interval <= 0 {
				interval = time.Second
			}
			sseExporter = exporters.NewSSEExporter(eventBus, exporters.WithInterval(interval))
		}

		var presetWatcher *presets.Watcher
		if opts.PresetsWatch {
			presetWatcher = presets.NewWatcher(opts.PresetsFile, reg, logging.GetLogger("presets"))
		}

		natsLogger := logging.GetLogger("nats")
		var natsServer *nats.Server
		var publisher *nats.Publisher
		var controller *nats.Controller

		notifier := systemd.NewNotifier(logger)
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			// Apply presets before the API accepts requests
			if f, loadErr := presets.Load(opts.PresetsFile); loadErr != nil {
				logger.Warn("Failed to load presets", "file", opts.PresetsFile, "error", loadErr)
			} else {
				res := presets.Apply(ctx, reg, f, logging.GetLogger("presets"))
				if applyErr := res.Err(); applyErr != nil {
					logger.Warn("Presets partially applied", "error", applyErr)
				}
				logger.Info("Presets applied", "mixers", len(res.Mixers), "inputs", len(res.Inputs), "outputs", len(res.Outputs))
			}
			if presetWatcher != nil {
				if startErr := presetWatcher.Start(); startErr != nil {
					logger.Warn("Failed to watch presets", "error", startErr)
				}
			}

			if opts.NATSEnabled {
				url := opts.NATSURL
				if opts.NATSEmbedded {
					natsServer = nats.NewServer(nats.ServerOptions{Port: opts.NATSPort, Logger: natsLogger})
					if startErr := natsServer.Start(); startErr != nil {
						logger.Error("Failed to start NATS server", "error", startErr)
						natsServer = nil
					} else {
						url = natsServer.ClientURL()
					}
				}
				publisher = nats.NewPublisher(url, eventBus, natsLogger)
				if startErr := publisher.Start(); startErr != nil {
					logger.Warn("NATS publisher offline", "error", startErr)
				}
				controller = nats.NewController(url, reg, natsLogger)
				if startErr := controller.Start(); startErr != nil {
					logger.Warn("NATS controller offline", "error", startErr)
					controller = nil
				}
			}

			if sseExporter != nil {
				sseExporter.Start(ctx)
			}

			notifier.Ready()
			go notifier.Watchdog(ctx)

			logger.Info("Starting HTTP server", "port", opts.Port, "engine", eng.Name())
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if presetWatcher != nil {
				if stopErr := presetWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping presets watcher", "error", stopErr)
				}
			}
			if controller != nil {
				controller.Stop()
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			cancel()

			// Mixers go to Null after the control surfaces are closed
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*stateTimeout)
			if closeErr := reg.Close(closeCtx); closeErr != nil {
				logger.Warn("Error closing mixers", "error", closeErr)
			}
			closeCancel()

			if publisher != nil {
				publisher.Stop()
			}
			if natsServer != nil {
				natsServer.Stop()
			}
		})
	})

	root := cli.Root()
	root.Use = version.Name
	root.Version = version.String()
	root.AddCommand(cmd.CreateCheckPresetsCmd())
	root.AddCommand(cmd.CreateEnginesCmd("sim"))
	root.AddCommand(cmd.CreateSwitchCmd())

	// Run the CLI
	cli.Run()
}
