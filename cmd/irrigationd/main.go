// Pro Irrigation Addon - scheduling and actuation daemon
//
// This is the main entry point for the irrigation daemon. It wires
// together the storage layer, the Home Assistant client, the scheduling
// engine, and the HTTP/WebSocket API, then blocks until a shutdown
// signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/goatboynz/pro-irrigation-addon/migrations"

	"github.com/goatboynz/pro-irrigation-addon/internal/api"
	"github.com/goatboynz/pro-irrigation-addon/internal/engine"
	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/hass"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/config"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/database"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main so errors can
// be returned and exit codes handled in one place.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting irrigation daemon",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reconfigure logging per config
	log = logging.New(cfg.Logging, version)

	// Open database
	db, err := database.Open(database.Config{
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
	log.Info("database opened", "path", db.Path())

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	repo := grow.NewSQLiteRepository(db.DB)

	// Home Assistant client (entity state reads and switch actuation)
	hassClient := hass.New(cfg.HomeAssistant, log)
	if err := hassClient.HealthCheck(ctx); err != nil {
		// The addon must come up even when HA is restarting; the engine
		// retries per job and the API reports health on /health.
		log.Warn("Home Assistant unreachable at startup", "error", err)
	} else {
		log.Info("Home Assistant connected", "base_url", cfg.HomeAssistant.BaseURL)
	}

	// Connect to MQTT (optional status bus)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Timing source resolves lights-on/off entity references from the
	// global settings row on demand.
	timing := engine.NewTimingSource(repo, hassClient, log)

	// API server is built before the engine so its WebSocket notifier can
	// be handed to the queue processor.
	srv, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Repo:    repo,
		Hass:    hassClient,
		Timing:  timing,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	notifier := engine.MultiNotifier{srv.Notifier()}
	if mqttClient != nil {
		notifier = append(notifier, mqtt.NewNotifier(mqttClient, byte(cfg.MQTT.QoS), log))
	}

	// Queue processor owns the per-pump FIFO queues and executes jobs.
	processor := engine.NewQueueProcessor(hassClient, repo, notifier, log, engine.ProcessorConfig{
		Tick:          time.Duration(cfg.Engine.QueueTick) * time.Second,
		LockTimeout:   time.Duration(cfg.Engine.LockTimeout) * time.Second,
		ShutdownGrace: time.Duration(cfg.Engine.ShutdownGrace) * time.Second,
	})
	processor.Start(ctx)
	defer func() {
		log.Info("stopping queue processor")
		processor.Close()
	}()

	// Evaluator ticks the schedule and feeds due events to the processor.
	evaluator := engine.NewEvaluator(repo, hassClient, processor, log)
	evaluator.Start(ctx)
	defer func() {
		log.Info("stopping evaluator")
		evaluator.Close()
	}()

	srv.SetQueue(processor)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API listening", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stop accepting requests)
	// 2. Evaluator (stop scheduling new jobs)
	// 3. Queue processor (finish or clean up in-flight jobs)
	// 4. MQTT (publish graceful offline status, if enabled)
	// 5. Database

	log.Info("irrigation daemon stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IRRIGATION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IRRIGATION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
