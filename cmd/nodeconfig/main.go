// Node Config - configuration editor service for a single node.
//
// This is the main entry point of the node config service. It holds the
// node's device, sensor and IR blaster configuration in memory, exposes it
// over a REST and WebSocket API, saves revisions to SQLite and shares the
// node's API target options with other nodes over MQTT.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-nodeconfig/migrations"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/api"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/audit"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/bridges/nodebus"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/metrics"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
	"github.com/nerrad567/gray-logic-nodeconfig/internal/panel"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring: one block per optional component
	log := logging.Default()
	log.Info("starting node config service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("node", cfg.Node.ID)
	log.Info("configuration loaded", "path", configPath)

	catalog, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path, "migrations_applied", applied)

	store := nodeconfig.NewStore(catalog)
	store.SetLogger(log)

	service := nodeconfig.NewService(store, nodeconfig.NewSQLiteRepository(db.DB), cfg.Node.ID)
	service.SetLogger(log)

	if err := loadInitialConfig(ctx, service, cfg.Node.InitialConfig); err != nil {
		return err
	}

	resolver := nodeconfig.NewResolver(catalog, cfg.Node.SelfAddresses...)
	if path := cfg.Catalog.APITargetOptionsPath; path != "" {
		opts, optsErr := nodeconfig.LoadAPITargetOptions(path)
		if optsErr != nil {
			return fmt.Errorf("loading api target options: %w", optsErr)
		}
		resolver.SetRemote(opts)
		log.Info("api target options loaded", "path", path, "nodes", len(opts.Nodes))
	}

	collector := metrics.NewCollector(nil)
	collector.SetInstances(store.Snapshot())

	journal := audit.NewRecorder(audit.NewSQLiteRepository(db.DB), cfg.Node.ID)
	journal.SetLogger(log)

	observers := []nodeconfig.Observer{collector.ObserveChange, journal.ObserveChange}
	saveHooks := []nodeconfig.SaveHook{collector.ObserveSave, journal.ObserveSave}

	checks := map[string]api.HealthChecker{"database": db}

	// MQTT (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge := nodebus.New(nodebus.Config{
			Node:        cfg.Node.ID,
			Name:        cfg.Node.Name,
			Address:     firstOrEmpty(cfg.Node.SelfAddresses),
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         mqttClient.QoS(),
		}, mqttClient, store, resolver)
		bridge.SetLogger(log)
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting node bus bridge: %w", startErr)
		}

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			if pubErr := bridge.PublishOptions(); pubErr != nil {
				log.Warn("republishing api target options failed", "error", pubErr)
			}
		})

		service.SetPublisher(bridge)
		observers = append(observers, bridge.Observe)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		observers = append(observers, influxClient.WriteChange)
		saveHooks = append(saveHooks, influxClient.WriteSave)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	observers = append(observers, hub.ObserveChange)
	saveHooks = append(saveHooks, hub.ObserveSave)

	store.SetObserver(fanOutChanges(observers))
	service.SetSaveHook(fanOutSaves(saveHooks))

	var ui fs.FS
	if cfg.API.UIDir != "" {
		if ui, err = panel.Dir(cfg.API.UIDir); err != nil {
			return fmt.Errorf("loading editor assets: %w", err)
		}
		log.Info("serving editor assets", "dir", cfg.API.UIDir)
	}

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Metrics:   cfg.Metrics,
		Logger:    log,
		Service:   service,
		Resolver:  resolver,
		Collector: collector,
		Journal:   journal,
		UI:        ui,
		Hub:       hub,
		Checks:    checks,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns the configuration file path.
// Uses NODECONFIG_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NODECONFIG_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadCatalog returns the catalog file named in cfg, or the built-in one.
func loadCatalog(cfg config.CatalogConfig) (*nodeconfig.Catalog, error) {
	if cfg.Path == "" {
		catalog, err := nodeconfig.DefaultCatalog()
		if err != nil {
			return nil, fmt.Errorf("loading built-in catalog: %w", err)
		}
		return catalog, nil
	}
	catalog, err := nodeconfig.LoadCatalog(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", cfg.Path, err)
	}
	return catalog, nil
}

// loadInitialConfig installs the newest saved revision. Without one it
// falls back to the JSON snapshot at path, if any.
func loadInitialConfig(ctx context.Context, service *nodeconfig.Service, path string) error {
	found, err := service.LoadLatest(ctx)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}
	if found || path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading initial config: %w", err)
	}
	var cfg nodeconfig.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("decoding initial config: %w", err)
	}
	if err := service.Store().Replace(&cfg); err != nil {
		return fmt.Errorf("installing initial config: %w", err)
	}
	return nil
}

// fanOutChanges calls every observer in order.
func fanOutChanges(observers []nodeconfig.Observer) nodeconfig.Observer {
	return func(change nodeconfig.Change) {
		for _, observe := range observers {
			observe(change)
		}
	}
}

// fanOutSaves calls every save hook in order.
func fanOutSaves(hooks []nodeconfig.SaveHook) nodeconfig.SaveHook {
	return func(rev *nodeconfig.Revision, err error) {
		for _, hook := range hooks {
			hook(rev, err)
		}
	}
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
