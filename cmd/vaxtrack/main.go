// Package main provides the VaxTrack vaccination-coverage statistics service.
//
// The service ingests coverage CSV uploads into PostgreSQL, keeps an
// append-only ledger of every upload attempt, and serves scope-gated
// reporting queries over the accumulated dataset.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/vaxtrack-io/vaxtrack/internal/api"
	"github.com/vaxtrack-io/vaxtrack/internal/api/middleware"
	"github.com/vaxtrack-io/vaxtrack/internal/config"
	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
	"github.com/vaxtrack-io/vaxtrack/internal/notify"
	"github.com/vaxtrack-io/vaxtrack/internal/operator"
	"github.com/vaxtrack-io/vaxtrack/internal/reporting"
	"github.com/vaxtrack-io/vaxtrack/internal/storage"
)

// Version information.
const (
	version = "1.0.0"
	name    = "vaxtrack"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting VaxTrack service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	// Load rate limiter configuration
	middlewareConfig := middleware.LoadConfig()

	// Create rate limiter instance (graceful shutdown handled by server.shutdown())
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("caller_rps", middlewareConfig.CallerRPS),
		slog.Int("unauth_rps", middlewareConfig.UnAuthRPS),
	)

	// Load storage configuration
	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close() // Ensure connection closes on normal shutdown
	}()

	datasetStore, err := storage.NewDatasetStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to create dataset store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	operatorStore, err := storage.NewOperatorStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to create operator store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	logger.Info("Stores initialized",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
		slog.Duration("database_conn_max_lifetime", storageConfig.ConnMaxLifetime),
		slog.Duration("database_conn_max_idle_time", storageConfig.ConnMaxIdleTime),
	)

	// Optional CSV column alias overrides (.vaxtrack.yaml)
	schemaConfig, err := ingestion.LoadSchemaConfig(ingestion.SchemaConfigPath())
	if err != nil {
		// Graceful degradation: a broken config file never blocks startup
		logger.Warn("Failed to load schema config, using built-in column aliases",
			slog.String("error", err.Error()),
		)

		schemaConfig = nil
	}

	parser := ingestion.NewParser(schemaConfig)

	ingestor, err := ingestion.NewService(datasetStore, parser, logger)
	if err != nil {
		logger.Error("Failed to create ingestion service", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	// Optional approval notifications over Kafka
	var notifier operator.Notifier

	if config.GetEnvBool("VAXTRACK_NOTIFIER_ENABLED", false) {
		kafkaNotifier, err := notify.NewKafkaNotifier(notify.LoadConfig(), logger)
		if err != nil {
			logger.Error("Failed to create kafka notifier", slog.String("error", err.Error()))

			_ = dbConn.Close()
			os.Exit(1)
		}

		defer func() {
			_ = kafkaNotifier.Close()
		}()

		notifier = kafkaNotifier

		logger.Info("Approval notifications enabled")
	} else {
		logger.Warn("Approval notifications disabled",
			slog.String("note", "Set VAXTRACK_NOTIFIER_ENABLED=true to publish approval events to Kafka"),
		)
	}

	operators, err := operator.NewService(operatorStore, notifier, logger)
	if err != nil {
		logger.Error("Failed to create operator service", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	reports, err := reporting.NewService(datasetStore, operatorStore, logger)
	if err != nil {
		logger.Error("Failed to create reporting service", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	server := api.NewServer(serverConfig, ingestor, operators, reports, dbConn, rateLimiter)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("VaxTrack service stopped")
}
