package main

import (
	"context"
	"flag"
	"os"
	"time"

	"ecomdash/internal/amqp"
	"ecomdash/internal/cli"
	"ecomdash/internal/config"
	applog "ecomdash/internal/log"
	"ecomdash/internal/storage"
)

const loadTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DBPath, "SQLite database file to create or populate")
	script := flag.String("script", cfg.SchemaScript, "SQL script to execute")
	migrate := flag.Bool("migrate", false, "apply the embedded schema migrations before the script")
	flag.Parse()

	cfg.DBPath = *dbPath
	cfg.SchemaScript = *script
	logger := cli.SetupLogger(cfg, applog.ComponentLoader)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	if *migrate {
		if err := storage.RunMigrations(cfg.DBPath); err != nil {
			fatal(logger, applog.OpMigrate, err, cfg)
		}
		logger.Info("Schema migrations applied", applog.FieldDBPath, cfg.DBPath)
	}

	res, err := storage.LoadScript(ctx, cfg.DBPath, cfg.SchemaScript)
	if err != nil {
		fatal(logger, applog.OpLoad, err, cfg)
	}

	logger.Info("Database initialized successfully",
		applog.FieldDBPath, res.DBPath,
		applog.FieldScript, res.Script,
		"customers", res.Customers,
		"products", res.Products,
		"orders", res.Orders,
		applog.FieldDuration, res.Duration.Milliseconds())

	if cfg.AMQPEnabled() {
		announce(ctx, logger, cfg, res)
	}
}

// announce tells running dashboards to drop cached results. Failure only
// warns: the data is already loaded and cache TTLs still apply.
func announce(ctx context.Context, logger *applog.Logger, cfg *config.Config, res storage.LoadResult) {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to connect to AMQP, dashboards will refresh on cache expiry",
			applog.FieldError, err)
		return
	}
	defer client.Close()

	msg := amqp.NewDatasetLoadedMessage(res.DBPath, res.Script, res.Customers, res.Products, res.Orders)
	if err := client.PublishDatasetLoaded(ctx, msg); err != nil {
		logger.Warn("Failed to publish dataset loaded message", applog.FieldError, err)
		return
	}
	logger.Info("Dataset loaded message published", "exchange", cfg.AMQPExchange)
}

func fatal(logger *applog.Logger, op string, err error, cfg *config.Config) {
	logger.Error(err.Error(),
		applog.FieldOperation, op,
		applog.FieldDBPath, cfg.DBPath,
		applog.FieldScript, cfg.SchemaScript)
	os.Exit(1)
}
