// migrate moves the Postgres participant schema. SQLite databases create
// their schema on startup and do not need it.
package main

import (
	"flag"
	"log/slog"
	"os"

	"liveqa/internal/config"
	"liveqa/internal/db"
	"liveqa/internal/db/migrate"
	"liveqa/internal/observability"
)

func main() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	direction := fs.String("direction", "up", "up or down")
	showVersion := fs.Bool("version", false, "print the applied schema version and exit")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Level())

	if cfg.DatabaseURL == "" || cfg.DatabaseDriver != db.DriverPostgres {
		logger.Error("participant migrations need DATABASE_URL with DATABASE_DRIVER=pgx",
			"driver", cfg.DatabaseDriver)
		os.Exit(2)
	}

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		logger.Error("flags", "error", err)
		os.Exit(2)
	}

	mg, err := migrate.New(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("open", "error", err)
		os.Exit(1)
	}
	defer mg.Close()

	if *showVersion {
		report(logger, mg)
		return
	}

	changed, err := mg.Apply(dir)
	if err != nil {
		logger.Error("apply", "error", err)
		mg.Close()
		os.Exit(1)
	}
	if changed {
		report(logger, mg)
	}
}

func report(logger *slog.Logger, mg *migrate.Migrator) {
	version, dirty, err := mg.Version()
	if err != nil {
		logger.Error("version", "error", err)
		return
	}
	logger.Info("participant schema", "version", version, "dirty", dirty)
}
