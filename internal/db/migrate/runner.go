// Package migrate moves the Postgres participant schema between the versions
// embedded in internal/db.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"liveqa/internal/db"
)

// Direction is the way Apply moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down", ignoring case and surrounding space.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	}
	return "", fmt.Errorf("migrate: direction must be up or down, got %q", s)
}

// Migrator applies the embedded participant migrations to one database.
type Migrator struct {
	m   *migrate.Migrate
	log *slog.Logger
}

// New opens dsn (a postgres:// URL) with the embedded migration source.
// Caller must call Close when done.
func New(dsn string, log *slog.Logger) (*Migrator, error) {
	if dsn == "" {
		return nil, errors.New("migrate: empty DSN")
	}
	if log == nil {
		log = slog.Default()
	}
	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: open: %w", err)
	}
	m.Log = logAdapter{log: log}
	return &Migrator{m: m, log: log}, nil
}

// Apply moves the schema all the way in dir. It reports whether anything
// changed; being at the target already is not an error.
func (mg *Migrator) Apply(dir Direction) (changed bool, err error) {
	switch dir {
	case Up:
		err = mg.m.Up()
	case Down:
		err = mg.m.Down()
	default:
		return false, fmt.Errorf("migrate: unknown direction %q", dir)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info("participant schema unchanged", "direction", string(dir))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migrate: %s: %w", dir, err)
	}
	return true, nil
}

// Version returns the applied schema version. A database that has never been
// migrated reports version 0.
func (mg *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrate: version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the source and database handles.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// logAdapter routes golang-migrate's progress lines to slog at debug level.
type logAdapter struct {
	log *slog.Logger
}

func (l logAdapter) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (l logAdapter) Verbose() bool {
	return l.log.Enabled(context.Background(), slog.LevelDebug)
}
