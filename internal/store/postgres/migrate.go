package postgres

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Direction selects what Migrate does.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Version Direction = "version"
)

// MigrationState is the schema version after a Migrate call.
type MigrationState struct {
	Version uint
	Dirty   bool
	Changed bool
}

// ParseDirection validates a direction given on the command line.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down, Version:
		return d, nil
	default:
		return "", fmt.Errorf("unknown migration direction %q (want up, down or version)", s)
	}
}

// Migrate applies the embedded migrations to the database at url.
func Migrate(url string, dir Direction) (MigrationState, error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return MigrationState{}, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return MigrationState{}, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	var state MigrationState
	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	case Version:
	default:
		return MigrationState{}, fmt.Errorf("unknown migration direction %q", dir)
	}
	switch {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return MigrationState{}, fmt.Errorf("migrate %s: %w", dir, err)
	default:
		state.Changed = dir != Version
	}

	state.Version, state.Dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		err = nil
	}
	if err != nil {
		return MigrationState{}, fmt.Errorf("read migration version: %w", err)
	}

	slog.Info("migration finished", "direction", dir, "version", state.Version, "dirty", state.Dirty, "changed", state.Changed)
	return state, nil
}
