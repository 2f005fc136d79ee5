package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	appconfig "github.com/mediconnect/mediconnect-platform/internal/config"
	appmigrations "github.com/mediconnect/mediconnect-platform/migrations"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

const (
	targetPrimary = "primary"
	targetAudit   = "audit"
)

var errNoDatabase = errors.New("migrate: DATABASE_URL or AUDIT_DATABASE_URL is required")

// target is one database the schema is applied to.
type target struct {
	name string
	url  string
}

// command is what the binary was asked to do.
//
//	migrate                          apply pending migrations everywhere
//	migrate force <version> [target] pin a target's version (default primary)
type command struct {
	force   bool
	version int
	target  string
}

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		os.Exit(2)
	}
	targets, err := migrationTargets(cfg)
	if err != nil {
		logger.Error("no database configured", "error", err)
		os.Exit(1)
	}

	for _, t := range targets {
		if cmd.force && t.name != cmd.target {
			continue
		}
		log := logger.With("target", t.name)
		if err := run(t.url, cmd); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		if cmd.force {
			log.Info("forced migration version", "version", cmd.version)
		} else {
			log.Info("migrations complete")
		}
	}
}

// migrationTargets lists the databases to migrate. The audit database is a
// separate target only when it differs from the primary one.
func migrationTargets(cfg *appconfig.Config) ([]target, error) {
	primary := strings.TrimSpace(cfg.DatabaseURL)
	audit := strings.TrimSpace(cfg.AuditDatabaseURL)

	var out []target
	if primary != "" {
		out = append(out, target{name: targetPrimary, url: primary})
	}
	if audit != "" && audit != primary {
		out = append(out, target{name: targetAudit, url: audit})
	}
	if len(out) == 0 {
		return nil, errNoDatabase
	}
	return out, nil
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 || args[0] == "up" {
		return command{}, nil
	}
	if args[0] != "force" {
		return command{}, fmt.Errorf("unknown command %q", args[0])
	}
	if len(args) < 2 {
		return command{}, errors.New("force requires a version")
	}
	version, err := strconv.Atoi(args[1])
	if err != nil {
		return command{}, fmt.Errorf("invalid version: %w", err)
	}
	cmd := command{force: true, version: version, target: targetPrimary}
	if len(args) >= 3 {
		switch args[2] {
		case targetPrimary, targetAudit:
			cmd.target = args[2]
		default:
			return command{}, fmt.Errorf("unknown target %q", args[2])
		}
	}
	return cmd, nil
}

func run(databaseURL string, cmd command) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if cmd.force {
		if err := m.Force(cmd.version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		return nil
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
