package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"

	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/logger"
	"github.com/flexprice/billingcore/internal/postgres"
	"github.com/flexprice/billingcore/internal/postgres/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	steps := flag.Int("steps", 0, "Apply n migrations, negative rolls back")
	down := flag.Bool("down", false, "Roll back every migration")
	flag.Parse()

	if *dryRun {
		if err := printMigrations(); err != nil {
			log.Fatalf("Failed to print migrations: %v", err)
		}
		return
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Fatalw("Failed to read embedded migrations", "error", err)
	}

	driver, err := migratepg.WithInstance(db.DB.DB, &migratepg.Config{})
	if err != nil {
		logger.Fatalw("Failed to create migration driver", "error", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.Postgres.DBName, driver)
	if err != nil {
		logger.Fatalw("Failed to initialize migrations", "error", err)
	}

	logger.Info("Running database migrations...")
	switch {
	case *down:
		err = m.Down()
	case *steps != 0:
		err = m.Steps(*steps)
	default:
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("Database schema is up to date")
		err = nil
	}
	if err != nil {
		logger.Fatalw("Migration failed", "error", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatalw("Failed to read schema version", "error", err)
	}
	logger.Infow("Migration completed successfully", "version", version, "dirty", dirty)
}

// printMigrations writes every up migration to stdout in apply order
func printMigrations() error {
	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "-- %s\n%s\n", name, body)
	}
	return nil
}
