package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"github.com/salescrm/backend/internal/infrastructure/logger"
	"github.com/salescrm/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

func main() {
	var (
		migrationsPath string
		country        string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: countries.migrations_path)")
	flag.StringVar(&country, "country", "all", "Country code to migrate, or all")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if migrationsPath == "" {
		migrationsPath = cfg.Countries.MigrationsPath
	}

	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name>")
		}
		f, err := migration.Create(migrationsPath, strings.Join(args[1:], " "))
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created", zap.Uint("version", f.Version), zap.String("up", f.UpPath), zap.String("down", f.DownPath))
		return
	case "list":
		files, err := migration.List(migrationsPath)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, f := range files {
			fmt.Printf("  %06d %s\n", f.Version, f.Name)
		}
		return
	}

	countries := cfg.Countries.Codes
	if !strings.EqualFold(country, "all") {
		if !cfg.Countries.IsSupported(country) {
			log.Fatal("Unsupported country", zap.String("country", country), zap.Strings("supported", countries))
		}
		countries = []string{strings.ToUpper(country)}
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	ctx := context.Background()
	failed := false
	for _, c := range countries {
		if err := run(ctx, db, shared.NormalizeCountry(c), migrationsPath, command, args[1:], log); err != nil {
			log.Error("Migration failed", zap.String("country", c), zap.Error(err))
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func run(ctx context.Context, db *sql.DB, schema, path, command string, args []string, log *zap.Logger) error {
	m, err := migration.New(ctx, db, schema, path, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		if len(args) < 1 {
			return fmt.Errorf("usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version", zap.String("schema", schema), zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	case "force":
		if len(args) < 1 {
			return fmt.Errorf("usage: migrate force <version>")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Println(`Sales service schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                Apply all pending migrations
  down              Roll back all migrations
  step <n>          Apply n migrations (negative rolls back)
  version           Show the applied version
  force <version>   Set the version without running migrations
  create <name>     Create a new migration pair
  list              List available migrations

Flags:
  -path string       Migrations directory
  -country string    Country code, or all (default: all)
  -log-level string  debug, info, warn, error (default: info)

Every country lives in its own schema (co, mx, ...). Connection settings
come from config.toml or VENTAS_DATABASE_* variables.`)
}
