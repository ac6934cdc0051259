// Command migrate applies the database migrations.
//
//	migrate up
//	migrate down [n]
//	migrate version
//	migrate force <version>
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/anayu15/mi-gestor-sub003/internal/migration"
)

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		path        = flag.String("path", envOr("MIGRATIONS_PATH", "migrations"), "Directory holding the migration files")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up | down [n] | version | force <version>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	m, err := migration.New(*databaseURL, *path, logger)
	if err != nil {
		logger.Error("failed to open migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = run(m, flag.Args())
	if closeErr := m.Close(); closeErr != nil {
		logger.Warn("failed to close migrator", slog.String("error", closeErr.Error()))
	}
	if err != nil {
		logger.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(m *migration.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		n := 0
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			n = v
		}
		return m.Down(n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.Force(v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
