package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	path := flag.String("path", "migrations", "path to migrations directory")
	direction := flag.String("direction", "up", "migration direction (up or down)")
	steps := flag.Int("steps", 0, "number of migrations to apply (0 for all)")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		fatal("POSTGRES_DSN is required")
	}
	if *direction != "up" && *direction != "down" {
		fatal("direction must be 'up' or 'down'")
	}

	// the pgx/v5 database driver registers under the pgx5 scheme
	dbURL := strings.Replace(dsn, "postgres://", "pgx5://", 1)

	m, err := migrate.New("file://"+*path, dbURL)
	if err != nil {
		fatal("create migrate instance: %v", err)
	}
	defer m.Close()

	if *direction == "up" {
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	} else {
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return
	}
	if err != nil {
		fatal("migration failed: %v", err)
	}
	fmt.Printf("migrations applied (direction=%s)\n", *direction)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
