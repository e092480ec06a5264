// Package main applies the embedded schema migrations to the configured
// database. Intended for deploy pipelines and local bootstrap.
package main

import (
	"fmt"
	"os"

	"github.com/jamiefw/flux/internal/config"
	"github.com/jamiefw/flux/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := db.Migrate(cfg.Database.URL.Unmask()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
