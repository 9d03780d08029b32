package main

import (
	"fmt"
	"time"

	"naktender/internal/seed"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with published processes and evaluation templates",
	Action: func(c *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := newLogger(config)

		pool, st, err := connect(c.Context, config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("Connected to database")

		if _, err := seed.Seed(c.Context, logger, st, seed.DefaultCatalog(time.Now())); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		return nil
	},
}
