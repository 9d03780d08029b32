package main

import (
	"fmt"

	"naktender/internal/db"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply pending database migrations",
	Action: func(c *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := newLogger(config)

		pool, err := db.Connect(c.Context, config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(c.Context, pool, config, logger); err != nil {
			return err
		}

		logger.WithField("schema", config.DatabaseSchema).Info("migrations applied")
		return nil
	},
}
