package main

import (
	"errors"
	"fmt"

	"naktender/internal/portal"
	"naktender/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var reviewCommand = &cli.Command{
	Name:  "review",
	Usage: "Record a reviewer decision on an account verification task or a participation request",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "task",
			Usage: "ID of the account verification task",
		},
		&cli.StringFlag{
			Name:  "submission",
			Usage: "ID of the participation request",
		},
		&cli.StringFlag{
			Name:     "status",
			Aliases:  []string{"s"},
			Usage:    "New status: IN_PROGRESS, COMPLETED or REJECTED",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "reason",
			Aliases: []string{"r"},
			Usage:   "Rejection reason shown to the contractor",
		},
		&cli.StringFlag{
			Name:    "reviewer",
			Usage:   "Name recorded as the reviewer",
			EnvVars: []string{"USER"},
		},
	},
	Action: func(c *cli.Context) error {
		taskID, submissionID := c.String("task"), c.String("submission")
		if (taskID == "") == (submissionID == "") {
			return errors.New("set exactly one of --task or --submission")
		}

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

		// Reviews never touch blobs.
		svc := portal.New(config, logger, st, nil)

		decision := portal.ReviewDecision{
			Status:   types.TaskStatus(c.String("status")),
			Reason:   c.String("reason"),
			Reviewer: c.String("reviewer"),
		}

		var result any
		if taskID != "" {
			result, err = svc.ReviewTask(c.Context, taskID, decision)
		} else {
			result, err = svc.ReviewSubmission(c.Context, submissionID, decision)
		}
		if err != nil {
			return err
		}

		_, err = pp.Println(result)
		return err
	},
}
