package main

import (
	"fmt"

	"naktender/internal/portal"
	"naktender/internal/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/urfave/cli/v2"
)

var reclaimCommand = &cli.Command{
	Name:  "reclaim",
	Usage: "Remove stored blobs of deleted files that were left behind",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "batch",
			Usage: "Maximum number of files to reclaim",
			Value: reclaimBatch,
		},
	},
	Action: func(c *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := newLogger(config)

		if config.S3BucketName == "" {
			return fmt.Errorf("set S3_BUCKET_NAME")
		}

		awsConfig, err := loadAWSConfig(c.Context)
		if err != nil {
			return err
		}

		pool, st, err := connect(c.Context, config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		svc := portal.New(config, logger, st, storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3BucketName))

		reclaimed, err := svc.ReclaimBlobs(c.Context, c.Int("batch"))
		if err != nil {
			return err
		}

		logger.WithField("reclaimed", reclaimed).Info("blob reclaim finished")
		return nil
	},
}
