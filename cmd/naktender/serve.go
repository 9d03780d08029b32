package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"naktender/internal/db"
	"naktender/internal/identity"
	"naktender/internal/portal"
	"naktender/internal/server"
	"naktender/internal/storage"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const reclaimBatch = 100

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply pending migrations before serving",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(config)

	if config.CognitoClientID == "" || config.CognitoIssuerURL == "" {
		return fmt.Errorf("set COGNITO_CLIENT_ID and COGNITO_ISSUER_URL")
	}
	if config.S3BucketName == "" {
		return fmt.Errorf("set S3_BUCKET_NAME")
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)
	s3Client := s3.NewFromConfig(awsConfig)

	pool, st, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cCtx.Bool("migrate") {
		if err := db.Migrate(ctx, pool, config, logger); err != nil {
			return err
		}
	}

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := identity.JWKSURL(config.CognitoIssuerURL)
	if err := jwkCache.Register(context.Background(), jwksURL); err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	cognito := identity.NewCognito(cognitoClient, config.CognitoClientID, config.CognitoUserPoolID)

	svc := portal.New(
		config,
		logger,
		st,
		storage.NewS3Storage(s3Client, config.S3BucketName),
		portal.WithIdentityProvider(cognito),
	)

	srv, err := server.New(
		config,
		logger,
		svc,
		cognito,
		identity.NewTokenVerifier(jwkCache, config.CognitoIssuerURL),
		server.WithHealthCheck(pool.Ping),
	)
	if err != nil {
		return err
	}

	if config.BlobReclaimSchedule != "" {
		sweeper := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		_, err := sweeper.AddFunc(config.BlobReclaimSchedule, func() {
			reclaimed, err := svc.ReclaimBlobs(ctx, reclaimBatch)
			entry := logger.WithField("reclaimed", reclaimed)
			if err != nil {
				entry.WithError(err).Error("blob reclaim sweep failed")
				return
			}
			entry.Debug("blob reclaim sweep finished")
		})
		if err != nil {
			return fmt.Errorf("invalid BLOB_RECLAIM_SCHEDULE: %w", err)
		}

		sweeper.Start()
		defer sweeper.Stop()

		logger.WithField("schedule", config.BlobReclaimSchedule).Info("blob reclaim sweep scheduled")
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":        config.ServerPort,
			"environment": config.Environment,
		}).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
