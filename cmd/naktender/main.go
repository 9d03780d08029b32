package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "naktender",
		Usage: "Contractor portal for published tenders, inquiries and calls",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
			reviewCommand,
			reclaimCommand,
			nanoidCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
