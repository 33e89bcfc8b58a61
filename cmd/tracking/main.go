package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Temutjin2k/tracking-relay/config"
	"github.com/Temutjin2k/tracking-relay/internal/app"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	"github.com/urfave/cli/v3"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

type flags struct {
	configPath string
	logLevel   string
}

func main() {
	f := &flags{}

	cmd := &cli.Command{
		Name:        "tracking",
		Usage:       "real-time booking tracking and messaging relay",
		Description: config.HelpMessage,
		Version:     fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config-path",
				Usage:       "path to the config yaml file",
				Value:       "config.yaml",
				Destination: &f.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (DEBUG, INFO, WARN, ERROR); overrides LOG_LEVEL",
				Destination: &f.logLevel,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			return run(ctx, f)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	log := logger.InitLogger(app.ServiceName, logger.LevelInfo)

	cfg, err := config.NewConfig(f.configPath, f.logLevel)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		return err
	}

	// Printing configuration
	config.PrintConfig(cfg)

	log = logger.InitLogger(app.ServiceName, cfg.LogLevel)

	// Creating application
	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		return err
	}

	// Running the apllication
	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		return err
	}
	return nil
}
