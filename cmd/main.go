package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/darkerego/particle-proxy/config"
	"github.com/darkerego/particle-proxy/logutils"
)

const (
	envPrefix = "PPROXY_"
)

var (
	version = "development"
)

func main() {
	cfg := config.New()

	flags := []cli.Flag{
		&cli.StringFlag{
			Destination: &cfg.Log.Level,
			EnvVars:     []string{envPrefix + "LOG_LEVEL"},
			Name:        "log-level",
			Usage:       "logging `level`",
			Value:       "info",
		},

		&cli.StringFlag{
			Destination: &cfg.Log.Mode,
			EnvVars:     []string{envPrefix + "LOG_MODE"},
			Name:        "log-mode",
			Usage:       "logging `mode` (dev or prod)",
			Value:       "prod",
		},

		&cli.StringFlag{
			Destination: &cfg.Metrics.ListenAddress,
			EnvVars:     []string{envPrefix + "METRICS_LISTEN_ADDRESS"},
			Name:        "metrics-listen-address",
			Usage:       "`host:port` for the metrics server",
			Value:       "0.0.0.0:6785",
		},
	}

	app := &cli.App{
		Name:    "particle-proxy",
		Usage:   "single-port reverse proxy for the particle rpc aggregator",
		Version: version,

		Flags: flags,

		Before: func(_ *cli.Context) error {
			l, err := logutils.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(l)

			return nil
		},

		Commands: []*cli.Command{
			CommandServe(cfg),
			CommandChains(),
		},
	}

	defer func() {
		zap.L().Sync() //nolint:errcheck
	}()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed with error:\n\n%s\n\n", err.Error())
		os.Exit(1)
	}
}
