package main

import (
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/darkerego/particle-proxy/config"
	"github.com/darkerego/particle-proxy/server"
)

const (
	categoryParticle = "particle"
	categoryProxy    = "proxy"
)

func CommandServe(cfg *config.Config) *cli.Command {
	chainSelectors := &cli.StringSlice{}

	particleFlags := []cli.Flag{
		&cli.StringFlag{
			Category:    strings.ToUpper(categoryParticle),
			Destination: &cfg.Particle.BaseURL,
			EnvVars:     []string{envPrefix + "PARTICLE_BASE_URL"},
			Name:        "particle-base-url",
			Usage:       "`url` of the particle evm-chain rpc endpoint",
			Value:       "https://rpc.particle.network/evm-chain",
		},

		&cli.StringSliceFlag{
			Category:    strings.ToUpper(categoryParticle),
			Destination: chainSelectors,
			EnvVars:     []string{envPrefix + "CHAINS"},
			Name:        "chains",
			Usage:       "list of `networks` (names or chain ids) to route; empty means all",
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryParticle),
			Destination: &cfg.Particle.ProjectID,
			EnvVars:     []string{"PROJECT_ID", envPrefix + "PROJECT_ID"},
			Name:        "project-id",
			Usage:       "particle project `id`",
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryParticle),
			Destination: &cfg.Particle.ProjectServerKey,
			EnvVars:     []string{"PROJECT_SERVER_KEY", envPrefix + "PROJECT_SERVER_KEY"},
			Name:        "project-server-key",
			Usage:       "particle project server `key`",
		},
	}

	proxyFlags := []cli.Flag{
		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.BackendTimeout,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_BACKEND_TIMEOUT"},
			Name:        categoryProxy + "-backend-timeout",
			Usage:       "max `duration` of a single upstream call",
			Value:       5 * time.Second,
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.ClientIdleConnectionTimeout,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_CLIENT_IDLE_CONNECTION_TIMEOUT"},
			Name:        categoryProxy + "-client-idle-connection-timeout",
			Usage:       "idle `timeout` for client connections",
			Value:       30 * time.Second,
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.Healthcheck.URL,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_HEALTHCHECK_URL"},
			Name:        categoryProxy + "-healthcheck-url",
			Usage:       "`url` to probe the upstream on (empty disables the healthcheck)",
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.Healthcheck.Interval,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_HEALTHCHECK_INTERVAL"},
			Name:        categoryProxy + "-healthcheck-interval",
			Usage:       "`interval` between upstream probes",
			Value:       10 * time.Second,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.Healthcheck.ThresholdHealthy,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_HEALTHCHECK_THRESHOLD_HEALTHY"},
			Name:        categoryProxy + "-healthcheck-threshold-healthy",
			Usage:       "`count` of consecutive successful probes to become healthy",
			Value:       2,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.Healthcheck.ThresholdUnhealthy,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_HEALTHCHECK_THRESHOLD_UNHEALTHY"},
			Name:        categoryProxy + "-healthcheck-threshold-unhealthy",
			Usage:       "`count` of consecutive failed probes to become unhealthy",
			Value:       3,
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.ListenAddress,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_LISTEN_ADDRESS"},
			Name:        categoryProxy + "-listen-address",
			Usage:       "`host:port` for the proxy",
			Value:       "127.0.0.1:8545",
		},

		&cli.BoolFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.LogRequests,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_LOG_REQUESTS"},
			Name:        categoryProxy + "-log-requests",
			Usage:       "log the proxied request bodies",
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.LogRequestsMaxSize,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_LOG_REQUESTS_MAX_SIZE"},
			Name:        categoryProxy + "-log-requests-max-size",
			Usage:       "max `size` of request body to log",
			Value:       4096,
		},

		&cli.BoolFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.LogResponses,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_LOG_RESPONSES"},
			Name:        categoryProxy + "-log-responses",
			Usage:       "log the proxied response bodies",
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.LogResponsesMaxSize,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_LOG_RESPONSES_MAX_SIZE"},
			Name:        categoryProxy + "-log-responses-max-size",
			Usage:       "max `size` of response body to log",
			Value:       4096,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.MaxBackendConnectionsPerHost,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_MAX_BACKEND_CONNECTIONS_PER_HOST"},
			Name:        categoryProxy + "-max-backend-connections-per-host",
			Usage:       "max `count` of connections to the upstream host",
			Value:       100,
		},

		&cli.DurationFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.MaxBackendConnectionWaitTimeout,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_MAX_BACKEND_CONNECTION_WAIT_TIMEOUT"},
			Name:        categoryProxy + "-max-backend-connection-wait-timeout",
			Usage:       "max `duration` to wait for a free upstream connection",
			Value:       5 * time.Second,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.MaxClientConnectionsPerIP,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_MAX_CLIENT_CONNECTIONS_PER_IP"},
			Name:        categoryProxy + "-max-client-connections-per-ip",
			Usage:       "max `count` of client connections per ip (0 means unlimited)",
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.MaxRequestSizeMb,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_MAX_REQUEST_SIZE_MB"},
			Name:        categoryProxy + "-max-request-size-mb",
			Usage:       "max request `size` in megabytes",
			Value:       4,
		},

		&cli.IntFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.MaxResponseSizeMb,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_MAX_RESPONSE_SIZE_MB"},
			Name:        categoryProxy + "-max-response-size-mb",
			Usage:       "max response `size` in megabytes",
			Value:       16,
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.TLSCertificate,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_TLS_CRT"},
			Name:        categoryProxy + "-tls-crt",
			Usage:       "`path` to the tls certificate (plain or base64)",
		},

		&cli.StringFlag{
			Category:    strings.ToUpper(categoryProxy),
			Destination: &cfg.Proxy.TLSKey,
			EnvVars:     []string{envPrefix + strings.ToUpper(categoryProxy) + "_TLS_KEY"},
			Name:        categoryProxy + "-tls-key",
			Usage:       "`path` to the tls key (plain or base64)",
		},
	}

	flags := append(append([]cli.Flag{}, particleFlags...), proxyFlags...)

	return &cli.Command{
		Name:  "serve",
		Usage: "run the proxy server",
		Flags: flags,

		Before: func(_ *cli.Context) error {
			cfg.Particle.Chains = chainSelectors.Value()

			return cfg.Validate()
		},

		Action: func(_ *cli.Context) error {
			s, err := server.New(cfg)
			if err != nil {
				return err
			}
			return s.Run()
		},
	}
}
