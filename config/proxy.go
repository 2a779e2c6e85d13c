package config

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/darkerego/particle-proxy/utils"
)

type Proxy struct {
	BackendTimeout                  time.Duration `yaml:"backend_timeout"`
	ClientIdleConnectionTimeout     time.Duration `yaml:"client_idle_connection_timeout"`
	Healthcheck                     *Healthcheck  `yaml:"healthcheck"`
	ListenAddress                   string        `yaml:"listen_address"`
	LogRequests                     bool          `yaml:"log_requests"`
	LogRequestsMaxSize              int           `yaml:"log_requests_max_size"`
	LogResponses                    bool          `yaml:"log_responses"`
	LogResponsesMaxSize             int           `yaml:"log_responses_max_size"`
	MaxBackendConnectionsPerHost    int           `yaml:"max_backend_connections_per_host"`
	MaxBackendConnectionWaitTimeout time.Duration `yaml:"max_backend_connection_wait_timeout"`
	MaxClientConnectionsPerIP       int           `yaml:"max_client_connections_per_ip"`
	MaxRequestSizeMb                int           `yaml:"max_request_size_mb"`
	MaxResponseSizeMb               int           `yaml:"max_response_size_mb"`
	TLSCertificate                  string        `yaml:"tls_crt"`
	TLSKey                          string        `yaml:"tls_key"`
}

var (
	errProxyInvalidBackendTimeout                  = errors.New("invalid backend timeout")
	errProxyInvalidClientIdleConnectionTimeout     = errors.New("invalid client connection idle timeout")
	errProxyInvalidListenAddress                   = errors.New("invalid proxy listen address")
	errProxyInvalidMaxBackendConnectionsPerHost    = errors.New("invalid max backend connections per host")
	errProxyInvalidMaxBackendConnectionWaitTimeout = errors.New("invalid max backend connection wait timeout")
	errProxyInvalidMaxClientConnectionsPerIP       = errors.New("invalid max client connections per ip")
	errProxyInvalidMaxRequestSize                  = errors.New("invalid max request size")
	errProxyInvalidMaxResponseSize                 = errors.New("invalid max response size")
	errProxyInvalidTLSConfig                       = errors.New("invalid tls configuration")
)

func (cfg *Proxy) Validate() error {
	errs := make([]error, 0)

	{ // BackendTimeout
		if cfg.BackendTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%w: can't be negative: %s",
				errProxyInvalidBackendTimeout, cfg.BackendTimeout,
			))
		}
		if cfg.BackendTimeout > 30*time.Second {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=30s: %s",
				errProxyInvalidBackendTimeout, cfg.BackendTimeout,
			))
		}
	}

	{ // ClientIdleConnectionTimeout
		if cfg.ClientIdleConnectionTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%w: can't be negative: %s",
				errProxyInvalidClientIdleConnectionTimeout, cfg.ClientIdleConnectionTimeout,
			))
		}
		if cfg.ClientIdleConnectionTimeout > time.Hour {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1h: %s",
				errProxyInvalidClientIdleConnectionTimeout, cfg.ClientIdleConnectionTimeout,
			))
		}
	}

	{ // ListenAddress
		if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w",
				errProxyInvalidListenAddress, cfg.ListenAddress, err,
			))
		}
	}

	{ // MaxBackendConnectionsPerHost
		if cfg.MaxBackendConnectionsPerHost < 0 {
			errs = append(errs, fmt.Errorf("%w: can't be negative: %d",
				errProxyInvalidMaxBackendConnectionsPerHost, cfg.MaxBackendConnectionsPerHost,
			))
		}
		if cfg.MaxBackendConnectionsPerHost > 1024 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1024: %d",
				errProxyInvalidMaxBackendConnectionsPerHost, cfg.MaxBackendConnectionsPerHost,
			))
		}
	}

	{ // MaxBackendConnectionWaitTimeout
		if cfg.MaxBackendConnectionWaitTimeout < 0 {
			errs = append(errs, fmt.Errorf("%w: can't be negative: %s",
				errProxyInvalidMaxBackendConnectionWaitTimeout, cfg.MaxBackendConnectionWaitTimeout,
			))
		}
		if cfg.MaxBackendConnectionWaitTimeout > time.Minute {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1m: %s",
				errProxyInvalidMaxBackendConnectionWaitTimeout, cfg.MaxBackendConnectionWaitTimeout,
			))
		}
	}

	{ // MaxClientConnectionsPerIP
		if cfg.MaxClientConnectionsPerIP < 0 {
			errs = append(errs, fmt.Errorf("%w: can't be negative: %d",
				errProxyInvalidMaxClientConnectionsPerIP, cfg.MaxClientConnectionsPerIP,
			))
		}
		if cfg.MaxClientConnectionsPerIP > 1024 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1024: %d",
				errProxyInvalidMaxClientConnectionsPerIP, cfg.MaxClientConnectionsPerIP,
			))
		}
	}

	{ // MaxRequestSizeMb
		if cfg.MaxRequestSizeMb < 1 {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1: %d",
				errProxyInvalidMaxRequestSize, cfg.MaxRequestSizeMb,
			))
		}
		if cfg.MaxRequestSizeMb > 4096 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=4096: %d",
				errProxyInvalidMaxRequestSize, cfg.MaxRequestSizeMb,
			))
		}
	}

	{ // MaxResponseSizeMb
		if cfg.MaxResponseSizeMb < 1 {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1: %d",
				errProxyInvalidMaxResponseSize, cfg.MaxResponseSizeMb,
			))
		}
		if cfg.MaxResponseSizeMb > 4096 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=4096: %d",
				errProxyInvalidMaxResponseSize, cfg.MaxResponseSizeMb,
			))
		}
	}

	{ // TLSCertificate + TLSKey
		if cfg.TLSCertificate != "" || cfg.TLSKey != "" {
			if cfg.TLSCertificate == "" {
				errs = append(errs, fmt.Errorf("%w: tls certificate must also be configured",
					errProxyInvalidTLSConfig,
				))
			} else if cfg.TLSKey == "" {
				errs = append(errs, fmt.Errorf("%w: tls key must also be configured",
					errProxyInvalidTLSConfig,
				))
			} else if _, err := cfg.LoadTLSCertificate(); err != nil {
				errs = append(errs, fmt.Errorf("%w: %w",
					errProxyInvalidTLSConfig, err,
				))
			}
		}
	}

	return utils.FlattenErrors(errs)
}

func (cfg *Proxy) LoadTLSCertificate() (tls.Certificate, error) {
	crt, err := os.ReadFile(cfg.TLSCertificate)
	if err != nil {
		return tls.Certificate{}, err
	}
	key, err := os.ReadFile(cfg.TLSKey)
	if err != nil {
		return tls.Certificate{}, err
	}

	if debase64, err := base64.StdEncoding.DecodeString(string(crt)); err == nil {
		crt = debase64
	}
	if debase64, err := base64.StdEncoding.DecodeString(string(key)); err == nil {
		key = debase64
	}

	return tls.X509KeyPair(crt, key)
}
