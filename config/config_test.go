package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/darkerego/particle-proxy/config"
)

func validConfig() *config.Config {
	cfg := config.New()

	cfg.Log.Level = "info"
	cfg.Log.Mode = "prod"

	cfg.Metrics.ListenAddress = "127.0.0.1:6785"

	cfg.Particle.BaseURL = "https://rpc.particle.network/evm-chain"
	cfg.Particle.ProjectID = "test-project"
	cfg.Particle.ProjectServerKey = "test-key"

	cfg.Proxy.BackendTimeout = 5 * time.Second
	cfg.Proxy.ClientIdleConnectionTimeout = 30 * time.Second
	cfg.Proxy.ListenAddress = "127.0.0.1:8545"
	cfg.Proxy.MaxRequestSizeMb = 4
	cfg.Proxy.MaxResponseSizeMb = 16

	return cfg
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateMissingCredentials(t *testing.T) {
	{ // missing project id is fatal at startup
		cfg := validConfig()
		cfg.Particle.ProjectID = ""
		err := cfg.Validate()
		assert.ErrorContains(t, err, "missing particle project id")
	}

	{ // so is a missing server key
		cfg := validConfig()
		cfg.Particle.ProjectServerKey = ""
		err := cfg.Validate()
		assert.ErrorContains(t, err, "missing particle project server key")
	}
}

func TestValidateBadValues(t *testing.T) {
	{
		cfg := validConfig()
		cfg.Particle.BaseURL = "ftp://rpc.particle.network"
		assert.ErrorContains(t, cfg.Validate(), "invalid particle base url")
	}

	{
		cfg := validConfig()
		cfg.Proxy.BackendTimeout = time.Minute
		assert.ErrorContains(t, cfg.Validate(), "invalid backend timeout")
	}

	{
		cfg := validConfig()
		cfg.Proxy.ListenAddress = "not-an-address"
		assert.ErrorContains(t, cfg.Validate(), "invalid proxy listen address")
	}

	{
		cfg := validConfig()
		cfg.Log.Mode = "verbose"
		assert.ErrorContains(t, cfg.Validate(), "invalid log-mode")
	}
}

func TestValidateHealthcheck(t *testing.T) {
	{ // disabled healthcheck needs no other fields
		cfg := validConfig()
		cfg.Proxy.Healthcheck.URL = ""
		assert.NoError(t, cfg.Validate())
	}

	{
		cfg := validConfig()
		cfg.Proxy.Healthcheck.URL = "https://rpc.particle.network/evm-chain"
		cfg.Proxy.Healthcheck.Interval = 10 * time.Second
		cfg.Proxy.Healthcheck.ThresholdHealthy = 2
		cfg.Proxy.Healthcheck.ThresholdUnhealthy = 3
		assert.NoError(t, cfg.Validate())
	}

	{
		cfg := validConfig()
		cfg.Proxy.Healthcheck.URL = "https://rpc.particle.network/evm-chain"
		cfg.Proxy.Healthcheck.Interval = 100 * time.Millisecond
		cfg.Proxy.Healthcheck.ThresholdHealthy = 2
		cfg.Proxy.Healthcheck.ThresholdUnhealthy = 3
		assert.ErrorContains(t, cfg.Validate(), "invalid healthcheck interval")
	}
}
