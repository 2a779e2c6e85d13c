package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/darkerego/particle-proxy/utils"
)

// Particle holds the process-wide credential pair and upstream location for
// the Particle rpc aggregator. Credentials are mandatory: the proxy refuses
// to start without them instead of failing on the first forwarded request.
type Particle struct {
	BaseURL          string   `yaml:"base_url"`
	Chains           []string `yaml:"chains"`
	ProjectID        string   `yaml:"project_id"`
	ProjectServerKey string   `yaml:"project_server_key"`
}

var (
	errParticleInvalidBaseURL          = errors.New("invalid particle base url")
	errParticleMissingProjectID        = errors.New("missing particle project id")
	errParticleMissingProjectServerKey = errors.New("missing particle project server key")
)

func (cfg *Particle) Validate() error {
	errs := make([]error, 0)

	{ // BaseURL
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w",
				errParticleInvalidBaseURL, cfg.BaseURL, err,
			))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("%w: %s: scheme must be http(s)",
				errParticleInvalidBaseURL, cfg.BaseURL,
			))
		}
	}

	{ // ProjectID
		if cfg.ProjectID == "" {
			errs = append(errs, fmt.Errorf("%w: set PROJECT_ID or pass --project-id",
				errParticleMissingProjectID,
			))
		}
	}

	{ // ProjectServerKey
		if cfg.ProjectServerKey == "" {
			errs = append(errs, fmt.Errorf("%w: set PROJECT_SERVER_KEY or pass --project-server-key",
				errParticleMissingProjectServerKey,
			))
		}
	}

	return utils.FlattenErrors(errs)
}
