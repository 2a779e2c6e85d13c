package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/darkerego/particle-proxy/utils"
)

// Healthcheck probes the upstream periodically. Disabled when URL is empty.
type Healthcheck struct {
	Interval           time.Duration `yaml:"interval"`
	ThresholdHealthy   int           `yaml:"threshold_healthy"`
	ThresholdUnhealthy int           `yaml:"threshold_unhealthy"`
	URL                string        `yaml:"url"`
}

var (
	errHealthcheckInvalidInterval           = errors.New("invalid healthcheck interval")
	errHealthcheckInvalidThresholdHealthy   = errors.New("invalid healthcheck healthy threshold")
	errHealthcheckInvalidThresholdUnhealthy = errors.New("invalid healthcheck unhealthy threshold")
	errHealthcheckInvalidURL                = errors.New("invalid healthcheck url")
)

func (cfg *Healthcheck) Validate() error {
	if cfg.URL == "" {
		return nil
	}

	errs := make([]error, 0)

	{ // Interval
		if cfg.Interval < time.Second {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1s: %s",
				errHealthcheckInvalidInterval, cfg.Interval,
			))
		}
		if cfg.Interval > time.Minute {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1m: %s",
				errHealthcheckInvalidInterval, cfg.Interval,
			))
		}
	}

	{ // ThresholdHealthy
		if cfg.ThresholdHealthy < 1 {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1: %d",
				errHealthcheckInvalidThresholdHealthy, cfg.ThresholdHealthy,
			))
		}
		if cfg.ThresholdHealthy > 10 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=10: %d",
				errHealthcheckInvalidThresholdHealthy, cfg.ThresholdHealthy,
			))
		}
	}

	{ // ThresholdUnhealthy
		if cfg.ThresholdUnhealthy < 1 {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1: %d",
				errHealthcheckInvalidThresholdUnhealthy, cfg.ThresholdUnhealthy,
			))
		}
		if cfg.ThresholdUnhealthy > 10 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=10: %d",
				errHealthcheckInvalidThresholdUnhealthy, cfg.ThresholdUnhealthy,
			))
		}
	}

	{ // URL
		if _, err := url.Parse(cfg.URL); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w",
				errHealthcheckInvalidURL, err,
			))
		}
	}

	return utils.FlattenErrors(errs)
}
