package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModePresenceSweeper prunes stale presence entries in the background.
	ServiceModePresenceSweeper ServiceMode = "presence-sweeper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModePresenceSweeper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModePresenceSweeper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, presence-sweeper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// PresenceConfig controls online-user tracking.
type PresenceConfig struct {
	// TTL is how long a heartbeat keeps a user listed as online.
	TTL time.Duration `env:"PRESENCE_TTL" envDefault:"60s"`

	// SweepInterval is how often stale entries are pruned.
	SweepInterval time.Duration `env:"PRESENCE_SWEEP_INTERVAL" envDefault:"30s"`
}

// Sanitize applies guardrails to presence configuration values.
func (p *PresenceConfig) Sanitize() {
	if p.TTL < time.Second {
		p.TTL = 60 * time.Second
	}
	if p.SweepInterval < time.Second {
		p.SweepInterval = 30 * time.Second
	}
}
