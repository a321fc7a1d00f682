package config

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/rcview/rcview-cli/internal/demographics"
)

// Validate checks the configuration needed for a command mode. Modes:
// "portal" for commands that talk to the portal, "demographics" for the
// block survey, "serve" for the HTTP server, and "convert" for offline
// geometry work.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "convert":
		// offline, nothing required

	case "portal":
		problems = append(problems, c.portalProblems()...)

	case "demographics":
		problems = append(problems, c.portalProblems()...)
		if _, err := demographics.ParseMethod(c.Demographics.Method); err != nil {
			problems = append(problems, "demographics.method must be all, gt50, or wtd")
		}
		if c.Demographics.Concurrency < 1 || c.Demographics.Concurrency > 32 {
			problems = append(problems, "demographics.concurrency must be between 1 and 32")
		}

	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}

	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) portalProblems() []string {
	var problems []string
	if c.Portal.BaseURL == "" {
		problems = append(problems, "portal.base_url is required")
	}
	if c.Portal.ClientID == "" {
		problems = append(problems, "portal.client_id is required")
	}
	return problems
}
