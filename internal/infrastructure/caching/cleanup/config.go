package cleanup

import (
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	Schedule         string
	IdleTimeout      time.Duration
	VerboseReporting bool
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		Schedule:         config.SessionReapSchedule,
		IdleTimeout:      config.SessionIdleTimeout,
		VerboseReporting: config.CleanupVerbose,
	}
}
