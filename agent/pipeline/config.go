package pipeline

import (
	"fmt"
	"time"

	contractx "github.com/yugent/yugent/agent/contract"
	"github.com/yugent/yugent/agent/logdispatch"
	configx "github.com/yugent/yugent/pkg/config"
)

const (
	// DefaultMaxToolIterations bounds the tool-call loop so a model that
	// keeps requesting tools cannot spin the cycle forever.
	DefaultMaxToolIterations = 8

	defaultToolTimeout   = 30 * time.Second
	defaultLLMTimeout    = 60 * time.Second
	defaultLoggerTimeout = 10 * time.Second
)

// Config is the pipeline's tuning surface.
type Config struct {
	MaxToolIterations int           `envconfig:"MAX_TOOL_ITERATIONS" split_words:"true" default:"8"`
	ToolTimeout       time.Duration `envconfig:"TOOL_TIMEOUT" split_words:"true" default:"30s"`
	LLMTimeout        time.Duration `envconfig:"LLM_TIMEOUT" split_words:"true" default:"60s"`
	LoggerMode        string        `envconfig:"LOGGER_MODE" split_words:"true" default:"async"`
	LoggerTimeout     time.Duration `envconfig:"LOGGER_TIMEOUT" split_words:"true" default:"10s"`

	// RecoverToolErrors surfaces tool execution failures and timeouts to the
	// LLM as tool-error turns instead of aborting the cycle.
	RecoverToolErrors bool `envconfig:"RECOVER_TOOL_ERRORS" split_words:"true" default:"true"`
}

// ConfigFromEnv loads Config from the environment under the given prefix,
// e.g. prefix "YUGENT" reads YUGENT_MAX_TOOL_ITERATIONS.
func ConfigFromEnv(prefix string) (Config, error) {
	cfg, err := configx.New[Config](prefix)
	if err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

func (c Config) Validate() error {
	if c.MaxToolIterations < 0 {
		return fmt.Errorf("%w: max tool iterations must be >= 0", contractx.ErrValidation)
	}
	switch logdispatch.Mode(c.LoggerMode) {
	case logdispatch.ModeSync, logdispatch.ModeAsync, "":
	default:
		return fmt.Errorf("%w: logger mode must be %q or %q", contractx.ErrValidation,
			logdispatch.ModeSync, logdispatch.ModeAsync)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxToolIterations <= 0 {
		c.MaxToolIterations = DefaultMaxToolIterations
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = defaultToolTimeout
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = defaultLLMTimeout
	}
	if c.LoggerTimeout <= 0 {
		c.LoggerTimeout = defaultLoggerTimeout
	}
	if c.LoggerMode == "" {
		c.LoggerMode = string(logdispatch.ModeAsync)
	}
	return c
}
