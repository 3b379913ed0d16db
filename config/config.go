// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full process configuration. All values come from environment
// variables; a .env file may supply them during development.
type Config struct {
	// Provider selects the reasoning backend: "openai" or "anthropic".
	Provider string `envconfig:"MODEL_PROVIDER" default:"openai"`
	// ModelName overrides the provider's default model.
	ModelName string `envconfig:"MODEL_NAME"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	TavilyAPIKey     string `envconfig:"TAVILY_API_KEY"`
	VirusTotalAPIKey string `envconfig:"VIRUSTOTAL_API_KEY"`
	OTXAPIKey        string `envconfig:"OTX_API_KEY"`
	ZoomEyeAPIKey    string `envconfig:"ZOOMEYE_API_KEY"`
	NVDAPIKey        string `envconfig:"NVD_API_KEY"`

	// ProfilesPath points to an optional YAML specialist-profile table that
	// replaces the built-in defaults.
	ProfilesPath string `envconfig:"PROFILES_PATH"`

	ListenAddr     string        `envconfig:"LISTEN_ADDR" default:":8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`

	// Routing policy knobs. Defaults match the router package.
	RouterSingleThreshold float64 `envconfig:"ROUTER_SINGLE_THRESHOLD" default:"0.6"`
	RouterMultiThreshold  float64 `envconfig:"ROUTER_MULTI_THRESHOLD" default:"0.3"`
	RouterMaxFanOut       int     `envconfig:"ROUTER_MAX_FANOUT" default:"4"`

	// Tool execution knobs.
	ToolTimeout     time.Duration `envconfig:"TOOL_TIMEOUT" default:"15s"`
	ToolMaxAttempts int           `envconfig:"TOOL_MAX_ATTEMPTS" default:"3"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when MODEL_PROVIDER=openai")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when MODEL_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.Provider)
	}
	return nil
}
