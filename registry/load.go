package registry

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes Style with a human-readable timeout ("30s") rather
// than nanosecond integers.
func (s *Style) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Temperature      float64 `yaml:"temperature"`
		MaxTokens        int     `yaml:"max_tokens"`
		Timeout          string  `yaml:"timeout"`
		QualityThreshold float64 `yaml:"quality_threshold"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.Temperature = raw.Temperature
	s.MaxTokens = raw.MaxTokens
	s.QualityThreshold = raw.QualityThreshold
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
		}
		s.Timeout = d
	}
	return nil
}

// fileSchema is the on-disk YAML shape for profile overrides.
type fileSchema struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load parses a full profile table from YAML. Durations use Go syntax
// ("30s"); the resulting registry replaces the built-in defaults entirely.
func Load(r io.Reader) (*Registry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var f fileSchema
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return New(f.Profiles...)
}

// LoadFile is a convenience wrapper around Load for a YAML file path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles: %w", err)
	}
	defer f.Close()
	return Load(f)
}
