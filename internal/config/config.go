// Package config loads agentward configuration from YAML. Missing
// files fall back to defaults; a present file overlays only the fields
// it specifies.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML round-tripping of values like
// "30s" or "1h".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// TrustConfig holds the tier cutoffs and starting score.
type TrustConfig struct {
	InitialScore float64 `yaml:"initial_score"`
	AssistantMin float64 `yaml:"assistant_min"`
	PartnerMin   float64 `yaml:"partner_min"`
	SurrogateMin float64 `yaml:"surrogate_min"`
}

// SafetyConfig holds safety-net tuning.
type SafetyConfig struct {
	UndoWindow Duration `yaml:"undo_window"`
}

// HealthConfig holds degradation monitor tuning.
type HealthConfig struct {
	FailureThreshold int      `yaml:"failure_threshold"`
	ProbeInterval    Duration `yaml:"probe_interval"`
	ProbeTimeout     Duration `yaml:"probe_timeout"`
	InferenceURL     string   `yaml:"inference_url"`
	MemoryURL        string   `yaml:"memory_url"`
}

// Config is the root configuration.
type Config struct {
	DataDir string       `yaml:"data_dir"`
	Trust   TrustConfig  `yaml:"trust"`
	Safety  SafetyConfig `yaml:"safety"`
	Health  HealthConfig `yaml:"health"`
}

// DefaultDataDir returns ~/.agentward, falling back to a temp
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "agentward")
	}
	return filepath.Join(home, ".agentward")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Trust: TrustConfig{
			InitialScore: 0.5,
			AssistantMin: 0.6,
			PartnerMin:   0.8,
			SurrogateMin: 0.9,
		},
		Safety: SafetyConfig{
			UndoWindow: Duration(time.Hour),
		},
		Health: HealthConfig{
			FailureThreshold: 3,
			ProbeInterval:    Duration(30 * time.Second),
			ProbeTimeout:     Duration(5 * time.Second),
			InferenceURL:     "http://localhost:11434/api/version",
			MemoryURL:        "http://localhost:6333/healthz",
		},
	}
}

// Load reads configuration from a YAML file. Empty path falls back to
// <data dir>/config.yaml; a missing file returns defaults; invalid
// YAML or invalid values return an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(DefaultDataDir(), "config.yaml")
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the subsystems cannot run with.
func (c *Config) Validate() error {
	t := c.Trust
	if t.AssistantMin <= 0 || t.AssistantMin >= t.PartnerMin ||
		t.PartnerMin >= t.SurrogateMin || t.SurrogateMin >= 1 {
		return fmt.Errorf("trust thresholds must be strictly ascending within (0,1): %.2f/%.2f/%.2f",
			t.AssistantMin, t.PartnerMin, t.SurrogateMin)
	}
	if t.InitialScore < 0 || t.InitialScore > 1 {
		return fmt.Errorf("initial trust score %.2f out of [0,1]", t.InitialScore)
	}
	if c.Safety.UndoWindow <= 0 {
		return fmt.Errorf("undo window must be positive")
	}
	if c.Health.FailureThreshold <= 0 {
		return fmt.Errorf("failure threshold must be positive")
	}
	if c.Health.ProbeInterval <= 0 || c.Health.ProbeTimeout <= 0 {
		return fmt.Errorf("probe interval and timeout must be positive")
	}
	return nil
}
