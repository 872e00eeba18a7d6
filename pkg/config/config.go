// Package config handles configuration for baseline-runner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

// Config represents the workspace configuration (baseline.yaml).
type Config struct {
	// Device connection
	WDAURL   string `yaml:"wdaURL"`   // WebDriverAgent base URL
	BundleID string `yaml:"bundleId"` // App under test

	// Timeouts
	Timeout           time.Duration `yaml:"timeout"`           // Element waits
	PresenceTimeout   time.Duration `yaml:"presenceTimeout"`   // Presence checks
	PollInterval      time.Duration `yaml:"pollInterval"`      // Wait polling
	CheckpointTimeout time.Duration `yaml:"checkpointTimeout"` // Checkpoint waits
	Budget            time.Duration `yaml:"budget"`            // Whole recovery run
	MaxDrainTaps      int           `yaml:"maxDrainTaps"`      // Per drain loop

	// Pauses
	ShortDelay  time.Duration `yaml:"shortDelay"`
	MediumDelay time.Duration `yaml:"mediumDelay"`

	// Checkpoint sources
	CheckpointListen string `yaml:"checkpointListen"` // HTTP address, empty = off
	NATSURL          string `yaml:"natsURL"`          // empty = off
	NATSSubject      string `yaml:"natsSubject"`

	// Recovery
	Controls       map[string]KeySpec `yaml:"controls"`       // Role -> locator key overrides
	OnboardingFlow string             `yaml:"onboardingFlow"` // Path to a flow file

	LogLevel string `yaml:"logLevel"`
}

// KeySpec is a locator key as written in YAML: {id: ...} or {label: ...}.
type KeySpec struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// Key converts the entry into a locator key.
func (k KeySpec) Key() (locator.Key, error) {
	return locator.ParseKey(k.ID, k.Label)
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		WDAURL:            "http://localhost:8100",
		Timeout:           20 * time.Second,
		PresenceTimeout:   time.Second,
		PollInterval:      100 * time.Millisecond,
		CheckpointTimeout: 20 * time.Second,
		Budget:            3 * time.Minute,
		MaxDrainTaps:      25,
		ShortDelay:        time.Second,
		MediumDelay:       2 * time.Second,
		NATSSubject:       "baseline.checkpoints.>",
		LogLevel:          "info",
	}
}

// Load loads configuration from a file, on top of Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("%s: %v", path, err)).WithCause(err)
	}
	if cfg.OnboardingFlow != "" && !filepath.IsAbs(cfg.OnboardingFlow) {
		cfg.OnboardingFlow = filepath.Join(filepath.Dir(path), cfg.OnboardingFlow)
	}

	return cfg, nil
}

// LoadFromDir looks for baseline.yaml or baseline.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	if path := findConfig(dir); path != "" {
		return Load(path)
	}

	// No config file found, return defaults
	return Defaults(), nil
}

// findConfig returns the config file of dir, preferring baseline.yaml.
func findConfig(dir string) string {
	for _, name := range []string{"baseline.yaml", "baseline.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks value ranges and control keys.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"timeout", c.Timeout},
		{"presenceTimeout", c.PresenceTimeout},
		{"pollInterval", c.PollInterval},
		{"checkpointTimeout", c.CheckpointTimeout},
		{"budget", c.Budget},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("%s must be positive, got %s", d.name, d.d))
		}
	}
	if c.ShortDelay < 0 || c.MediumDelay < 0 {
		return core.ErrInvalidConfig.WithMessage("delays must not be negative")
	}
	if c.MaxDrainTaps < 1 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("maxDrainTaps must be at least 1, got %d", c.MaxDrainTaps))
	}
	_, err := c.ControlKeys()
	return err
}

// ControlKeys converts the control overrides into locator keys.
func (c *Config) ControlKeys() (map[string]locator.Key, error) {
	roles := make([]string, 0, len(c.Controls))
	for role := range c.Controls {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	keys := make(map[string]locator.Key, len(roles))
	for _, role := range roles {
		k, err := c.Controls[role].Key()
		if err != nil {
			return nil, core.ErrInvalidConfig.
				WithMessage(fmt.Sprintf("control %q: %v", role, err)).
				WithCause(err)
		}
		keys[role] = k
	}
	return keys, nil
}
