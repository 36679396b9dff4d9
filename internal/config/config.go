// Package config loads engine and runtime settings from YAML layered over
// embedded defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"darksingularity/internal/agent"
	"darksingularity/internal/nn"
	"darksingularity/internal/scapeid"
	"darksingularity/internal/storage"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Bench  BenchConfig  `yaml:"bench"`
}

// EngineConfig holds the tunables every new engine starts from.
type EngineConfig struct {
	Seed               int64   `yaml:"seed"`
	Topology           string  `yaml:"topology"`
	InitialTemperature float32 `yaml:"initial_temperature"`
	ExplorationBeta    float32 `yaml:"exploration_beta"`
	Gamma              float32 `yaml:"gamma"`
	DT                 float32 `yaml:"dt"`
	WaveGain           float32 `yaml:"wave_gain"`
	KnowledgeWeight    float32 `yaml:"knowledge_weight"`
	MomentumWeight     float32 `yaml:"momentum_weight"`
	ClearWinThreshold  float32 `yaml:"clear_win_threshold"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // memory | sqlite | dir
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto | text | json
}

type BenchConfig struct {
	Scape       string `yaml:"scape"`
	Steps       int    `yaml:"steps"`
	ReportEvery int    `yaml:"report_every"`
	// RunsDir, when set, receives one artifact directory per bench run.
	RunsDir     string `yaml:"runs_dir"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads path over the embedded defaults. Fields missing from the file
// keep their default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse overlays data on the embedded defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.Gamma <= 0 || e.Gamma >= 1:
		return fmt.Errorf("%w: engine.gamma must be in (0, 1): %v", ErrInvalidConfig, e.Gamma)
	case e.DT <= 0:
		return fmt.Errorf("%w: engine.dt must be positive: %v", ErrInvalidConfig, e.DT)
	case e.InitialTemperature < 0 || e.InitialTemperature > 2:
		return fmt.Errorf("%w: engine.initial_temperature must be in [0, 2]: %v", ErrInvalidConfig, e.InitialTemperature)
	case e.WaveGain < 0 || e.KnowledgeWeight < 0 || e.MomentumWeight < 0:
		return fmt.Errorf("%w: engine weights must be non-negative", ErrInvalidConfig)
	case e.ClearWinThreshold <= 0:
		return fmt.Errorf("%w: engine.clear_win_threshold must be positive: %v", ErrInvalidConfig, e.ClearWinThreshold)
	}
	if _, err := nn.ResolveTopology(e.Topology); err != nil {
		return fmt.Errorf("%w: engine.topology: %w", ErrInvalidConfig, err)
	}

	if _, err := storage.NewStore(c.Store.Backend, c.Store.Path); err != nil {
		return fmt.Errorf("%w: store.backend: %w", ErrInvalidConfig, err)
	}
	if c.Store.Backend != "" && c.Store.Backend != "memory" && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required for %s backend", ErrInvalidConfig, c.Store.Backend)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be auto, text or json: %q", ErrInvalidConfig, c.Log.Format)
	}

	if c.Bench.Scape != "" && !slices.Contains(scapeid.Names(), scapeid.Normalize(c.Bench.Scape)) {
		return fmt.Errorf("%w: bench.scape must be one of %v: %q", ErrInvalidConfig, scapeid.Names(), c.Bench.Scape)
	}
	if c.Bench.Steps < 0 || c.Bench.ReportEvery < 0 {
		return fmt.Errorf("%w: bench steps and report_every must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// AgentConfig converts the engine section to the engine's own option set.
func (e EngineConfig) AgentConfig() agent.Config {
	return agent.Config{
		Seed:               e.Seed,
		Topology:           e.Topology,
		InitialTemperature: e.InitialTemperature,
		ExplorationBeta:    e.ExplorationBeta,
		Gamma:              e.Gamma,
		DT:                 e.DT,
		WaveGain:           e.WaveGain,
		KnowledgeWeight:    e.KnowledgeWeight,
		MomentumWeight:     e.MomentumWeight,
		ClearWinThreshold:  e.ClearWinThreshold,
	}
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(l.Level) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// Encode renders the configuration as YAML.
func (c *Config) Encode() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
