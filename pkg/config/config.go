// Package config provides hierarchical configuration management.
// Priority: defaults < user file < project file < environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/proclens/proclens/pkg/classify"
)

// Config holds all ProcLens configuration.
type Config struct {
	Version int `yaml:"version"`

	Thresholds ThresholdConfig   `yaml:"thresholds"`
	Parser     ParserConfig      `yaml:"parser"`
	Rules      *classify.RuleSet `yaml:"rules,omitempty"`
	Server     ServerConfig      `yaml:"server"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
}

// ThresholdConfig holds the default discovery thresholds. Both must be
// within [0.0, 1.0]; the engine validates them on every call.
type ThresholdConfig struct {
	Temporal    float64 `yaml:"temporal"`
	Existential float64 `yaml:"existential"`
}

// ParserConfig holds the tabular input column names.
type ParserConfig struct {
	CaseIDColumn    string `yaml:"case_id_column"`
	ActivityColumn  string `yaml:"activity_column"`
	TimestampColumn string `yaml:"timestamp_column"`
	Delimiter       string `yaml:"delimiter"`
}

// ServerConfig for the HTTP API.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// TelemetryConfig for optional OTLP tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration. The classification rule
// boundaries default to the reference table; a Rules section in a
// config file replaces them wholesale.
func Default() *Config {
	return &Config{
		Version: 1,
		Thresholds: ThresholdConfig{
			Temporal:    1.0,
			Existential: 1.0,
		},
		Parser: ParserConfig{
			CaseIDColumn:    "case_id",
			ActivityColumn:  "activity",
			TimestampColumn: "timestamp",
			Delimiter:       ",",
		},
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8080,
			MaxUploadSize: 256 << 20,
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
	}
}

// RuleSet returns the configured rule table, falling back to the
// reference table.
func (c *Config) RuleSet() classify.RuleSet {
	if c.Rules != nil {
		return *c.Rules
	}
	return classify.DefaultRuleSet()
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	for _, path := range m.configPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			continue
		}
		m.paths = append(m.paths, path)
	}

	m.loadEnv()
	return nil
}

// Config returns the current configuration.
func (m *Manager) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Paths returns the config files that were loaded.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

func (m *Manager) configPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".proclens", "config.yaml"))
	}
	paths = append(paths, ".proclens.yaml")
	return paths
}

func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	overlay := *m.config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if overlay.Rules != nil {
		if err := overlay.Rules.Resolve(); err != nil {
			return err
		}
	}
	*m.config = overlay
	return nil
}

func (m *Manager) loadEnv() {
	if v := os.Getenv("PROCLENS_TEMPORAL_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m.config.Thresholds.Temporal = f
		}
	}
	if v := os.Getenv("PROCLENS_EXISTENTIAL_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m.config.Thresholds.Existential = f
		}
	}
	if v := os.Getenv("PROCLENS_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			m.config.Server.Port = p
		}
	}
	if v := os.Getenv("PROCLENS_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// LoadFile loads a single explicit config file over the defaults.
func LoadFile(path string) (*Config, error) {
	m := NewManager()
	if err := m.loadFile(path); err != nil {
		return nil, err
	}
	return m.Config(), nil
}
