package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical calculator defaults file.
const DefaultConfigPath = "config/qsr.defaults.json"

// Continuity policies for QTC symbol sequences.
const (
	ContinuityNone   = "none"
	ContinuityStrict = "strict"
)

// Config is the parsed calculator configuration document. Every field is
// optional; the Get* accessors supply defaults for anything omitted, so
// partial documents are safe.
type Config struct {
	// QSRs is the calculator list used when a request names none.
	QSRs []string `json:"qsrs,omitempty" yaml:"qsrs,omitempty"`

	QTC *QTCConfig `json:"qtc,omitempty" yaml:"qtc,omitempty"`
}

// QTCConfig holds the qualitative trajectory calculus parameters shared by
// all QTC variants.
type QTCConfig struct {
	QuantisationFactor *float64 `json:"quantisation_factor,omitempty" yaml:"quantisation_factor,omitempty"`
	DistanceThreshold  *float64 `json:"distance_threshold,omitempty" yaml:"distance_threshold,omitempty"`
	Continuity         *string  `json:"continuity,omitempty" yaml:"continuity,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Default returns a Config with every field populated from the built-in
// defaults.
func Default() *Config {
	return &Config{
		QSRs: []string{"rcc2", "qtcbs"},
		QTC: &QTCConfig{
			QuantisationFactor: ptrFloat64(0),
			DistanceThreshold:  ptrFloat64(1.0),
			Continuity:         ptrString(ContinuityNone),
		},
	}
}

// Load reads a Config from a .json, .yaml or .yml file and validates it.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the repository root
// or from a package two levels below it (internal/*, cmd/*). Panics if the
// file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	for i, id := range c.QSRs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("qsrs[%d] must not be empty", i)
		}
	}
	if c.QTC == nil {
		return nil
	}
	if q := c.QTC.QuantisationFactor; q != nil && *q < 0 {
		return fmt.Errorf("qtc.quantisation_factor must be non-negative, got %f", *q)
	}
	if d := c.QTC.DistanceThreshold; d != nil && *d < 0 {
		return fmt.Errorf("qtc.distance_threshold must be non-negative, got %f", *d)
	}
	if p := c.QTC.Continuity; p != nil {
		switch *p {
		case ContinuityNone, ContinuityStrict:
		default:
			return fmt.Errorf("qtc.continuity must be %q or %q, got %q", ContinuityNone, ContinuityStrict, *p)
		}
	}
	return nil
}

// GetQSRs returns a copy of the default calculator list.
func (c *Config) GetQSRs() []string {
	if len(c.QSRs) == 0 {
		return nil
	}
	return append([]string(nil), c.QSRs...)
}

// GetQuantisationFactor returns qtc.quantisation_factor or the default.
func (c *Config) GetQuantisationFactor() float64 {
	if c.QTC == nil || c.QTC.QuantisationFactor == nil {
		return 0
	}
	return *c.QTC.QuantisationFactor
}

// GetDistanceThreshold returns qtc.distance_threshold or the default.
func (c *Config) GetDistanceThreshold() float64 {
	if c.QTC == nil || c.QTC.DistanceThreshold == nil {
		return 1.0
	}
	return *c.QTC.DistanceThreshold
}

// GetContinuity returns qtc.continuity or the default.
func (c *Config) GetContinuity() string {
	if c.QTC == nil || c.QTC.Continuity == nil {
		return ContinuityNone
	}
	return *c.QTC.Continuity
}
