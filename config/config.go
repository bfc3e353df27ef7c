package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/gridbt/backtest"
	"github.com/rustyeddy/gridbt/grid"
)

// Config is the complete gridbt configuration file.
type Config struct {
	Grid    grid.Config    `json:"grid" yaml:"grid"`
	Data    DataConfig     `json:"data" yaml:"data"`
	Sweep   backtest.Space `json:"sweep" yaml:"sweep"`
	Journal JournalConfig  `json:"journal" yaml:"journal"`
	Log     LogConfig      `json:"log" yaml:"log"`
}

// DataConfig selects the bars a backtest runs over.
type DataConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
	// CSV, when set, streams bars from this file instead of the store.
	CSV    string `json:"csv,omitempty" yaml:"csv,omitempty"`
	Symbol string `json:"symbol" yaml:"symbol"`
	// Start and End bound the range [start, end). Empty is unbounded.
	// Accepted: RFC3339, "2006-01-02 15:04" or "2006-01-02".
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
	// Timezone applies to Start/End without an offset. Empty is UTC.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	// Adjust applies forward adjustment before the run.
	Adjust bool `json:"adjust" yaml:"adjust"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "dir" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// LoadFromFile loads configuration from a file (YAML or JSON). Keys missing
// from the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if c.Data.Symbol == "" {
		return fmt.Errorf("data.symbol is required")
	}
	if c.Data.DBPath == "" && c.Data.CSV == "" {
		return fmt.Errorf("data.db_path or data.csv is required")
	}
	start, end, err := c.Data.Range()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return fmt.Errorf("data.start must be before data.end")
	}
	for _, d := range c.Sweep.GridDensities {
		if d <= 0 || d >= 1 {
			return fmt.Errorf("sweep.grid_densities must be between 0 and 1, got %g", d)
		}
	}
	for _, g := range c.Sweep.SellGaps {
		if g <= 0 || g >= 1 {
			return fmt.Errorf("sweep.sell_gaps must be between 0 and 1, got %g", g)
		}
	}
	for _, n := range c.Sweep.MaxOpenLots {
		if n < 0 {
			return fmt.Errorf("sweep.max_open_lots must not be negative")
		}
	}
	switch c.Journal.Type {
	case "none", "":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "dir":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for dir type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'dir' or 'none'")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// Range parses Start and End. Empty values come back as zero times.
func (d DataConfig) Range() (start, end time.Time, err error) {
	loc := time.UTC
	if d.Timezone != "" {
		if loc, err = time.LoadLocation(d.Timezone); err != nil {
			return start, end, fmt.Errorf("data.timezone: %w", err)
		}
	}
	if start, err = parseTime(d.Start, loc); err != nil {
		return start, end, fmt.Errorf("data.start: %w", err)
	}
	if end, err = parseTime(d.End, loc); err != nil {
		return start, end, fmt.Errorf("data.end: %w", err)
	}
	return start, end, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q (want RFC3339, 2006-01-02 15:04 or 2006-01-02)", s)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Grid: grid.DefaultConfig(),
		Data: DataConfig{
			DBPath: "./bars.db",
			Symbol: "510300",
			Adjust: true,
		},
		Sweep: backtest.DefaultSpace(),
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./runs.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
