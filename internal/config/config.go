package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full configuration surface of the scanner. Values come
// from SCANNER_* environment variables; commands may override individual
// fields from flags. Scoring code never reads the environment directly —
// everything is passed down through constructors.
type Config struct {
	BaselineWindowDays      int     `envconfig:"BASELINE_WINDOW_DAYS" default:"30"`
	MinVolumeGate           int64   `envconfig:"MIN_VOLUME_GATE" default:"500"`
	HighConvictionThreshold float64 `envconfig:"HIGH_CONVICTION_THRESHOLD" default:"7.0"`
	MinReportScore          float64 `envconfig:"MIN_REPORT_SCORE" default:"3.0"`
	OTMThresholdPct         float64 `envconfig:"OTM_THRESHOLD_PCT" default:"0.05"`
	ShortTermDays           int     `envconfig:"SHORT_TERM_DAYS" default:"21"`
	ThisWeekDays            int     `envconfig:"THIS_WEEK_DAYS" default:"7"`
	Workers                 int     `envconfig:"WORKERS" default:"4"`

	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"`
}

// Load reads SCANNER_* environment variables and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("scanner", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with all defaults and no DSNs set.
func Default() *Config {
	return &Config{
		BaselineWindowDays:      30,
		MinVolumeGate:           500,
		HighConvictionThreshold: 7.0,
		MinReportScore:          3.0,
		OTMThresholdPct:         0.05,
		ShortTermDays:           21,
		ThisWeekDays:            7,
		Workers:                 4,
	}
}

// Validate checks invariants between fields.
func (c *Config) Validate() error {
	if c.BaselineWindowDays < 1 {
		return fmt.Errorf("baseline window days must be >= 1, got %d", c.BaselineWindowDays)
	}
	if c.MinVolumeGate < 0 {
		return fmt.Errorf("min volume gate must be >= 0, got %d", c.MinVolumeGate)
	}
	if c.HighConvictionThreshold < 0 || c.HighConvictionThreshold > 10 {
		return fmt.Errorf("high conviction threshold must be in [0,10], got %g", c.HighConvictionThreshold)
	}
	if c.MinReportScore < 0 || c.MinReportScore > 15 {
		return fmt.Errorf("min report score must be in [0,15], got %g", c.MinReportScore)
	}
	if c.OTMThresholdPct < 0 || c.OTMThresholdPct >= 1 {
		return fmt.Errorf("otm threshold pct must be in [0,1), got %g", c.OTMThresholdPct)
	}
	if c.ThisWeekDays < 1 || c.ShortTermDays < c.ThisWeekDays {
		return fmt.Errorf("short term days (%d) must be >= this week days (%d) >= 1", c.ShortTermDays, c.ThisWeekDays)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}
