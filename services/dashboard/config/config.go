package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/timerange"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultQueryTimeoutInSeconds         = 10
	defaultCatalogPageSize               = 100
	defaultSuccessStatusDisplayInSeconds = 3
	defaultRefreshWaitTimeoutInSeconds   = 15
	defaultHistoryRetentionSeconds       = 7 * 24 * 3600
	defaultChartWidth                    = 1000
	defaultChartHeight                   = 360
	defaultTimezone                      = "UTC"
	rawRollup                            = "raw"
)

// ChartConfig defines the size of the rendered chart image
type ChartConfig struct {
	Width  int `toml:"Width"`
	Height int `toml:"Height"`
}

// Config maps to the config.toml file for the dashboard service
type Config struct {
	ListenAddress                   string      `toml:"ListenAddress"`
	QueryServiceURL                 string      `toml:"QueryServiceURL"`
	QueryTimeoutInSeconds           uint32      `toml:"QueryTimeoutInSeconds"`
	CatalogPageSize                 int         `toml:"CatalogPageSize"`
	CatalogRefreshIntervalInSeconds uint32      `toml:"CatalogRefreshIntervalInSeconds"`
	MetricAllowList                 []string    `toml:"MetricAllowList"`
	RollupWindows                   []string    `toml:"RollupWindows"`
	TimeRanges                      []string    `toml:"TimeRanges"`
	DefaultRollup                   string      `toml:"DefaultRollup"`
	DefaultTimeRange                string      `toml:"DefaultTimeRange"`
	SuccessStatusDisplayInSeconds   uint32      `toml:"SuccessStatusDisplayInSeconds"`
	RefreshWaitTimeoutInSeconds     uint32      `toml:"RefreshWaitTimeoutInSeconds"`
	DisplayTimezone                 string      `toml:"DisplayTimezone"`
	HistoryRetentionSeconds         int         `toml:"HistoryRetentionSeconds"`
	Chart                           ChartConfig `toml:"Chart"`
}

// LoadConfig parses a TOML file into the Config struct
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.ApplyDefaults()
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills in the zero-valued optional fields
func (cfg *Config) ApplyDefaults() {
	if cfg.QueryTimeoutInSeconds == 0 {
		cfg.QueryTimeoutInSeconds = defaultQueryTimeoutInSeconds
	}
	if cfg.CatalogPageSize <= 0 {
		cfg.CatalogPageSize = defaultCatalogPageSize
	}
	if cfg.SuccessStatusDisplayInSeconds == 0 {
		cfg.SuccessStatusDisplayInSeconds = defaultSuccessStatusDisplayInSeconds
	}
	if cfg.RefreshWaitTimeoutInSeconds == 0 {
		cfg.RefreshWaitTimeoutInSeconds = defaultRefreshWaitTimeoutInSeconds
	}
	if len(cfg.RollupWindows) == 0 {
		cfg.RollupWindows = []string{rawRollup, "1m", "5m", "1h"}
	}
	if len(cfg.TimeRanges) == 0 {
		cfg.TimeRanges = []string{"last-1h", "last-24h", "last-7d", "last-30d", "all-time"}
	}
	if cfg.DefaultRollup == "" {
		cfg.DefaultRollup = cfg.RollupWindows[0]
	}
	if cfg.DefaultTimeRange == "" {
		cfg.DefaultTimeRange = cfg.TimeRanges[0]
	}
	if cfg.HistoryRetentionSeconds <= 0 {
		cfg.HistoryRetentionSeconds = defaultHistoryRetentionSeconds
	}
	if cfg.DisplayTimezone == "" {
		cfg.DisplayTimezone = defaultTimezone
	}
	if cfg.Chart.Width <= 0 {
		cfg.Chart.Width = defaultChartWidth
	}
	if cfg.Chart.Height <= 0 {
		cfg.Chart.Height = defaultChartHeight
	}
}

// Validate checks the fields that have no sensible default
func (cfg *Config) Validate() error {
	if cfg.QueryServiceURL == "" {
		return errors.New("empty QueryServiceURL")
	}
	if !contains(cfg.RollupWindows, rawRollup) {
		return fmt.Errorf("RollupWindows must contain %q", rawRollup)
	}
	if !contains(cfg.RollupWindows, cfg.DefaultRollup) {
		return fmt.Errorf("DefaultRollup %q is not one of the RollupWindows", cfg.DefaultRollup)
	}
	for _, token := range cfg.TimeRanges {
		if !timerange.IsKnown(token) {
			return fmt.Errorf("unknown time range %q in TimeRanges", token)
		}
	}
	if !contains(cfg.TimeRanges, cfg.DefaultTimeRange) {
		return fmt.Errorf("DefaultTimeRange %q is not one of the TimeRanges", cfg.DefaultTimeRange)
	}
	_, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("invalid DisplayTimezone: %w", err)
	}

	return nil
}

// QueryTimeout returns the timeout applied on every outbound request
func (cfg *Config) QueryTimeout() time.Duration {
	return time.Duration(cfg.QueryTimeoutInSeconds) * time.Second
}

// SuccessStatusDisplay returns the delay after which a success status hides itself
func (cfg *Config) SuccessStatusDisplay() time.Duration {
	return time.Duration(cfg.SuccessStatusDisplayInSeconds) * time.Second
}

// RefreshWaitTimeout returns how long the web handlers wait for a refresh to settle
func (cfg *Config) RefreshWaitTimeout() time.Duration {
	return time.Duration(cfg.RefreshWaitTimeoutInSeconds) * time.Second
}

// CatalogRefreshInterval returns the catalog reload period. Zero disables the periodic reload
func (cfg *Config) CatalogRefreshInterval() time.Duration {
	return time.Duration(cfg.CatalogRefreshIntervalInSeconds) * time.Second
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}
