// Package config loads the run configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrNoSources = errors.New("config defines no sources")

// SourceConfig describes one configured source.
type SourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Type selects the extractor: "betakit", "finsmes", "feed", or "site".
	Type string `yaml:"type"`
	// Site holds selector constants when Type is "site".
	Site *SiteSelectors `yaml:"site,omitempty"`
}

// SiteSelectors mirrors scrape.SiteConfig for YAML.
type SiteSelectors struct {
	Container   string   `yaml:"container"`
	Item        string   `yaml:"item"`
	Date        string   `yaml:"date"`
	DateAttr    string   `yaml:"date_attr,omitempty"`
	DateLayouts []string `yaml:"date_layouts"`
	Title       string   `yaml:"title"`
}

// SheetsConfig locates the remote spreadsheet sink.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CellRange       string `yaml:"cell_range"`
	CredentialsFile string `yaml:"credentials_file"`
}

// SinksConfig selects the output destinations. Any combination may be set.
type SinksConfig struct {
	File   string        `yaml:"file,omitempty"`
	SQLite string        `yaml:"sqlite,omitempty"`
	Sheets *SheetsConfig `yaml:"sheets,omitempty"`
}

// Config is the structure of a newsclip run file.
type Config struct {
	Sources       []SourceConfig `yaml:"sources"`
	ThresholdDays int            `yaml:"threshold_days"`
	Sinks         SinksConfig    `yaml:"sinks"`
}

// Load reads and parses a run configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(cfg.Sources) == 0 {
		return nil, ErrNoSources
	}

	return &cfg, nil
}

// Threshold returns the inclusive lower bound for a run starting at now.
func (c *Config) Threshold(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.ThresholdDays)
}
