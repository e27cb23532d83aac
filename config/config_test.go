package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsclip.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `sources:
  - name: BetaKit
    url: https://betakit.com/
    type: betakit
  - name: Custom
    url: https://example.com/news
    type: site
    site:
      container: section.latest
      item: article
      date: span.entry-date
      date_layouts: ["January 2, 2006"]
      title: h2.entry-title
threshold_days: 4
sinks:
  file: articles.txt
  sheets:
    spreadsheet_id: abc123
    sheet_name: Articles
    cell_range: A1:D1
    credentials_file: service_account_file.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "betakit", cfg.Sources[0].Type)
	require.NotNil(t, cfg.Sources[1].Site)
	assert.Equal(t, "section.latest", cfg.Sources[1].Site.Container)
	assert.Equal(t, []string{"January 2, 2006"}, cfg.Sources[1].Site.DateLayouts)

	assert.Equal(t, 4, cfg.ThresholdDays)
	assert.Equal(t, "articles.txt", cfg.Sinks.File)
	require.NotNil(t, cfg.Sinks.Sheets)
	assert.Equal(t, "abc123", cfg.Sinks.Sheets.SpreadsheetID)
	assert.Equal(t, "Articles", cfg.Sinks.Sheets.SheetName)
}

func TestLoad_NoSources(t *testing.T) {
	path := writeConfig(t, "threshold_days: 4\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "sources:\n  - this is\n not valid: [yaml\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestThreshold(t *testing.T) {
	cfg := &Config{ThresholdDays: 4}
	now := time.Date(2025, 4, 14, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC), cfg.Threshold(now))
}
