package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProcessConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validProcessConfig = `{
  "download_dir": "/var/www/download",
  "download_url": "https://example.com/download/",
  "input_path": "/opt/mitgcm/verification/tutorial_baroclinic_gyre/input",
  "build_dir": "/opt/mitgcm/verification/tutorial_baroclinic_gyre/build",
  "run_dir": "/opt/mitgcm/verification/tutorial_baroclinic_gyre/run",
  "data_backup": "/opt/mitgcm/verification/tutorial_baroclinic_gyre/run/data_backup",
  "mnc_dir": "/opt/mitgcm/verification/tutorial_baroclinic_gyre/run/mnc_test_0001"
}`

func TestLoadProcessConfigFromEnv(t *testing.T) {
	path := writeProcessConfig(t, validProcessConfig)
	t.Setenv("MITGCM_CONFIG_FILE", path)

	cfg, err := LoadProcessConfig()
	require.NoError(t, err)
	assert.Equal(t, "/var/www/download", cfg.DownloadDir)
	assert.Equal(t, "https://example.com/download/", cfg.DownloadURL)
	assert.Equal(t, "/opt/mitgcm/verification/tutorial_baroclinic_gyre/input", cfg.InputPath)
	assert.Equal(t, "/opt/mitgcm/verification/tutorial_baroclinic_gyre/run/mnc_test_0001", cfg.MncDir)
}

func TestLoadProcessConfigMissingFile(t *testing.T) {
	t.Setenv("MITGCM_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.json"))

	_, err := LoadProcessConfig()
	assert.Error(t, err)
}

func TestLoadProcessConfigMalformedJSON(t *testing.T) {
	path := writeProcessConfig(t, `{"download_dir": `)

	_, err := LoadProcessConfigFile(path)
	assert.ErrorContains(t, err, "parse process config")
}

func TestLoadProcessConfigMissingKeys(t *testing.T) {
	path := writeProcessConfig(t, `{
  "download_dir": "/var/www/download",
  "download_url": "https://example.com/download/"
}`)

	_, err := LoadProcessConfigFile(path)
	assert.ErrorContains(t, err, "missing required key")
}

func TestProcessConfigValidate(t *testing.T) {
	cfg := &ProcessConfig{
		DownloadDir: "a", DownloadURL: "b", InputPath: "c",
		BuildDir: "d", RunDir: "e", DataBackup: "f", MncDir: "g",
	}
	assert.NoError(t, cfg.Validate())

	cfg.MncDir = ""
	assert.ErrorContains(t, cfg.Validate(), "mnc_dir")
}
