package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultProcessConfigPath is used when MITGCM_CONFIG_FILE is not set.
const DefaultProcessConfigPath = "./config.json"

// ProcessConfig holds the deployment-specific paths and URLs for the
// MITgcm process. It lives in a separate JSON file (not the env config)
// so that the same file can be shared with other tooling on the host.
type ProcessConfig struct {
	// DownloadDir is where result artifacts are written.
	DownloadDir string `json:"download_dir"`
	// DownloadURL is the public base URL under which DownloadDir is served.
	DownloadURL string `json:"download_url"`
	// InputPath is the MITgcm model input dir (gendata writes here).
	InputPath string `json:"input_path"`
	// BuildDir contains the compiled mitgcmuv binary.
	BuildDir string `json:"build_dir"`
	// RunDir is the working directory for model runs; holds the "data"
	// namelist the model reads.
	RunDir string `json:"run_dir"`
	// DataBackup is the pristine copy of the "data" namelist that
	// parameter rewrites start from.
	DataBackup string `json:"data_backup"`
	// MncDir is where the model writes its tiled NetCDF output.
	MncDir string `json:"mnc_dir"`
}

// LoadProcessConfig reads the JSON process config from the path named by
// the MITGCM_CONFIG_FILE environment variable, falling back to
// ./config.json in the working directory.
func LoadProcessConfig() (*ProcessConfig, error) {
	path := os.Getenv("MITGCM_CONFIG_FILE")
	if path == "" {
		path = DefaultProcessConfigPath
	}
	return LoadProcessConfigFile(path)
}

// LoadProcessConfigFile reads and validates the JSON process config at path.
func LoadProcessConfigFile(path string) (*ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read process config %s: %w", path, err)
	}

	var cfg ProcessConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse process config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("process config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *ProcessConfig) Validate() error {
	required := map[string]string{
		"download_dir": c.DownloadDir,
		"download_url": c.DownloadURL,
		"input_path":   c.InputPath,
		"build_dir":    c.BuildDir,
		"run_dir":      c.RunDir,
		"data_backup":  c.DataBackup,
		"mnc_dir":      c.MncDir,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("missing required key %q", key)
		}
	}
	return nil
}
