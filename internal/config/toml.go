// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults shared by the config template and the CLI flags.
const (
	DefaultMaxPoints   = 5000
	DefaultExportFmt   = "csv"
	DefaultServeAddr   = "127.0.0.1:8080"
	DefaultMaxUploadMB = 50
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	View   ViewConfig   `toml:"view"`
	Export ExportConfig `toml:"export"`
	Serve  ServeConfig  `toml:"serve"`
}

// ViewConfig maps waveform display settings.
type ViewConfig struct {
	Separate  *bool `toml:"separate"`
	Envelope  *bool `toml:"envelope"`
	MaxPoints *int  `toml:"max-points"`
	Color     *bool `toml:"color"`
}

// ExportConfig maps export settings.
type ExportConfig struct {
	Format *string `toml:"format"`
	Dir    *string `toml:"dir"`
}

// ServeConfig maps HTTP API settings.
type ServeConfig struct {
	Addr        *string `toml:"addr"`
	MaxUploadMB *int    `toml:"max-upload-mb"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// EnsureConfigFile writes the commented template to path unless a file exists.
func EnsureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(DefaultTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

// DefaultTemplate returns the commented config file written by `scopeview config`.
func DefaultTemplate() string {
	return fmt.Sprintf(`# scopeview configuration
# Uncomment a value to enable it. CLI flags override config values.

[view]
# separate = false        # One plot per channel instead of an overlay
# envelope = false        # Min/max envelope instead of decimation
# max-points = %d       # Rows rendered per view window
# color = true            # Colored traces in terminal output

[export]
# format = %q          # csv, yaml, json, sqlite or png
# dir = %q

[serve]
# addr = %q
# max-upload-mb = %d
`,
		DefaultMaxPoints,
		DefaultExportFmt,
		DefaultExportDir(),
		DefaultServeAddr,
		DefaultMaxUploadMB,
	)
}
