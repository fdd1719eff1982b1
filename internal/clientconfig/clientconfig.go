// Package clientconfig loads the snapctl configuration file.
package clientconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".snaptext"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the on-disk shape of the snapctl configuration. Flags override
// every field.
type File struct {
	ServerURL      string `yaml:"server_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
	DefaultFormat  string `yaml:"default_format"`
	OutputDir      string `yaml:"output_dir"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() File {
	return File{
		ServerURL:      "http://localhost:8080",
		TimeoutSeconds: 30,
		MaxAttempts:    3,
		DefaultFormat:  "text",
		OutputDir:      ".",
	}
}

// LoadConfigFile loads snapctl settings from a YAML file, filling missing
// fields from Defaults. If the file does not exist it returns
// ErrConfigNotFound; callers decide whether that matters based on whether
// the path was explicitly requested.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cf := Defaults()
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .snaptext in the current directory
// 3. Look for .snaptext in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if
// not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Load resolves the effective configuration: the found file, or pure
// defaults when none exists.
func Load(configPath string) (*File, error) {
	found := FindConfigFile(configPath)
	if found == "" {
		if configPath != "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		cf := Defaults()
		return &cf, nil
	}
	return LoadConfigFile(found)
}
