package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/luochen1990/fhsval/internal/defaults"
)

type Config struct {
	Templates TemplatesConfig `yaml:"templates"`
	Nix       NixConfig       `yaml:"nix"`
	History   HistoryConfig   `yaml:"history"`
	Security  SecurityConfig  `yaml:"security"`
	Audit     AuditConfig     `yaml:"audit"`
}

type TemplatesConfig struct {
	Dir         string `yaml:"dir"`
	ProjectRoot string `yaml:"project_root"`
}

type NixConfig struct {
	Binary         string `yaml:"binary"`
	System         string `yaml:"system"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type SecurityConfig struct {
	Mode string `yaml:"mode"` // restricted, standard
}

type AuditConfig struct {
	Log string `yaml:"log"`
}

// Default returns a configuration usable without any config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads configuration from file. With an empty path the default
// locations are tried; if none exists, defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"config.yaml",
			"/etc/fhsval/config.yaml",
			os.ExpandEnv("$HOME/.fhsval/config.yaml"),
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Templates.Dir == "" {
		config.Templates.Dir = defaults.DefaultTemplatesDir
	}
	if config.Templates.ProjectRoot == "" {
		config.Templates.ProjectRoot = "."
	}
	if config.Nix.Binary == "" {
		config.Nix.Binary = defaults.DefaultNixBinary
	}
	if config.Nix.System == "" {
		config.Nix.System = defaults.DefaultSystem
	}
	if config.Nix.TimeoutSeconds == 0 {
		config.Nix.TimeoutSeconds = defaults.DefaultTimeoutSeconds
	}
	if config.Security.Mode == "" {
		config.Security.Mode = defaults.DefaultSecurityMode
	}
	if config.History.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			config.History.Path = filepath.Join(home, ".fhsval", "history.db")
		}
	}
	if config.Audit.Log == "" {
		if home, err := os.UserHomeDir(); err == nil {
			config.Audit.Log = filepath.Join(home, ".fhsval", "audit.json")
		}
	}
}
