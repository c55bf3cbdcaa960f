// Package config loads the focusmode YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
)

// Config holds all configurable daemon parameters.
type Config struct {
	// Whitelist and Blacklist drive app classification.
	Whitelist []string `yaml:"whitelist"`
	Blacklist []string `yaml:"blacklist"`

	// BlocklistPath is the user-maintained hostname list (one per line,
	// "#" comments and blanks ignored).
	BlocklistPath string `yaml:"blocklist_path"`

	// HostsPath is the shared redirect file, normally /etc/hosts.
	HostsPath string `yaml:"hosts_path"`

	// RedirectIP is the loopback address blocked hostnames resolve to.
	RedirectIP string `yaml:"redirect_ip"`

	// PollInterval is the tick spacing of the monitoring loop.
	PollInterval time.Duration `yaml:"poll_interval"`

	// DataDir holds the session database and its key file.
	DataDir string `yaml:"data_dir"`

	// TerminateDistracting terminates processes matching blacklist
	// entries while a distracting app is in the foreground.
	TerminateDistracting bool `yaml:"terminate_distracting"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Whitelist:     []string{"code", "libreoffice", "gedit", "google-docs", "gnome-terminal"},
		Blacklist:     []string{"firefox", "chrome", "vlc", "spotify", "youtube"},
		BlocklistPath: "~/.focusmode/blocked_sites.txt",
		HostsPath:     "/etc/hosts",
		RedirectIP:    "127.0.0.1",
		PollInterval:  3 * time.Second,
		DataDir:       "~/.focusmode",
	}
}

// Load reads configuration from a YAML file.
// Empty path falls back to ~/.focusmode/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, ".focusmode", "config.yaml")
	}

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll_interval must be positive, got %s", cfg.PollInterval)
	}

	return cfg, nil
}

// Lists returns the classification lists as a domain entity.
func (c *Config) Lists() domain.FocusLists {
	return domain.FocusLists{
		Whitelist: c.Whitelist,
		Blacklist: c.Blacklist,
	}
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
