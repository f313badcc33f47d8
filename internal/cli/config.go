package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "groupchat"
	configFileName = "config.json"
	dirPerms       = 0700
	filePerms      = 0600
	DefaultURL     = "http://localhost:8000"

	envServerURL = "GROUPCHAT_SERVER"
	envToken     = "GROUPCHAT_TOKEN"
)

// Config is what the CLI persists between runs.
type Config struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
}

func (c *Config) HasToken() bool {
	return c.Token != ""
}

// ConfigPath is <user config dir>/groupchat/config.json.
func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// LoadConfig reads the stored config, then applies GROUPCHAT_SERVER and
// GROUPCHAT_TOKEN on top. A missing file is not an error.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if p, err := ConfigPath(); err == nil {
		if err := readConfig(p, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(envServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(envToken); v != "" {
		cfg.Token = v
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultURL
	}
	return cfg, nil
}

func readConfig(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// SaveConfig writes cfg with owner-only permissions.
func SaveConfig(cfg *Config) error {
	p, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirPerms); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, filePerms)
}

// ClearConfig deletes the stored config; a missing file is fine.
func ClearConfig() error {
	p, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
