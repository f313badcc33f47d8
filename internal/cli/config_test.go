package cli

import (
	"os"
	"path/filepath"
	"testing"
)

// isolateConfig points the user config dir at a temp directory.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AppData", dir)
	t.Setenv(envServerURL, "")
	t.Setenv(envToken, "")
	return dir
}

func TestConfigPath(t *testing.T) {
	isolateConfig(t)
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath() returned error: %v", err)
	}
	if filepath.Base(path) != configFileName || filepath.Base(filepath.Dir(path)) != configDirName {
		t.Errorf("unexpected config path %s", path)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("returns default config when file does not exist", func(t *testing.T) {
		isolateConfig(t)
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() returned error: %v", err)
		}
		if cfg.ServerURL != DefaultURL || cfg.HasToken() {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("uses default URL when server_url is empty", func(t *testing.T) {
		isolateConfig(t)
		path, _ := ConfigPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create config dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(`{"server_url": "", "token": "abc"}`), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() returned error: %v", err)
		}
		if cfg.ServerURL != DefaultURL || cfg.Token != "abc" {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("rejects malformed file", func(t *testing.T) {
		isolateConfig(t)
		path, _ := ConfigPath()
		_ = os.MkdirAll(filepath.Dir(path), 0755)
		_ = os.WriteFile(path, []byte("{"), 0600)

		if _, err := LoadConfig(); err == nil {
			t.Error("expected error for malformed config")
		}
	})
}

func TestSaveAndClearConfig(t *testing.T) {
	isolateConfig(t)

	if err := SaveConfig(&Config{ServerURL: "https://chat.example.com", Token: "save-test"}); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	path, _ := ConfigPath()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat config file: %v", err)
	}
	if info.Mode().Perm() != os.FileMode(filePerms) {
		t.Errorf("expected file permissions %o, got %o", filePerms, info.Mode().Perm())
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.ServerURL != "https://chat.example.com" || cfg.Token != "save-test" {
		t.Errorf("unexpected config %+v", cfg)
	}

	if err := ClearConfig(); err != nil {
		t.Fatalf("ClearConfig() returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected config file to be deleted")
	}
	if err := ClearConfig(); err != nil {
		t.Errorf("expected ClearConfig() to ignore a missing file, got %v", err)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolateConfig(t)
	if err := SaveConfig(&Config{ServerURL: "https://stored.example.com", Token: "stored"}); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}
	t.Setenv(envServerURL, "https://env.example.com")
	t.Setenv(envToken, "env-token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.ServerURL != "https://env.example.com" || cfg.Token != "env-token" {
		t.Errorf("expected env values to win, got %+v", cfg)
	}
}
