package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAuthModeFor(t *testing.T) {
	tests := []struct {
		url      string
		expected AuthMode
	}{
		{"git@github.com:user/notes.git", AuthSSHKey},
		{"ssh://git@host/notes.git", AuthSSHKey},
		{"https://token@github.com/user/notes.git", AuthToken},
		{"https://github.com/user/notes.git", AuthPassword},
		{"/srv/git/notes.git", AuthPassword},
	}

	for _, tt := range tests {
		if got := authModeFor(tt.url); got != tt.expected {
			t.Errorf("authModeFor(%q): expected %s, got %s", tt.url, tt.expected, got)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ConfigDirName), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := newConfig()
	if cfg.ID == "" || cfg.Version != ConfigVersion {
		t.Fatalf("Unexpected fresh config: %+v", cfg)
	}
	cfg.Settings.AutoSync = true
	cfg.Settings.SyncIntervalSeconds = 60

	if err := saveConfig(root, cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	loaded, err := loadConfig(root)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.ID != cfg.ID {
		t.Errorf("Expected stable ID, got %q", loaded.ID)
	}
	if !loaded.Settings.AutoSync || loaded.Settings.SyncIntervalSeconds != 60 {
		t.Errorf("Settings not preserved: %+v", loaded.Settings)
	}
	if !loaded.Created.Equal(cfg.Created) {
		t.Errorf("Created mismatch: %v vs %v", loaded.Created, cfg.Created)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if !s.AutoCommit {
		t.Error("Expected auto-commit on by default")
	}
	if s.AutoSync {
		t.Error("Expected auto-sync off by default")
	}
	if s.SyncIntervalSeconds <= 0 {
		t.Error("Expected positive sync interval")
	}
	if s.DefaultMode == "" {
		t.Error("Expected a default editor mode")
	}
}
