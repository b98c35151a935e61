// Package workspace ties the vellum core together: first-use bootstrap,
// the document write/read boundary, workspace lifecycle, and the
// background daemon that keeps the search index and remote in sync.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// Reserved workspace layout. Stable across versions.
const (
	// ConfigDirName is the reserved configuration subdirectory.
	ConfigDirName = ".vellum"

	// ConfigFileName is the versioned config file inside ConfigDirName.
	ConfigFileName = "config.json"

	// DocsDirName holds user documents.
	DocsDirName = "documents"

	// IndexFileName is the local search index, excluded from version
	// control.
	IndexFileName = "index.db"

	// CacheDirName is the local cache, excluded from version control.
	CacheDirName = "cache"

	// LogsDirName holds daemon logs, excluded from version control.
	LogsDirName = "logs"
)

// ConfigVersion is the persisted config format version.
const ConfigVersion = 1

// Settings are the workspace-level options persisted in the config file.
type Settings struct {
	// AutoCommit commits every document write immediately. When off,
	// writes are staged only.
	AutoCommit bool `json:"autoCommit"`

	// AutoSync enables the periodic background pull-and-refresh.
	AutoSync bool `json:"autoSync"`

	// SyncIntervalSeconds is the background sync period.
	SyncIntervalSeconds int `json:"syncIntervalSeconds"`

	// DefaultMode is the editor mode assigned to new documents when the
	// caller does not specify one.
	DefaultMode string `json:"defaultMode"`
}

// DefaultSettings returns the settings written at bootstrap.
func DefaultSettings() Settings {
	return Settings{
		AutoCommit:          true,
		AutoSync:            false,
		SyncIntervalSeconds: 300,
		DefaultMode:         "markdown",
	}
}

// Config is the on-disk shape of .vellum/config.json.
type Config struct {
	Version  int       `json:"version"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Settings Settings  `json:"settings"`
}

// AuthMode classifies how a remote link authenticates.
type AuthMode string

const (
	AuthSSHKey   AuthMode = "ssh-key"
	AuthPassword AuthMode = "password"
	AuthToken    AuthMode = "token"
)

// RemoteLink describes the workspace's single active remote. At most
// one exists; re-linking overwrites it.
type RemoteLink struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Branch   string    `json:"branch"`
	Auth     AuthMode  `json:"auth"`
	LastSync time.Time `json:"lastSync,omitzero"`
}

// Workspace is the in-memory handle for one workspace directory.
type Workspace struct {
	// ID is the stable workspace identity assigned at bootstrap.
	ID string

	// Name is the display name.
	Name string

	// Root is the workspace root directory.
	Root string

	// Created is when the workspace was bootstrapped.
	Created time.Time

	// LastOpened is when this handle was opened.
	LastOpened time.Time

	// Versioned reports whether the root holds a repository.
	Versioned bool

	// Settings are the workspace-level options.
	Settings Settings
}

// ConfigPath returns the path of the config file under root.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigDirName, ConfigFileName)
}

// IndexPath returns the path of the search index database under root.
func IndexPath(root string) string {
	return filepath.Join(root, ConfigDirName, IndexFileName)
}

// loadConfig reads and parses the workspace config file.
func loadConfig(root string) (*Config, error) {
	raw, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse workspace config: %w", err)
	}
	return &cfg, nil
}

// saveConfig writes the workspace config file via temp-and-rename.
func saveConfig(root string, cfg *Config) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workspace config: %w", err)
	}
	raw = append(raw, '\n')

	path := ConfigPath(root)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write workspace config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace workspace config: %w", err)
	}
	return nil
}

// newConfig returns a fresh config with a generated identity.
func newConfig() *Config {
	return &Config{
		Version:  ConfigVersion,
		ID:       uuid.NewString(),
		Created:  time.Now().UTC(),
		Settings: DefaultSettings(),
	}
}

// authModeFor guesses the authentication mode from a remote URL.
func authModeFor(url string) AuthMode {
	switch {
	case strings.HasPrefix(url, "git@"), strings.HasPrefix(url, "ssh://"):
		return AuthSSHKey
	case strings.Contains(url, "@") && strings.HasPrefix(url, "https://"):
		return AuthToken
	default:
		return AuthPassword
	}
}

// remoteLinkFor derives the active remote link from repository state.
// Returns nil when no canonical remote is configured.
func remoteLinkFor(repo vcs.Repo, lastSync time.Time) (*RemoteLink, error) {
	remotes, err := repo.ListRemotes()
	if err != nil {
		return nil, err
	}

	for _, r := range remotes {
		if r.Name != vcs.DefaultRemote {
			continue
		}

		branch, err := repo.CurrentBranch()
		if err != nil {
			return nil, err
		}

		return &RemoteLink{
			URL:      r.URL,
			Name:     r.Name,
			Branch:   branch,
			Auth:     authModeFor(r.URL),
			LastSync: lastSync,
		}, nil
	}

	return nil, nil
}
