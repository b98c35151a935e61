package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vellum-notes/vellum/internal/metadata"
	"github.com/vellum-notes/vellum/internal/vcs"
)

// Identity used for repository-scoped commits. Deterministic so every
// bootstrap of the same app produces the same author.
const (
	commitUserName  = "Vellum"
	commitUserEmail = "vellum@localhost"
)

// gitignore excludes derived local state from version control.
// The search index and caches are rebuildable; history stays clean.
const gitignore = `# Vellum local state (derived, rebuildable)
` + ConfigDirName + `/` + IndexFileName + `
` + ConfigDirName + `/` + IndexFileName + `-*
` + ConfigDirName + `/` + CacheDirName + `/
` + ConfigDirName + `/` + LogsDirName + `/
`

// readme seeds the documents directory.
const readme = `# Welcome to your Vellum workspace

Documents live under documents/. Every save is recorded in version
control together with its metadata, so your full editing history is
always recoverable.
`

// Init bootstraps a workspace at path.
//
// If the path is not already version-controlled it initializes a
// repository, sets a repository-scoped identity, writes the ignore
// rules, the versioned config file, the metadata file, the documents
// directory and a README, and commits everything as the initial commit.
//
// If the path already holds a repository it is adopted: existing
// history, remotes, and files stay untouched, the identity is verified
// and repaired, and only the missing workspace files are created and
// committed. A second Init on a bootstrapped workspace changes nothing.
func Init(ctx context.Context, path, name string) (*Workspace, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	repo, err := vcs.Open(root)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	existing := repo.IsInitialized()
	if !existing {
		if err := repo.Init(ctx); err != nil {
			return nil, err
		}
	}
	if err := repairIdentity(repo); err != nil {
		return nil, err
	}

	if existing {
		if _, err := os.Stat(ConfigPath(root)); err == nil {
			// Already bootstrapped; never re-initialize
			return openExisting(root)
		}
	}

	if name == "" {
		name = filepath.Base(root)
	}

	created, err := scaffold(root, name)
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		if err := repo.Stage(created); err != nil {
			return nil, err
		}
		msg := "Initialize vellum workspace"
		if existing {
			msg = "Adopt repository as vellum workspace"
		}
		if err := repo.Commit(ctx, vcs.CommitOptions{Message: msg}); err != nil {
			return nil, err
		}
	}

	return openExisting(root)
}

// scaffold writes whichever workspace files are missing under root and
// returns their repository-relative paths for the bootstrap commit.
// Files already present are left exactly as they are.
func scaffold(root, name string) ([]string, error) {
	var created []string

	// Ignore rules first so the index never gets staged
	if _, err := os.Stat(filepath.Join(root, ".gitignore")); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write ignore file: %w", err)
		}
		created = append(created, ".gitignore")
	}

	if err := os.MkdirAll(filepath.Join(root, ConfigDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	cfg, err := loadConfig(root)
	if err != nil {
		cfg = newConfig()
		if err := saveConfig(root, cfg); err != nil {
			return nil, err
		}
		created = append(created, filepath.Join(ConfigDirName, ConfigFileName))
	}

	if _, err := os.Stat(filepath.Join(root, metadata.FileName)); os.IsNotExist(err) {
		if _, err := metadata.Create(root, metadata.WorkspaceInfo{
			Name:    name,
			Created: cfg.Created,
		}); err != nil {
			return nil, err
		}
		created = append(created, metadata.FileName)
	}

	docs := filepath.Join(root, DocsDirName)
	if _, err := os.Stat(docs); os.IsNotExist(err) {
		if err := os.MkdirAll(docs, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create documents directory: %w", err)
		}
		if err := os.WriteFile(filepath.Join(docs, "README.md"), []byte(readme), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write README: %w", err)
		}
		created = append(created, filepath.Join(DocsDirName, "README.md"))
	}

	return created, nil
}

// repairIdentity sets the repository-scoped identity when unset,
// leaving a user-provided identity untouched.
func repairIdentity(repo vcs.Repo) error {
	name, err := repo.ConfigGet("user.name")
	if err != nil {
		return err
	}
	if name == "" {
		if err := repo.ConfigSet("user.name", commitUserName); err != nil {
			return err
		}
	}

	email, err := repo.ConfigGet("user.email")
	if err != nil {
		return err
	}
	if email == "" {
		if err := repo.ConfigSet("user.email", commitUserEmail); err != nil {
			return err
		}
	}

	return nil
}

// openExisting builds the workspace handle for an already-bootstrapped
// root without touching history.
func openExisting(root string) (*Workspace, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(root)
	if meta, merr := metadata.Load(root); merr == nil {
		name = meta.Workspace().Name
	}

	return &Workspace{
		ID:         cfg.ID,
		Name:       name,
		Root:       root,
		Created:    cfg.Created,
		LastOpened: time.Now().UTC(),
		Versioned:  true,
		Settings:   cfg.Settings,
	}, nil
}
