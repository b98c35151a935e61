package vcs

import (
	"fmt"
	"os/exec"
	"sync"
)

// Constructor creates a Repo handle rooted at the given path.
// Implementations register themselves with the registry using Register().
type Constructor func(root string) (Repo, error)

// registry maps backend types to their constructors
var (
	registry      = make(map[Type]Constructor)
	registryMutex sync.RWMutex
)

// Register registers a backend constructor. This is called from init()
// functions in implementation packages.
//
// Example:
//
//	func init() {
//	    vcs.Register(vcs.TypeGit, New)
//	}
func Register(t Type, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("vcs: Register constructor is nil for type %s", t))
	}

	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("vcs: Register called twice for type %s", t))
	}

	registry[t] = constructor
}

// IsRegistered returns true if a constructor is registered for the type.
func IsRegistered(t Type) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, exists := registry[t]
	return exists
}

// RegisteredTypes returns all registered backend types.
func RegisteredTypes() []Type {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// Unregister removes a registered constructor. Primarily useful for
// tests that install fake backends.
func Unregister(t Type) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	delete(registry, t)
}

func getConstructor(t Type) Constructor {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return registry[t]
}

// Open creates a Repo handle for the given path using the git backend.
// Returns ErrBackendNotAvailable if the git binary is missing and
// an error if no constructor is registered.
func Open(path string) (Repo, error) {
	return OpenType(TypeGit, path)
}

// OpenType creates a Repo handle using a specific backend type.
func OpenType(t Type, path string) (Repo, error) {
	constructor := getConstructor(t)
	if constructor == nil {
		return nil, fmt.Errorf("no registered constructor for VCS type %s (available: %v)", t, RegisteredTypes())
	}

	repo, err := constructor(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s repository: %w", t, err)
	}

	return repo, nil
}

// IsGitAvailable reports whether the git binary is present in PATH.
func IsGitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
