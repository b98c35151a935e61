// Package git registers itself with the vcs factory on import.
//
// Usage:
//
//	import _ "github.com/vellum-notes/vellum/internal/vcs/git" // Auto-registers via init()
//
//	repo, err := vcs.Open(path)
package git

import "github.com/vellum-notes/vellum/internal/vcs"

// init registers the git backend with the factory.
func init() {
	vcs.Register(vcs.TypeGit, func(root string) (vcs.Repo, error) {
		return New(root)
	})
}
