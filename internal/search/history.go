package search

import (
	"context"
	"strings"

	"github.com/vellum-notes/vellum/internal/vcs"
)

// HistoryOptions bounds a Tier 3 historical search.
type HistoryOptions struct {
	// MaxRevisions caps the number of revisions scanned per document.
	// Zero applies DefaultMaxRevisions.
	MaxRevisions int

	// Paths limits the scan to the given document paths. Empty scans
	// every indexed document.
	Paths []string
}

// DefaultMaxRevisions is the per-document revision cap for history search.
const DefaultMaxRevisions = 20

// SearchHistory runs a Tier 3 query: full-text search across historical
// revisions read through the repository binding. The scan is bounded;
// a miss means "not found in scanned history", never "does not exist".
// Each hit carries the revision it was found at.
func (idx *Index) SearchHistory(ctx context.Context, repo vcs.Repo, query string, opts HistoryOptions) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	maxRev := opts.MaxRevisions
	if maxRev <= 0 {
		maxRev = DefaultMaxRevisions
	}

	paths := opts.Paths
	if len(paths) == 0 {
		var err error
		paths, err = idx.indexedPaths()
		if err != nil {
			return nil, err
		}
	}

	term := firstTerm(query)
	var results []Result

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		commits, err := repo.Log(ctx, path, maxRev)
		if err != nil {
			return nil, err
		}

		for _, c := range commits {
			body, err := repo.ReadFileAtRevision(ctx, c.Hash, path)
			if err != nil {
				continue // Path absent at this revision
			}

			matches := findMatches(string(body), term, maxMatchesPerDoc)
			if len(matches) == 0 {
				continue
			}

			// Older revisions score lower than an identical current hit
			results = append(results, Result{
				Path:     path,
				Title:    c.Subject,
				Score:    0.5,
				Modified: c.When,
				Revision: c.Hash,
				Matches:  matches,
			})
		}
	}

	sortResults(results)
	return results, nil
}

// indexedPaths returns every document path currently in the index.
func (idx *Index) indexedPaths() ([]string, error) {
	rows, err := idx.conn.Query(`SELECT path FROM documents ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
