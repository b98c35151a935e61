package search

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// contextWindow is the number of characters of surrounding context
// captured on each side of a match.
const contextWindow = 50

// maxMatchesPerDoc bounds the match list attached to a result.
const maxMatchesPerDoc = 20

// Match locates one occurrence of the query inside a document.
// Line and Column are 1-indexed.
type Match struct {
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Text   string `json:"text"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Result is one scored search hit. Score is in [0,1]; results are
// ordered by descending score with ties broken by most-recent
// modification time.
type Result struct {
	Path     string    `json:"path"`
	Title    string    `json:"title"`
	Score    float64   `json:"score"`
	Modified time.Time `json:"modified"`

	// Revision is set only for history (Tier 3) hits.
	Revision string `json:"revision,omitempty"`

	Matches []Match `json:"matches,omitempty"`
}

// MetadataFilter is a Tier 1 query: metadata fields only, no content
// scan, so it stays within a few milliseconds on any workspace size.
type MetadataFilter struct {
	// TitleContains filters on a case-insensitive title substring.
	TitleContains string

	// Tags requires every listed tag to be present.
	Tags []string

	// Mode filters on the editor mode, empty matches all.
	Mode string

	// ModifiedAfter/ModifiedBefore bound the modification time.
	// Zero values leave the bound open.
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
}

// FilterMetadata runs a Tier 1 query over the documents and tag tables.
// All hits score 1.0; ordering is by modification time, newest first.
func (idx *Index) FilterMetadata(q MetadataFilter) ([]Result, error) {
	var (
		where []string
		args  []any
	)

	if q.TitleContains != "" {
		where = append(where, `lower(d.title) LIKE ?`)
		args = append(args, "%"+strings.ToLower(q.TitleContains)+"%")
	}
	if q.Mode != "" {
		where = append(where, `d.mode = ?`)
		args = append(args, q.Mode)
	}
	if !q.ModifiedAfter.IsZero() {
		where = append(where, `d.modified >= ?`)
		args = append(args, q.ModifiedAfter.UTC().Format(time.RFC3339))
	}
	if !q.ModifiedBefore.IsZero() {
		where = append(where, `d.modified <= ?`)
		args = append(args, q.ModifiedBefore.UTC().Format(time.RFC3339))
	}
	for _, tag := range q.Tags {
		where = append(where, `EXISTS (SELECT 1 FROM document_tags t WHERE t.path = d.path AND t.tag = ?)`)
		args = append(args, tag)
	}

	query := `SELECT d.path, d.title, d.modified FROM documents d`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY d.modified DESC`

	rows, err := idx.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("metadata filter query failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var modified string
		if err := rows.Scan(&r.Path, &r.Title, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan filter row: %w", err)
		}
		r.Modified, _ = time.Parse(time.RFC3339, modified)
		r.Score = 1.0
		results = append(results, r)
	}

	return results, rows.Err()
}

// SearchContent runs a Tier 2 ranked full-text query over current
// document content using FTS5 with bm25 ranking.
func (idx *Index) SearchContent(query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := idx.conn.Query(`
		SELECT c.path, d.title, d.modified, c.body, bm25(content) AS rank
		FROM content c
		JOIN documents d ON d.path = c.path
		WHERE content MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("content search query failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r        Result
			modified string
			body     string
			rank     float64
		)
		if err := rows.Scan(&r.Path, &r.Title, &modified, &body, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		r.Modified, _ = time.Parse(time.RFC3339, modified)
		r.Score = normalizeRank(rank)
		r.Matches = findMatches(body, firstTerm(query), maxMatchesPerDoc)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortResults(results)
	return results, nil
}

// ftsQuery quotes each term so user input cannot inject FTS5 syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// firstTerm returns the first whitespace-separated term of the query,
// used for locating in-document match positions.
func firstTerm(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// normalizeRank maps a bm25 rank (more negative is better) into [0,1)
// so that stronger matches score higher.
func normalizeRank(rank float64) float64 {
	abs := math.Abs(rank)
	return abs / (1.0 + abs)
}

// sortResults orders by descending score, ties broken by most-recent
// modification time.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Modified.After(results[j].Modified)
	})
}

// findMatches locates case-insensitive occurrences of term in body,
// with 1-indexed line/column and bounded context windows.
func findMatches(body, term string, limit int) []Match {
	if term == "" || body == "" {
		return nil
	}

	lowerBody := strings.ToLower(body)
	lowerTerm := strings.ToLower(term)

	var matches []Match
	offset := 0
	for len(matches) < limit {
		i := strings.Index(lowerBody[offset:], lowerTerm)
		if i < 0 {
			break
		}
		pos := offset + i

		line := 1 + strings.Count(body[:pos], "\n")
		lineStart := strings.LastIndexByte(body[:pos], '\n') + 1
		col := pos - lineStart + 1

		before := body[:pos]
		if len(before) > contextWindow {
			before = before[len(before)-contextWindow:]
		}
		end := pos + len(term)
		after := body[end:]
		if len(after) > contextWindow {
			after = after[:contextWindow]
		}

		matches = append(matches, Match{
			Line:   line,
			Column: col,
			Text:   body[pos:end],
			Before: before,
			After:  after,
		})

		offset = end
	}

	return matches
}
