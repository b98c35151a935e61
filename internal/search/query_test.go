package search

import (
	"testing"
	"time"
)

func TestFtsQuery(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", `"hello"`},
		{"hello world", `"hello" "world"`},
		{`embedded"quote`, `"embedded""quote"`},
		{"NEAR(a b)", `"NEAR(a" "b)"`},
	}

	for _, tt := range tests {
		if got := ftsQuery(tt.input); got != tt.expected {
			t.Errorf("ftsQuery(%q): expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestNormalizeRank(t *testing.T) {
	tests := []struct {
		rank     float64
		expected float64
	}{
		{0, 0},
		{-1, 0.5},
		{-3, 0.75},
	}

	for _, tt := range tests {
		if got := normalizeRank(tt.rank); got != tt.expected {
			t.Errorf("normalizeRank(%v): expected %v, got %v", tt.rank, tt.expected, got)
		}
	}

	// bm25 ranks grow more negative with relevance, so the score must
	// increase as the rank decreases.
	if normalizeRank(-2.17e-06) <= normalizeRank(-8.03e-07) {
		t.Error("Expected a stronger bm25 rank to normalize to a higher score")
	}
}

func TestFindMatches(t *testing.T) {
	body := "first line\nsecond line has Target here\nthird target line\n"

	matches := findMatches(body, "target", 10)
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d: %+v", len(matches), matches)
	}

	// Case-insensitive, positions are 1-indexed, Text keeps original case
	if matches[0].Line != 2 || matches[0].Column != 17 {
		t.Errorf("Expected first match at 2:17, got %d:%d", matches[0].Line, matches[0].Column)
	}
	if matches[0].Text != "Target" {
		t.Errorf("Expected original-case text, got %q", matches[0].Text)
	}
	if matches[1].Line != 3 {
		t.Errorf("Expected second match on line 3, got %d", matches[1].Line)
	}
}

func TestFindMatchesContextWindow(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	body := string(long) + "needle" + string(long)

	matches := findMatches(body, "needle", 10)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if len(matches[0].Before) != contextWindow {
		t.Errorf("Expected before context of %d, got %d", contextWindow, len(matches[0].Before))
	}
	if len(matches[0].After) != contextWindow {
		t.Errorf("Expected after context of %d, got %d", contextWindow, len(matches[0].After))
	}
}

func TestFindMatchesLimit(t *testing.T) {
	body := "a a a a a a"
	matches := findMatches(body, "a", 3)
	if len(matches) != 3 {
		t.Errorf("Expected limit of 3 matches, got %d", len(matches))
	}
}

func TestSortResults(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	results := []Result{
		{Path: "low.md", Score: 0.2, Modified: newer},
		{Path: "tie-old.md", Score: 0.8, Modified: older},
		{Path: "tie-new.md", Score: 0.8, Modified: newer},
	}
	sortResults(results)

	want := []string{"tie-new.md", "tie-old.md", "low.md"}
	for i, w := range want {
		if results[i].Path != w {
			t.Errorf("Position %d: expected %s, got %s", i, w, results[i].Path)
		}
	}
}
