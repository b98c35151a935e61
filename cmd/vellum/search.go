package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/search"
)

var styleScore = lipgloss.NewStyle().Faint(true)

var searchCmd = &cobra.Command{
	Use:     "search [query]",
	GroupID: "search",
	Short:   "Search documents by metadata, content, or history",
	Long: `Search the workspace. With only metadata flags (--tag, --mode,
--title, --since, --until) the query runs against the metadata tables.
A free-text query runs full-text search over current content, ranked
by relevance. --history additionally scans prior revisions of each
document, bounded by --revisions.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tags, _ := cmd.Flags().GetStringSlice("tag")
		mode, _ := cmd.Flags().GetString("mode")
		title, _ := cmd.Flags().GetString("title")
		since, _ := cmd.Flags().GetString("since")
		until, _ := cmd.Flags().GetString("until")
		history, _ := cmd.Flags().GetBool("history")
		revisions, _ := cmd.Flags().GetInt("revisions")
		limit, _ := cmd.Flags().GetInt("limit")

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		if query == "" && len(tags) == 0 && mode == "" && title == "" && since == "" && until == "" {
			fatal(fmt.Errorf("nothing to search for: give a query or a metadata flag"))
		}

		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		var results []search.Result
		if query == "" {
			filter := search.MetadataFilter{TitleContains: title, Tags: tags, Mode: mode}
			if filter.ModifiedAfter, err = parseDay(since); err != nil {
				fatal(err)
			}
			if filter.ModifiedBefore, err = parseDay(until); err != nil {
				fatal(err)
			}
			results, err = m.Index().FilterMetadata(filter)
		} else {
			results, err = m.Index().SearchContent(query, limit)
		}
		if err != nil {
			fatal(err)
		}

		if history && query != "" {
			hist, err := m.Index().SearchHistory(cmd.Context(), m.Coordinator().Repo(), query,
				search.HistoryOptions{MaxRevisions: revisions})
			if err != nil {
				fatal(err)
			}
			results = append(results, hist...)
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return
		}
		for _, r := range results {
			printResult(r)
		}
	},
}

func printResult(r search.Result) {
	loc := r.Path
	if r.Revision != "" {
		loc = fmt.Sprintf("%s@%s", r.Path, r.Revision[:12])
	}
	fmt.Printf("%s\t%s\t%s\n", loc, r.Title, styleScore.Render(fmt.Sprintf("%.2f", r.Score)))
	for _, match := range r.Matches {
		fmt.Printf("  %d:%d\t%s%s%s\n", match.Line, match.Column,
			match.Before, styleHeading.Render(match.Text), match.After)
	}
}

// parseDay accepts YYYY-MM-DD; empty means no bound.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func init() {
	searchCmd.Flags().StringSlice("tag", nil, "Require a tag (repeatable; all must match)")
	searchCmd.Flags().String("mode", "", "Filter by editor mode")
	searchCmd.Flags().String("title", "", "Filter by title substring")
	searchCmd.Flags().String("since", "", "Only documents modified on or after this date (YYYY-MM-DD)")
	searchCmd.Flags().String("until", "", "Only documents modified before this date (YYYY-MM-DD)")
	searchCmd.Flags().Bool("history", false, "Also search prior revisions")
	searchCmd.Flags().Int("revisions", 0, "Revisions to scan per document with --history (0 = default)")
	searchCmd.Flags().IntP("limit", "n", 50, "Maximum number of content results")
	rootCmd.AddCommand(searchCmd)
}
