package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:     "tags",
	GroupID: "search",
	Short:   "List tags in use, most frequent first",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		tags := m.Metadata().AllTags()
		if len(tags) == 0 {
			fmt.Println("No tags.")
			return
		}
		for _, tc := range tags {
			fmt.Printf("%4d  %s\n", tc.Count, tc.Tag)
		}
	},
}

var reindexCmd = &cobra.Command{
	Use:     "reindex",
	GroupID: "search",
	Short:   "Rebuild the search index from the working tree",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		if err := m.RebuildIndex(cmd.Context()); err != nil {
			fatal(err)
		}
		fmt.Printf("Reindexed %d documents.\n", len(m.Metadata().List()))
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd, reindexCmd)
}
