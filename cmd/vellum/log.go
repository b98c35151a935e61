package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:     "log [path]",
	GroupID: "workspace",
	Short:   "Show commit history, optionally for one document",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		commits, err := m.Coordinator().Repo().Log(cmd.Context(), path, limit)
		if err != nil {
			fatal(err)
		}
		if len(commits) == 0 {
			fmt.Println("No commits.")
			return
		}
		for _, c := range commits {
			fmt.Printf("%s  %s  %s  %s\n",
				c.Hash[:12], c.When.Format("2006-01-02 15:04"), c.Author, c.Subject)
		}
	},
}

func init() {
	logCmd.Flags().IntP("limit", "n", 20, "Maximum number of commits to show")
	rootCmd.AddCommand(logCmd)
}
