package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:     "commit",
	GroupID: "workspace",
	Short:   "Commit staged workspace changes",
	Long: `Commit everything currently staged. With --all, stage every change
under the workspace first. Most writes are committed automatically
when autoCommit is enabled; this command covers batched edits and
external changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		message, _ := cmd.Flags().GetString("message")
		all, _ := cmd.Flags().GetBool("all")

		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		var paths []string
		if all {
			paths = []string{"."}
		}
		if err := m.Coordinator().Commit(cmd.Context(), message, paths); err != nil {
			fatal(err)
		}
		fmt.Println("Committed.")
	},
}

func init() {
	commitCmd.Flags().StringP("message", "m", "Update workspace", "Commit message")
	commitCmd.Flags().BoolP("all", "a", false, "Stage all changes before committing")
	rootCmd.AddCommand(commitCmd)
}
