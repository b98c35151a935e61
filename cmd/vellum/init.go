package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:     "init [path]",
	GroupID: "workspace",
	Short:   "Create a new workspace, or adopt an existing repository",
	Long: `Initialize a vellum workspace at the given path (default: current
directory). Creates the git repository, the .vellum/ config directory,
the documents/ tree, and the committed metadata file.

Running init on a directory that is already a repository adopts it
without re-initializing: existing history, remotes, and documents are
preserved and only missing vellum files are added.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		name, _ := cmd.Flags().GetString("name")

		ws, err := workspace.Init(cmd.Context(), path, name)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Initialized workspace %q at %s\n", ws.Name, ws.Root)
	},
}

func init() {
	initCmd.Flags().String("name", "", "Workspace display name (default: directory name)")
	rootCmd.AddCommand(initCmd)
}
