package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/vcs"
)

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "sync",
	Short:   "Pull from the linked remote, recovering from local changes and divergence",
	Long: `Pull the linked branch. Local uncommitted changes are stashed and
reapplied around the pull; divergent histories are joined with a merge
commit. Merge conflicts leave the tree in conflict state for
"vellum conflicts" / "vellum resolve".`,
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		res, err := m.Coordinator().Pull(cmd.Context(), vcs.DefaultRemote, "")
		if err != nil {
			if errors.Is(err, vcs.ErrManualResolutionRequired) {
				fmt.Fprintln(os.Stderr, "Pull hit merge conflicts; run \"vellum conflicts\" to inspect them.")
			}
			fatal(err)
		}

		if res.Merged {
			fmt.Println("Pulled and merged divergent history.")
		} else {
			fmt.Println("Pulled.")
		}
		if res.Warning != "" {
			fmt.Fprintf(os.Stderr, "warning: %s\n", res.Warning)
		}
	},
}

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: "sync",
	Short:   "Push local commits to the linked remote",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		if err := m.Coordinator().Push(cmd.Context(), vcs.DefaultRemote, ""); err != nil {
			if errors.Is(err, vcs.ErrRejectedNonFastForward) {
				fmt.Fprintln(os.Stderr, "Push rejected; run \"vellum pull\" first.")
			}
			fatal(err)
		}
		fmt.Println("Pushed.")
	},
}

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	GroupID: "sync",
	Short:   "Fetch remote refs without touching the working tree",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		if err := m.Coordinator().Fetch(cmd.Context(), vcs.DefaultRemote); err != nil {
			fatal(err)
		}
		fmt.Println("Fetched.")
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Pull then push in one step",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		coord := m.Coordinator()
		res, err := coord.Pull(cmd.Context(), vcs.DefaultRemote, "")
		if err != nil {
			if errors.Is(err, vcs.ErrManualResolutionRequired) {
				fmt.Fprintln(os.Stderr, "Sync hit merge conflicts; run \"vellum conflicts\" to inspect them.")
			}
			fatal(err)
		}
		if res.Warning != "" {
			fmt.Fprintf(os.Stderr, "warning: %s\n", res.Warning)
		}
		if err := coord.Push(cmd.Context(), vcs.DefaultRemote, ""); err != nil {
			fatal(err)
		}
		fmt.Println("Synchronized.")
	},
}

func init() {
	rootCmd.AddCommand(pullCmd, pushCmd, fetchCmd, syncCmd)
}
