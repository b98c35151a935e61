package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/syncer"
)

var conflictsCmd = &cobra.Command{
	Use:     "conflicts",
	GroupID: "sync",
	Short:   "List paths currently in merge conflict",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		conflicts, err := m.Coordinator().Conflicts(cmd.Context())
		if err != nil {
			fatal(err)
		}
		if len(conflicts) == 0 {
			fmt.Println("No conflicts.")
			return
		}
		for _, c := range conflicts {
			kind := "content"
			switch {
			case c.Ours == nil:
				kind = "deleted locally"
			case c.Theirs == nil:
				kind = "deleted on remote"
			case c.Base == nil:
				kind = "added on both sides"
			}
			fmt.Printf("%s\t(%s)\n", styleConflict.Render(c.Path), kind)
		}
		fmt.Println("\nResolve with: vellum resolve <path> --keep-local|--accept-remote|--file <f>")
	},
}

var resolveCmd = &cobra.Command{
	Use:     "resolve <path>",
	GroupID: "sync",
	Short:   "Resolve one conflicted path and commit when none remain",
	Long: `Resolve a single conflicted path by keeping the local side, taking
the remote side, or supplying merged content with --file. Once every
conflict is resolved, the merge commit is created automatically.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		keepLocal, _ := cmd.Flags().GetBool("keep-local")
		acceptRemote, _ := cmd.Flags().GetBool("accept-remote")
		file, _ := cmd.Flags().GetString("file")

		var strategy syncer.Resolution
		var manual []byte
		switch {
		case keepLocal && !acceptRemote && file == "":
			strategy = syncer.ResolveKeepLocal
		case acceptRemote && !keepLocal && file == "":
			strategy = syncer.ResolveAcceptRemote
		case file != "" && !keepLocal && !acceptRemote:
			strategy = syncer.ResolveManual
			var err error
			manual, err = os.ReadFile(file)
			if err != nil {
				fatal(err)
			}
		default:
			fatal(fmt.Errorf("pick exactly one of --keep-local, --accept-remote, --file"))
		}

		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		coord := m.Coordinator()
		conflicts, err := coord.Conflicts(cmd.Context())
		if err != nil {
			fatal(err)
		}
		var target *syncer.Conflict
		for _, c := range conflicts {
			if c.Path == args[0] {
				target = c
				break
			}
		}
		if target == nil {
			fatal(fmt.Errorf("%s is not in conflict", args[0]))
		}

		if err := coord.Resolve(cmd.Context(), target, strategy, manual); err != nil {
			fatal(err)
		}
		fmt.Printf("Resolved %s (%s)\n", target.Path, strategy)

		if len(conflicts) == 1 {
			if err := coord.CommitResolution(cmd.Context(), "Merge remote changes"); err != nil {
				fatal(err)
			}
			fmt.Println("All conflicts resolved; merge committed.")
		}
	},
}

func init() {
	resolveCmd.Flags().Bool("keep-local", false, "Keep the local side")
	resolveCmd.Flags().Bool("accept-remote", false, "Take the remote side")
	resolveCmd.Flags().String("file", "", "Use this file's content as the manual resolution")
	rootCmd.AddCommand(conflictsCmd, resolveCmd)
}
