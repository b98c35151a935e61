package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:     "link <url>",
	GroupID: "sync",
	Short:   "Link the workspace to a remote repository",
	Long: `Link the workspace to a remote URL as "origin" and reconcile
histories. An empty remote receives the local history; a remote with
existing content is merged in, leaving any conflicts for
"vellum conflicts". Linking a second time replaces the previous
remote: a workspace has at most one.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		if err := m.Coordinator().LinkRemote(cmd.Context(), args[0]); err != nil {
			fatal(err)
		}
		fmt.Printf("Linked to %s\n", args[0])
	},
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	GroupID: "sync",
	Short:   "Inspect the linked remote",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		link, err := m.RemoteLink()
		if err != nil {
			fatal(err)
		}
		if link == nil {
			fmt.Println("No remote linked.")
			return
		}
		fmt.Printf("%s\t%s\t(branch %s, auth %s)\n", link.Name, link.URL, link.Branch, link.Auth)
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Remove the remote link",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		if err := m.Coordinator().UnlinkRemote(cmd.Context()); err != nil {
			fatal(err)
		}
		fmt.Println("Unlinked.")
	},
}

func init() {
	remoteCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(linkCmd, remoteCmd)
}
