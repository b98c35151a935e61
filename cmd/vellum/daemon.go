package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/workspace"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Watch the workspace and sync in the background",
	Long: `Run the background daemon for this workspace. It watches the
documents tree and keeps metadata and the search index current as
files change externally. With autoSync enabled in the workspace
settings it also pulls from the linked remote on the configured
interval.

Logs rotate under .vellum/logs/daemon.log.`,
	Run: func(cmd *cobra.Command, args []string) {
		timeout, _ := cmd.Flags().GetDuration("sync-timeout")

		root, err := workspaceRoot()
		if err != nil {
			fatal(err)
		}
		m, err := workspace.Open(root, workspace.DaemonLogger(root))
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		if err := m.StartWatcher(); err != nil {
			fatal(err)
		}
		if m.Workspace().Settings.AutoSync {
			m.StartAutoSync(timeout)
		}

		fmt.Printf("Daemon running for %s\n", m.Workspace().Root)
		fmt.Println("Press Ctrl+C to stop...")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
	},
}

func init() {
	daemonCmd.Flags().Duration("sync-timeout", 2*time.Minute, "Per-pull timeout for background sync")
	rootCmd.AddCommand(daemonCmd)
}
