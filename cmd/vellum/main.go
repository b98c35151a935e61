// Command vellum manages git-backed note workspaces: bootstrap,
// document writes, remote synchronization with conflict recovery, and
// tiered search.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "vellum",
	Short: "Git-backed workspace manager for notes and documents",
	Long: `Vellum keeps a directory of documents under git, tracks per-document
metadata in a committed JSON file, and maintains a local full-text
index. Workspaces can link to a single remote and synchronize with
automatic stash/merge recovery when histories diverge.

All commands operate on the workspace in the current directory unless
--workspace is given. Configuration may also come from VELLUM_*
environment variables (e.g. VELLUM_WORKSPACE).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "Workspace root directory (default: current directory)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log internal operations to stderr")

	viper.SetEnvPrefix("VELLUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddGroup(
		&cobra.Group{ID: "workspace", Title: "Workspace commands:"},
		&cobra.Group{ID: "sync", Title: "Synchronization commands:"},
		&cobra.Group{ID: "search", Title: "Search commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
