package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/vcs"
)

var (
	styleHeading  = lipgloss.NewStyle().Bold(true)
	styleClean    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleDirty    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleConflict = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleFaint    = lipgloss.NewStyle().Faint(true)
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "workspace",
	Short:   "Show workspace, tree, and remote state",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		ws := m.Workspace()
		st, err := m.Coordinator().Repo().Status(cmd.Context())
		if err != nil {
			fatal(err)
		}

		fmt.Println(styleHeading.Render("Workspace: " + ws.Name))
		fmt.Printf("  root:      %s\n", ws.Root)
		fmt.Printf("  documents: %d\n", len(m.Metadata().List()))
		if st.Branch != "" {
			fmt.Printf("  branch:    %s\n", st.Branch)
		}

		link, err := m.RemoteLink()
		if err != nil {
			fatal(err)
		}
		if link == nil {
			fmt.Println(styleFaint.Render("  remote:    (not linked)"))
		} else {
			fmt.Printf("  remote:    %s (%s, auth: %s)\n", link.URL, link.Name, link.Auth)
			ahead, behind, err := m.Coordinator().AheadBehind(cmd.Context(), vcs.DefaultRemote, st.Branch)
			if err == nil {
				fmt.Printf("  position:  %d ahead, %d behind\n", ahead, behind)
			}
		}

		printPaths := func(label string, style lipgloss.Style, paths []string) {
			if len(paths) == 0 {
				return
			}
			fmt.Println(styleHeading.Render(label))
			for _, p := range paths {
				fmt.Println("  " + style.Render(p))
			}
		}

		if st.Clean() {
			fmt.Println(styleClean.Render("Working tree clean"))
			return
		}
		printPaths("Conflicted:", styleConflict, st.Conflicted)
		printPaths("Staged:", styleDirty, st.Staged)
		printPaths("Modified:", styleDirty, st.Modified)
		printPaths("Untracked:", styleFaint, st.Untracked)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
