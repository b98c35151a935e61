package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vellum-notes/vellum/internal/metadata"
)

var writeCmd = &cobra.Command{
	Use:     "write <path>",
	GroupID: "workspace",
	Short:   "Write a document from stdin or a file",
	Long: `Write document content to the given workspace-relative path (e.g.
notes/a.md). Content comes from stdin, or from --file. The metadata
record is created or updated and the document is staged; with
autoCommit enabled it is committed immediately.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		mode, _ := cmd.Flags().GetString("mode")
		file, _ := cmd.Flags().GetString("file")

		var content []byte
		var err error
		if file != "" {
			content, err = os.ReadFile(file)
		} else {
			content, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			fatal(err)
		}

		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		rec := metadata.Record{Title: title, Tags: tags, Mode: mode}
		if err := m.Write(cmd.Context(), args[0], content, rec); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", args[0], len(content))
	},
}

var catCmd = &cobra.Command{
	Use:     "cat <path>",
	GroupID: "workspace",
	Short:   "Print a document's content",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		content, err := m.Read(args[0])
		if err != nil {
			fatal(err)
		}
		os.Stdout.Write(content)
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <path>",
	GroupID: "workspace",
	Short:   "Remove a document and its metadata",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		if err := m.Remove(cmd.Context(), args[0]); err != nil {
			fatal(err)
		}
		fmt.Printf("Removed %s\n", args[0])
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "workspace",
	Short:   "List documents with their metadata",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := openManager()
		if err != nil {
			fatal(err)
		}
		defer m.Close()

		records := m.Metadata().List()
		paths := make([]string, 0, len(records))
		for p := range records {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, p := range paths {
			rec := records[p]
			line := fmt.Sprintf("%s\t%s\t%s", p, rec.Title, rec.Modified.Format("2006-01-02 15:04"))
			if len(rec.Tags) > 0 {
				line += "\t" + fmt.Sprint(rec.Tags)
			}
			fmt.Println(line)
		}
	},
}

func init() {
	writeCmd.Flags().String("title", "", "Document title (default: derived from content)")
	writeCmd.Flags().StringSlice("tag", nil, "Tag to attach (repeatable)")
	writeCmd.Flags().String("mode", "", "Editor mode (default: workspace defaultMode)")
	writeCmd.Flags().StringP("file", "f", "", "Read content from a file instead of stdin")
	rootCmd.AddCommand(writeCmd, catCmd, rmCmd, listCmd)
}
