package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/vellum-notes/vellum/internal/workspace"
)

// workspaceRoot resolves the workspace directory from the --workspace
// flag or the VELLUM_WORKSPACE environment variable, falling back to
// the current directory.
func workspaceRoot() (string, error) {
	if root := viper.GetString("workspace"); root != "" {
		return root, nil
	}
	return os.Getwd()
}

// cliLogger returns a logger for command internals. Silent unless
// --verbose is set.
func cliLogger() *log.Logger {
	if viper.GetBool("verbose") {
		return log.New(os.Stderr, "[vellum] ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// openManager opens the workspace for the resolved root. The caller
// must Close the returned manager.
func openManager() (*workspace.Manager, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	m, err := workspace.Open(root, cliLogger())
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", root, err)
	}
	return m, nil
}

// fatal prints an error and exits without running deferred cleanup.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
