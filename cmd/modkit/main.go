package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modkit",
	Short: "Modkit - Pluggable module engine with runtime request gating",
	Long: `Modkit hosts feature modules behind a routing gate. Modules declare
their id, version and route table at startup; operators install, uninstall,
upgrade and re-path them at runtime without restarting the process. Every
request is admitted against the current module state, so an uninstall takes
effect on the very next request.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Modkit version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
}
