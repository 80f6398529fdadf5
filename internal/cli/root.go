// Package cli implements the tdk command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "tdk",
	Short: "TaskDeck - coordinator for long-running AI coding agents",
	Long: `TaskDeck (tdk) coordinates long-running AI coding agents against a
board of tasks. It derives task status from the agent's own implementation
plan, relays clarification questions between the agent and the operator,
and supervises agent runs.

It provides CLI commands for managing tasks, answering agent questions,
watching progress, and serving the same operations over MCP.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tdk %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
