package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	tdkmcp "github.com/valter-silva-au/taskdeck/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the TaskDeck MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TaskDeck MCP server on stdio",
	Long: `Start the TaskDeck MCP server on stdio transport.

The server exposes the operator operations as MCP tools that AI coding
assistants can call: list_tasks, get_task, start_task, stop_task,
update_task_status, update_task, recover_task, get_pending_question,
submit_answer, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil || Channel == nil {
			return fmt.Errorf("services not initialized")
		}

		srv := tdkmcp.NewServer(Lifecycle, Channel, AlertEngine, appVersion)

		if Watcher != nil {
			if err := Watcher.Start(); err != nil {
				return fmt.Errorf("starting plan watcher: %w", err)
			}
			defer Watcher.Stop()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
