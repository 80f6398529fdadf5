package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

var (
	tasksProjectFlag string
	tasksStatusFlag  string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks on the board",
	Long: `List all tasks with their derived status and execution progress.

Filter to a single project with --project, or a single status with
--status (backlog, in_progress, ai_review, human_review, done).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		tasks := Lifecycle.ListTasks(tasksProjectFlag)
		if tasksStatusFlag != "" {
			filtered := tasks[:0]
			for _, t := range tasks {
				if string(t.Status) == tasksStatusFlag {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		printTaskTable(tasks)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <task>",
	Short: "Show full details for one task",
	Long:  "Show a task's status, review reason, progress, subtasks, and recent log lines. Accepts the task ID or the agent-assigned spec ID.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		task, err := Lifecycle.GetTask(args[0])
		if err != nil {
			return fmt.Errorf("fetching task: %w", err)
		}

		printTaskDetail(task)
		return nil
	},
}

// printTaskTable prints a table of tasks.
func printTaskTable(tasks []models.Task) {
	fmt.Printf("  %-10s %-16s %-12s %-10s %-9s %s\n", "ID", "SPEC", "STATUS", "REASON", "PROGRESS", "TITLE")
	fmt.Printf("  %-10s %-16s %-12s %-10s %-9s %s\n", "----", "----", "------", "------", "--------", "-----")
	for _, t := range tasks {
		fmt.Printf("  %-10s %-16s %-12s %-10s %8d%% %s\n",
			t.ID, t.SpecID, t.Status, t.ReviewReason,
			t.ExecutionProgress.OverallProgress, t.Title)
	}
}

// printTaskDetail prints a single task in long form.
func printTaskDetail(task models.Task) {
	fmt.Printf("%s  %s\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Printf("  %s\n", task.Description)
	}
	fmt.Println()
	fmt.Printf("  %-12s %s\n", "Status:", task.Status)
	if task.ReviewReason != models.ReviewNone {
		fmt.Printf("  %-12s %s\n", "Reason:", task.ReviewReason)
	}
	if task.SpecID != "" {
		fmt.Printf("  %-12s %s\n", "Spec:", task.SpecID)
	}
	if task.ProjectID != "" {
		fmt.Printf("  %-12s %s\n", "Project:", task.ProjectID)
	}
	fmt.Printf("  %-12s %s\n", "Source:", task.Metadata.SourceType)
	fmt.Printf("  %-12s %s (%d%% phase, %d%% overall)\n", "Progress:",
		task.ExecutionProgress.Phase,
		task.ExecutionProgress.PhaseProgress,
		task.ExecutionProgress.OverallProgress)
	fmt.Printf("  %-12s %s\n", "Updated:", task.Updated.Format("2006-01-02 15:04 UTC"))

	if len(task.Subtasks) > 0 {
		fmt.Println()
		fmt.Println("  Subtasks:")
		for _, st := range task.Subtasks {
			fmt.Printf("    [%s] %s  %s\n", subtaskMark(st.Status), st.ID, st.Title)
		}
	}

	if len(task.Logs) > 0 {
		fmt.Println()
		fmt.Println("  Recent log:")
		logs := task.Logs
		if len(logs) > 10 {
			logs = logs[len(logs)-10:]
		}
		for _, line := range logs {
			fmt.Printf("    %s\n", strings.TrimRight(line, "\n"))
		}
	}
}

func subtaskMark(status models.SubtaskStatus) string {
	switch status {
	case models.SubtaskCompleted:
		return "x"
	case models.SubtaskFailed:
		return "!"
	case models.SubtaskInProgress:
		return ">"
	default:
		return " "
	}
}

func init() {
	tasksCmd.Flags().StringVar(&tasksProjectFlag, "project", "", "Filter by project ID")
	tasksCmd.Flags().StringVar(&tasksStatusFlag, "status", "", "Filter by status (backlog, in_progress, ai_review, human_review, done)")
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(showCmd)
}
