package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

var statusFilter string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display tasks grouped by status",
	Long: `Display all tasks organized by their lifecycle status.

Optionally filter to a single status using --filter (e.g. --filter human_review).
Output is formatted as a table with columns: ID, Spec, Reason, Title.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		tasks := Lifecycle.ListTasks("")

		if statusFilter != "" {
			status := models.TaskStatus(statusFilter)
			var group []models.Task
			for _, t := range tasks {
				if t.Status == status {
					group = append(group, t)
				}
			}
			printStatusGroup(string(status), group)
			return nil
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		// Group tasks by status in lifecycle order.
		statusOrder := []models.TaskStatus{
			models.StatusInProgress,
			models.StatusAIReview,
			models.StatusHumanReview,
			models.StatusBacklog,
			models.StatusDone,
		}

		grouped := make(map[models.TaskStatus][]models.Task)
		for _, task := range tasks {
			grouped[task.Status] = append(grouped[task.Status], task)
		}

		for _, status := range statusOrder {
			if group, ok := grouped[status]; ok && len(group) > 0 {
				printStatusGroup(string(status), group)
				fmt.Println()
			}
		}

		return nil
	},
}

// printStatusGroup prints a table of tasks under a status heading.
func printStatusGroup(status string, tasks []models.Task) {
	fmt.Printf("== %s (%d) ==\n", strings.ToUpper(status), len(tasks))
	fmt.Printf("  %-10s %-16s %-10s %s\n", "ID", "SPEC", "REASON", "TITLE")
	fmt.Printf("  %-10s %-16s %-10s %s\n", "----", "----", "------", "-----")
	for _, task := range tasks {
		fmt.Printf("  %-10s %-16s %-10s %s\n", task.ID, task.SpecID, task.ReviewReason, task.Title)
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusFilter, "filter", "", "Filter by status (backlog, in_progress, ai_review, human_review, done)")
	rootCmd.AddCommand(statusCmd)
}
