package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, start, stop, update, recover)",
	Long: `Unified task management commands.

Create new tasks, launch and stop agent runs, edit task fields, set
status directly, and recover tasks whose agent died.`,
}

var (
	taskCreateDescription string
	taskCreateProject     string
	taskCreateSource      string
	taskCreateDraft       bool
	taskCreateFromDraft   bool
)

var taskCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new task in backlog",
	Long: `Create a new task with the given title.

With --draft the composition is saved locally instead of creating the
task, so it survives a restart; --from-draft creates the task from the
saved draft (explicit flags override draft fields) and clears it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		title := ""
		if len(args) > 0 {
			title = args[0]
		}
		description := taskCreateDescription
		project := taskCreateProject
		source := models.SourceType(taskCreateSource)

		if taskCreateFromDraft {
			if Drafts == nil {
				return fmt.Errorf("draft store not initialized")
			}
			draft, err := Drafts.Load()
			if err != nil {
				return fmt.Errorf("loading draft: %w", err)
			}
			if draft == nil {
				return fmt.Errorf("no saved draft found")
			}
			if title == "" {
				title = draft.Title
			}
			if description == "" {
				description = draft.Description
			}
			if project == "" {
				project = draft.ProjectID
			}
			if source == "" {
				source = draft.SourceType
			}
		}

		if taskCreateDraft {
			if Drafts == nil {
				return fmt.Errorf("draft store not initialized")
			}
			draft := models.TaskDraft{
				Title:       title,
				Description: description,
				ProjectID:   project,
				SourceType:  source,
				SavedAt:     time.Now().UTC(),
			}
			if err := Drafts.Save(draft); err != nil {
				return fmt.Errorf("saving draft: %w", err)
			}
			fmt.Println("Draft saved. Create the task later with: tdk task create --from-draft")
			return nil
		}

		task, err := Lifecycle.CreateTask(title, description, project, source)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		if taskCreateFromDraft && Drafts != nil {
			if err := Drafts.Clear(); err != nil {
				fmt.Printf("warning: clearing draft: %v\n", err)
			}
		}

		fmt.Printf("Created %s: %s\n", task.ID, task.Title)
		return nil
	},
}

var (
	taskStartParallel bool
	taskStartWorkers  int
)

var taskStartCmd = &cobra.Command{
	Use:   "start <task>",
	Short: "Launch the coding agent for a task",
	Long: `Launch the agent run for a task and move it to in_progress.

With --parallel the agent runs independent subtasks concurrently;
--workers caps the worker count.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		opts := core.StartOpts{Parallel: taskStartParallel, Workers: taskStartWorkers}
		if err := Lifecycle.StartTask(args[0], opts); err != nil {
			return fmt.Errorf("starting task: %w", err)
		}
		fmt.Printf("Task %s started.\n", args[0])
		return nil
	},
}

var taskStopCmd = &cobra.Command{
	Use:   "stop <task>",
	Short: "Stop the agent run and return the task to backlog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		if err := Lifecycle.StopTask(args[0]); err != nil {
			return fmt.Errorf("stopping task: %w", err)
		}
		fmt.Printf("Task %s stopped and returned to backlog.\n", args[0])
		return nil
	},
}

var taskSetStatusCmd = &cobra.Command{
	Use:   "set-status <task> <status>",
	Short: "Set a task's status directly",
	Long: `Set a task's status without going through derivation.

Meant for explicit operator actions such as approving a review
(set-status TASK-042 done). Valid statuses: backlog, in_progress,
ai_review, human_review, done.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		if err := Lifecycle.UpdateTaskStatus(args[0], models.TaskStatus(args[1])); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		fmt.Printf("Task %s status set to %s.\n", args[0], args[1])
		return nil
	},
}

var (
	taskUpdateTitle       string
	taskUpdateDescription string
)

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task>",
	Short: "Edit a task's title or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}
		if taskUpdateTitle == "" && taskUpdateDescription == "" {
			return fmt.Errorf("nothing to update: provide --title or --description")
		}

		opts := core.UpdateOpts{}
		if taskUpdateTitle != "" {
			opts.Title = &taskUpdateTitle
		}
		if taskUpdateDescription != "" {
			opts.Description = &taskUpdateDescription
		}

		if err := Lifecycle.UpdateTask(args[0], opts); err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		fmt.Printf("Task %s updated.\n", args[0])
		return nil
	},
}

var (
	taskRecoverStatus  string
	taskRecoverRestart bool
)

var taskRecoverCmd = &cobra.Command{
	Use:   "recover <task>",
	Short: "Recover a task whose agent died or stalled",
	Long: `Repair a stuck task by moving it to a consistent status.

Without --status the target is re-derived from the task's own subtask
state; a task that would remain in_progress falls back to backlog.
With --restart the agent is relaunched when the task lands in backlog.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle service not initialized")
		}

		result, err := Lifecycle.RecoverStuckTask(args[0], core.RecoverOpts{
			TargetStatus: models.TaskStatus(taskRecoverStatus),
			AutoRestart:  taskRecoverRestart,
		})
		if err != nil {
			return fmt.Errorf("recovering task: %w", err)
		}
		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreateDescription, "description", "", "Task description")
	taskCreateCmd.Flags().StringVar(&taskCreateProject, "project", "", "Project ID")
	taskCreateCmd.Flags().StringVar(&taskCreateSource, "source", "", "Task source (manual, automated)")
	taskCreateCmd.Flags().BoolVar(&taskCreateDraft, "draft", false, "Save as a draft instead of creating")
	taskCreateCmd.Flags().BoolVar(&taskCreateFromDraft, "from-draft", false, "Create from the saved draft")

	taskStartCmd.Flags().BoolVar(&taskStartParallel, "parallel", false, "Run independent subtasks concurrently")
	taskStartCmd.Flags().IntVar(&taskStartWorkers, "workers", 0, "Worker count when running in parallel")

	taskUpdateCmd.Flags().StringVar(&taskUpdateTitle, "title", "", "New task title")
	taskUpdateCmd.Flags().StringVar(&taskUpdateDescription, "description", "", "New task description")

	taskRecoverCmd.Flags().StringVar(&taskRecoverStatus, "status", "", "Explicit status to recover to")
	taskRecoverCmd.Flags().BoolVar(&taskRecoverRestart, "restart", false, "Restart the agent after recovery to backlog")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskStopCmd)
	taskCmd.AddCommand(taskSetStatusCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskRecoverCmd)
	rootCmd.AddCommand(taskCmd)
}
