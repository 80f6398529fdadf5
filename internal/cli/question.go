package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/taskdeck/internal/core"
)

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "View and answer agent clarification questions",
	Long: `Commands for the QA clarification handshake.

When the agent's QA phase hits an ambiguity it cannot resolve, it pauses
and leaves a question for the operator. "question show" displays it;
"question answer" submits your answer and resumes the agent.`,
}

var questionShowCmd = &cobra.Command{
	Use:   "show <task>",
	Short: "Show the pending question for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil || Channel == nil {
			return fmt.Errorf("clarification channel not initialized")
		}

		task, err := Lifecycle.GetTask(args[0])
		if err != nil {
			return fmt.Errorf("fetching task: %w", err)
		}

		question, err := Channel.GetPendingQuestion(task)
		if err != nil {
			return fmt.Errorf("reading pending question: %w", err)
		}
		if question == nil {
			fmt.Printf("No pending question for %s.\n", task.ID)
			return nil
		}

		if question.Context != "" {
			fmt.Printf("Context:  %s\n", question.Context)
		}
		fmt.Printf("Question: %s\n", question.Question)
		if question.Reason != "" {
			fmt.Printf("Reason:   %s\n", question.Reason)
		}
		if len(question.Options) > 0 {
			fmt.Println("Options:")
			for i, opt := range question.Options {
				fmt.Printf("  %d. %s\n", i+1, opt)
			}
		}
		if !question.Timestamp.IsZero() {
			fmt.Printf("\nAsked at %s\n", question.Timestamp.Format("2006-01-02 15:04 UTC"))
		}
		return nil
	},
}

var questionAnswerFile string

var questionAnswerCmd = &cobra.Command{
	Use:   "answer <task> [answer...]",
	Short: "Answer the pending question and resume the agent",
	Long: `Submit an answer to the task's pending clarification question.

The answer can be given inline as arguments or read from a file with
--file. Submitting persists the answer in the spec directory, flips the
plan's QA flag to resuming, and nudges the agent to continue.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil || Channel == nil {
			return fmt.Errorf("clarification channel not initialized")
		}

		task, err := Lifecycle.GetTask(args[0])
		if err != nil {
			return fmt.Errorf("fetching task: %w", err)
		}

		answer := strings.Join(args[1:], " ")
		if questionAnswerFile != "" {
			data, err := os.ReadFile(questionAnswerFile)
			if err != nil {
				return fmt.Errorf("reading answer file: %w", err)
			}
			answer = string(data)
		}

		if err := Channel.SubmitAnswer(task, answer); err != nil {
			if errors.Is(err, core.ErrEmptyAnswer) {
				return fmt.Errorf("answer must not be empty")
			}
			return fmt.Errorf("submitting answer: %w", err)
		}

		fmt.Printf("Answer submitted, task %s resuming.\n", task.ID)
		return nil
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List all tasks with a pending question",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil || Channel == nil {
			return fmt.Errorf("clarification channel not initialized")
		}

		var count int
		for _, task := range Lifecycle.ListTasks("") {
			question, err := Channel.GetPendingQuestion(task)
			if err != nil {
				return fmt.Errorf("reading pending question for %s: %w", task.ID, err)
			}
			if question == nil {
				continue
			}
			count++
			fmt.Printf("%s  %s\n  %s\n\n", task.ID, task.Title, question.Question)
		}
		if count == 0 {
			fmt.Println("No pending questions.")
		}
		return nil
	},
}

func init() {
	questionAnswerCmd.Flags().StringVar(&questionAnswerFile, "file", "", "Read the answer from a file")

	questionCmd.AddCommand(questionShowCmd)
	questionCmd.AddCommand(questionAnswerCmd)
	rootCmd.AddCommand(questionCmd)
	rootCmd.AddCommand(questionsCmd)
}
