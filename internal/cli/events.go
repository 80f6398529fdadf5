package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/taskdeck/internal/observability"
)

var (
	eventsTypeFlag  string
	eventsLevelFlag string
	eventsSinceFlag string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the coordinator event log",
	Long: `Read the append-only event log and print matching events.

Filter with --type (e.g. task.started, qa.answer_submitted), --level
(INFO, WARN) and --since (RFC3339 timestamp or durations like 2h, 30m).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not initialized")
		}

		filter := observability.EventFilter{
			Type:  eventsTypeFlag,
			Level: eventsLevelFlag,
		}
		if eventsSinceFlag != "" {
			since, err := parseSince(eventsSinceFlag)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			filter.Since = &since
		}

		events, err := EventLog.Read(filter)
		if err != nil {
			return fmt.Errorf("reading event log: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No matching events.")
			return nil
		}

		for _, e := range events {
			line := fmt.Sprintf("%s  %-5s %s", e.Time.Format("2006-01-02 15:04:05"), e.Level, e.Type)
			if task, ok := e.Data["task"]; ok {
				line += fmt.Sprintf("  task=%v", task)
			}
			if spec, ok := e.Data["spec"]; ok {
				line += fmt.Sprintf("  spec=%v", spec)
			}
			fmt.Println(line)
		}
		return nil
	},
}

// parseSince accepts an RFC3339 timestamp or a relative duration like
// "2h" or "30m" and returns the corresponding point in time.
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 timestamp or duration, got %q", s)
	}
	return time.Now().UTC().Add(-d), nil
}

func init() {
	eventsCmd.Flags().StringVar(&eventsTypeFlag, "type", "", "Filter by event type")
	eventsCmd.Flags().StringVar(&eventsLevelFlag, "level", "", "Filter by level (INFO, WARN, ERROR)")
	eventsCmd.Flags().StringVar(&eventsSinceFlag, "since", "", "Only events after this time (RFC3339 or duration like 2h)")
	rootCmd.AddCommand(eventsCmd)
}
