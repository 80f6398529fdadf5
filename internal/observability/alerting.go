package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
)

// Alert represents a triggered alert condition.
type Alert struct {
	TaskID      string        `json:"task_id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// TaskSource supplies the tasks to evaluate.
type TaskSource interface {
	List(projectID string) []models.Task
}

// QuestionSource reports the task's pending clarification question, if any.
type QuestionSource interface {
	GetPendingQuestion(task models.Task) (*models.QAQuestion, error)
}

// AlertEngine evaluates alert conditions against the live task set.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine flags two situations an operator should look at: tasks
// marked in_progress whose state has not moved within the stuck
// threshold (a dead or wedged agent), and clarification questions that
// have been waiting on an answer past the question threshold.
type alertEngine struct {
	tasks      TaskSource
	questions  QuestionSource
	thresholds models.AlertThresholdConfig
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine. now may be nil, in which case
// time.Now is used.
func NewAlertEngine(tasks TaskSource, questions QuestionSource, thresholds models.AlertThresholdConfig, now func() time.Time) AlertEngine {
	if now == nil {
		now = time.Now
	}
	return &alertEngine{
		tasks:      tasks,
		questions:  questions,
		thresholds: thresholds,
		now:        now,
	}
}

// Evaluate scans every task and returns the alerts that currently hold.
// A zero threshold disables the corresponding check.
func (e *alertEngine) Evaluate() ([]Alert, error) {
	now := e.now()
	stuckAfter := time.Duration(e.thresholds.StuckMinutes) * time.Minute
	questionAfter := time.Duration(e.thresholds.QuestionMinutes) * time.Minute

	var alerts []Alert
	for _, task := range e.tasks.List("") {
		if stuckAfter > 0 && task.Status == models.StatusInProgress {
			idle := now.Sub(task.Updated)
			if idle >= stuckAfter {
				alerts = append(alerts, Alert{
					TaskID:    task.ID,
					Condition: "task_stuck",
					Severity:  SeverityHigh,
					Message: fmt.Sprintf("task %s (%s) has shown no progress for %s",
						task.ID, task.Title, idle.Round(time.Minute)),
					TriggeredAt: now,
				})
			}
		}

		if questionAfter > 0 && e.questions != nil {
			question, err := e.questions.GetPendingQuestion(task)
			if err != nil {
				return nil, fmt.Errorf("checking pending question for %s: %w", task.ID, err)
			}
			if question != nil {
				waiting := now.Sub(question.Timestamp)
				if waiting >= questionAfter {
					alerts = append(alerts, Alert{
						TaskID:    task.ID,
						Condition: "question_unanswered",
						Severity:  SeverityMedium,
						Message: fmt.Sprintf("task %s (%s) has a question waiting %s for an answer",
							task.ID, task.Title, waiting.Round(time.Minute)),
						TriggeredAt: now,
					})
				}
			}
		}
	}
	return alerts, nil
}
