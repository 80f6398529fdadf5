package core

import "github.com/valter-silva-au/taskdeck/pkg/models"

// Derivation is the immutable projection the derivation engine computes
// from a task and a freshly parsed plan. It never aliases the inputs.
type Derivation struct {
	Status       models.TaskStatus
	ReviewReason models.ReviewReason
	Subtasks     []models.Subtask
	Title        string
}

// DeriveTaskState converts an agent-authored plan into the task's
// authoritative status and review reason. It is the single source of
// truth for status rollup: the live registry and any persistence layer
// must both call it so the two can never diverge.
//
// The rules are evaluated in strict priority order; first match wins:
//
//  1. every subtask completed (non-empty list): manual tasks go to
//     human review with reason "completed", everything else to AI review
//  2. any subtask failed: human review with reason "errors"
//  3. any subtask in progress or completed: in progress
//  4. otherwise the task keeps its current status; an empty or
//     all-queued plan never forces a task backward
//
// The caller is responsible for validating the plan before invoking the
// engine; malformed plans must be skipped upstream, not passed in.
func DeriveTaskState(task models.Task, plan models.ImplementationPlan) Derivation {
	subtasks := plan.Flatten()

	title := task.Title
	if plan.FeatureName != "" {
		title = plan.FeatureName
	}

	d := Derivation{
		Status:       task.Status,
		ReviewReason: models.ReviewNone,
		Subtasks:     subtasks,
		Title:        title,
	}

	var completed, failed, inProgress int
	for _, st := range subtasks {
		switch st.Status {
		case models.SubtaskCompleted:
			completed++
		case models.SubtaskFailed:
			failed++
		case models.SubtaskInProgress:
			inProgress++
		}
	}

	switch {
	case len(subtasks) > 0 && completed == len(subtasks):
		if task.Metadata.SourceType == models.SourceManual {
			d.Status = models.StatusHumanReview
			d.ReviewReason = models.ReviewCompleted
		} else {
			d.Status = models.StatusAIReview
		}
	case failed > 0:
		d.Status = models.StatusHumanReview
		d.ReviewReason = models.ReviewErrors
	case inProgress > 0 || completed > 0:
		d.Status = models.StatusInProgress
	default:
		// Empty or all-queued plan: status and reason unchanged so the
		// engine never forces a task backward.
		d.ReviewReason = task.ReviewReason
	}

	return d
}
