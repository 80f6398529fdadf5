package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// ErrTaskNotFound reports an operation addressed to an unknown task.
// Nothing is mutated when it is returned.
var ErrTaskNotFound = errors.New("task not found")

// StartOpts tunes how the agent run for a task is launched.
type StartOpts struct {
	Parallel bool
	Workers  int
}

// RecoverOpts controls stuck-task recovery. An empty TargetStatus asks
// the service to pick one from the task's own subtasks.
type RecoverOpts struct {
	TargetStatus models.TaskStatus
	AutoRestart  bool
}

// RecoverResult reports what recovery did.
type RecoverResult struct {
	NewStatus     models.TaskStatus `json:"newStatus"`
	Message       string            `json:"message"`
	AutoRestarted bool              `json:"autoRestarted,omitempty"`
}

// UpdateOpts is the operator-editable slice of a task. Nil fields are
// left untouched.
type UpdateOpts struct {
	Title       *string
	Description *string
	Metadata    *models.TaskMetadata
}

// AgentSupervisor is the subset of the integration supervisor the
// lifecycle service needs to launch and stop agent runs.
type AgentSupervisor interface {
	StartAgent(task models.Task, opts StartOpts) error
	StopAgent(task models.Task) error
}

// Lifecycle implements the operator-facing task operations on top of
// the registry. Dependencies are injected; supervisor and events may be
// nil for read-only deployments.
type Lifecycle struct {
	registry   *Registry
	supervisor AgentSupervisor
	idGen      TaskIDGenerator
	events     EventLogger
	clock      Clock
}

// NewLifecycle creates the lifecycle service.
func NewLifecycle(registry *Registry, supervisor AgentSupervisor, idGen TaskIDGenerator, events EventLogger, clock Clock) *Lifecycle {
	if clock == nil {
		clock = time.Now
	}
	return &Lifecycle{
		registry:   registry,
		supervisor: supervisor,
		idGen:      idGen,
		events:     events,
		clock:      clock,
	}
}

// ListTasks returns all tasks, optionally filtered by project.
func (l *Lifecycle) ListTasks(projectID string) []models.Task {
	return l.registry.List(projectID)
}

// GetTask returns the task matched by either identifier.
func (l *Lifecycle) GetTask(idOrSpecID string) (models.Task, error) {
	task, ok := l.registry.Get(idOrSpecID)
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, idOrSpecID)
	}
	return task, nil
}

// CreateTask registers a new task in backlog with no subtasks. The spec
// ID stays empty until the agent creates a spec directory and the
// watcher patches it in.
func (l *Lifecycle) CreateTask(title, description, projectID string, source models.SourceType) (models.Task, error) {
	if title == "" {
		return models.Task{}, errors.New("creating task: title must not be empty")
	}
	if source == "" {
		source = models.SourceManual
	}

	id, err := l.idGen.GenerateTaskID()
	if err != nil {
		return models.Task{}, fmt.Errorf("creating task: %w", err)
	}

	now := l.clock()
	task := models.Task{
		ID:                id,
		Title:             title,
		Description:       description,
		ProjectID:         projectID,
		Status:            models.StatusBacklog,
		ExecutionProgress: models.IdleProgress(),
		Metadata:          models.TaskMetadata{SourceType: source},
		Created:           now,
		Updated:           now,
	}
	l.registry.Upsert(task)
	l.logEvent("task.created", map[string]any{"task": task.ID, "title": title})
	return task, nil
}

// StartTask launches the agent run for a task and moves it to
// in_progress. The supervisor failure path leaves the task untouched.
func (l *Lifecycle) StartTask(idOrSpecID string, opts StartOpts) error {
	task, err := l.GetTask(idOrSpecID)
	if err != nil {
		return err
	}
	if l.supervisor == nil {
		return fmt.Errorf("starting task %s: no agent supervisor configured", task.ID)
	}
	if err := l.supervisor.StartAgent(task, opts); err != nil {
		return fmt.Errorf("starting task %s: %w", task.ID, err)
	}
	l.registry.SetStatus(task.ID, models.StatusInProgress)
	l.logEvent("task.started", map[string]any{"task": task.ID, "parallel": opts.Parallel, "workers": opts.Workers})
	return nil
}

// StopTask stops the agent run and returns the task to backlog, which
// also resets its execution progress. An outstanding QA question is not
// invalidated; the agent cleans it up if the task is restarted.
func (l *Lifecycle) StopTask(idOrSpecID string) error {
	task, err := l.GetTask(idOrSpecID)
	if err != nil {
		return err
	}
	if l.supervisor != nil {
		if err := l.supervisor.StopAgent(task); err != nil {
			l.logEvent("task.stop_signal_failed", map[string]any{"task": task.ID, "error": err.Error()})
		}
	}
	l.registry.SetStatus(task.ID, models.StatusBacklog)
	l.logEvent("task.stopped", map[string]any{"task": task.ID})
	return nil
}

// UpdateTaskStatus sets the task status directly. Reserved for explicit
// operator actions such as approving a review.
func (l *Lifecycle) UpdateTaskStatus(idOrSpecID string, status models.TaskStatus) error {
	if !models.ValidTaskStatus(status) {
		return fmt.Errorf("updating task status: unknown status %q", status)
	}
	task, err := l.GetTask(idOrSpecID)
	if err != nil {
		return err
	}
	l.registry.SetStatus(task.ID, status)
	l.logEvent("task.status_changed", map[string]any{"task": task.ID, "status": string(status)})
	return nil
}

// UpdateTask edits the operator-owned task fields.
func (l *Lifecycle) UpdateTask(idOrSpecID string, opts UpdateOpts) error {
	task, err := l.GetTask(idOrSpecID)
	if err != nil {
		return err
	}
	l.registry.Patch(task.ID, TaskPatch{
		Title:       opts.Title,
		Description: opts.Description,
		Metadata:    opts.Metadata,
	})
	return nil
}

// RecoverStuckTask repairs a task whose agent died or stalled. Without
// an explicit target the new status is re-derived from the task's own
// subtasks through the same engine the watcher uses, so recovery can
// never invent a status the plan would not produce; a task that would
// still be in_progress falls back to backlog instead, since recovery
// exists precisely because nothing is progressing.
func (l *Lifecycle) RecoverStuckTask(idOrSpecID string, opts RecoverOpts) (RecoverResult, error) {
	task, err := l.GetTask(idOrSpecID)
	if err != nil {
		return RecoverResult{}, err
	}

	target := opts.TargetStatus
	if target == "" {
		d := DeriveTaskState(task, planFromSubtasks(task.Subtasks))
		target = d.Status
		if target == models.StatusInProgress {
			target = models.StatusBacklog
		}
	}
	if !models.ValidTaskStatus(target) {
		return RecoverResult{}, fmt.Errorf("recovering task %s: unknown status %q", task.ID, target)
	}

	l.registry.SetStatus(task.ID, target)
	result := RecoverResult{
		NewStatus: target,
		Message:   fmt.Sprintf("task %s recovered to %s", task.ID, target),
	}

	if opts.AutoRestart && target == models.StatusBacklog && l.supervisor != nil {
		if err := l.supervisor.StartAgent(task, StartOpts{}); err != nil {
			result.Message = fmt.Sprintf("task %s recovered to %s, restart failed: %v", task.ID, target, err)
		} else {
			l.registry.SetStatus(task.ID, models.StatusInProgress)
			result.NewStatus = models.StatusInProgress
			result.AutoRestarted = true
			result.Message = fmt.Sprintf("task %s recovered and restarted", task.ID)
		}
	}

	l.logEvent("task.recovered", map[string]any{"task": task.ID, "status": string(result.NewStatus)})
	return result, nil
}

// planFromSubtasks rebuilds a single-phase plan from a task's current
// subtasks, for re-derivation when the plan file is unavailable.
func planFromSubtasks(subtasks []models.Subtask) models.ImplementationPlan {
	phase := models.PlanPhase{}
	for _, st := range subtasks {
		phase.Subtasks = append(phase.Subtasks, models.PlanSubtask{
			ID:           st.ID,
			Description:  st.Description,
			Status:       st.Status,
			Files:        st.Files,
			Verification: st.Verification,
		})
	}
	return models.ImplementationPlan{Phases: []models.PlanPhase{phase}}
}

func (l *Lifecycle) logEvent(eventType string, data map[string]any) {
	if l.events != nil {
		_ = l.events.LogEvent(eventType, data)
	}
}
