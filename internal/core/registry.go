package core

import (
	"sync"
	"time"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// Clock supplies the current time. Injected so registry mutations are
// deterministic under test.
type Clock func() time.Time

// TaskObserver receives a copy of every task the registry changes.
// Surfaces (console, snapshot store, notifier) subscribe through it.
type TaskObserver func(task models.Task)

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	SpecID      *string
	Title       *string
	Description *string
	ProjectID   *string
	Metadata    *models.TaskMetadata
}

// ProgressPatch is a partial execution-progress update. Nil fields keep
// their current value; no smoothing or clamping is applied.
type ProgressPatch struct {
	Phase           *models.AgentPhase
	PhaseProgress   *int
	OverallProgress *int
}

// Registry is the in-memory collection of tasks, indexed by both the
// task ID assigned at creation and the agent-assigned spec ID. Callers
// are inconsistent about which identifier they hold, so every mutation
// accepts either; the dual-identity quirk lives here and nowhere else.
//
// Mutations are synchronous in-memory updates. Unmatched identifiers are
// silent no-ops; callers that need to distinguish use Get first.
type Registry struct {
	mu       sync.Mutex
	tasks    map[string]*models.Task // backing store, keyed by task ID
	bySpecID map[string]string       // spec ID -> task ID
	clock    Clock
	observer TaskObserver
}

// NewRegistry creates an empty registry. clock may be nil, in which case
// time.Now is used. observer may be nil.
func NewRegistry(clock Clock, observer TaskObserver) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		tasks:    make(map[string]*models.Task),
		bySpecID: make(map[string]string),
		clock:    clock,
		observer: observer,
	}
}

// UpsertMany replaces the entire collection, used for the initial load
// from the snapshot store.
func (r *Registry) UpsertMany(tasks []models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = make(map[string]*models.Task, len(tasks))
	r.bySpecID = make(map[string]string, len(tasks))
	for _, t := range tasks {
		task := t
		r.tasks[task.ID] = &task
		if task.SpecID != "" {
			r.bySpecID[task.SpecID] = task.ID
		}
	}
}

// Upsert inserts or replaces a single task, reindexing its spec ID.
func (r *Registry) Upsert(task models.Task) {
	r.mu.Lock()
	if existing, ok := r.tasks[task.ID]; ok && existing.SpecID != "" {
		delete(r.bySpecID, existing.SpecID)
	}
	stored := task
	r.tasks[task.ID] = &stored
	if task.SpecID != "" {
		r.bySpecID[task.SpecID] = task.ID
	}
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(task)
	}
}

// Get returns a copy of the task matched by either identifier.
func (r *Registry) Get(idOrSpecID string) (models.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task := r.lookup(idOrSpecID)
	if task == nil {
		return models.Task{}, false
	}
	return *task, true
}

// List returns copies of all tasks, optionally filtered by project.
func (r *Registry) List(projectID string) []models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Task
	for _, task := range r.tasks {
		if projectID == "" || task.ProjectID == projectID {
			out = append(out, *task)
		}
	}
	return out
}

// Patch shallow-merges the non-nil fields of p into the matched task.
func (r *Registry) Patch(idOrSpecID string, p TaskPatch) {
	r.mutate(idOrSpecID, func(task *models.Task) {
		if p.SpecID != nil && *p.SpecID != task.SpecID {
			if task.SpecID != "" {
				delete(r.bySpecID, task.SpecID)
			}
			task.SpecID = *p.SpecID
			if task.SpecID != "" {
				r.bySpecID[task.SpecID] = task.ID
			}
		}
		if p.Title != nil {
			task.Title = *p.Title
		}
		if p.Description != nil {
			task.Description = *p.Description
		}
		if p.ProjectID != nil {
			task.ProjectID = *p.ProjectID
		}
		if p.Metadata != nil {
			task.Metadata = *p.Metadata
		}
	})
}

// SetStatus sets the task status directly, bypassing the derivation
// engine. This is reserved for operator actions and recovery; a
// transition to backlog also resets execution progress to idle.
func (r *Registry) SetStatus(idOrSpecID string, status models.TaskStatus) {
	r.mutate(idOrSpecID, func(task *models.Task) {
		task.Status = status
		if status == models.StatusBacklog {
			task.ExecutionProgress = models.IdleProgress()
		}
	})
}

// ApplyPlan runs the derivation engine against the matched task and
// merges its projection. The plan must already be validated; malformed
// plans are skipped upstream.
func (r *Registry) ApplyPlan(idOrSpecID string, plan models.ImplementationPlan) {
	r.mutate(idOrSpecID, func(task *models.Task) {
		d := DeriveTaskState(*task, plan)
		task.Status = d.Status
		task.ReviewReason = d.ReviewReason
		task.Subtasks = d.Subtasks
		task.Title = d.Title
	})
}

// MergeProgress merges p into the task's execution progress, field by
// field, last write wins. A task with no prior progress starts from the
// idle zero state before the merge.
func (r *Registry) MergeProgress(idOrSpecID string, p ProgressPatch) {
	r.mutate(idOrSpecID, func(task *models.Task) {
		if task.ExecutionProgress.Phase == "" {
			task.ExecutionProgress = models.IdleProgress()
		}
		if p.Phase != nil {
			task.ExecutionProgress.Phase = *p.Phase
		}
		if p.PhaseProgress != nil {
			task.ExecutionProgress.PhaseProgress = *p.PhaseProgress
		}
		if p.OverallProgress != nil {
			task.ExecutionProgress.OverallProgress = *p.OverallProgress
		}
	})
}

// AppendLog appends one line to the task's log. Logs are append-only and
// never reordered or deduplicated.
func (r *Registry) AppendLog(idOrSpecID string, line string) {
	r.mutate(idOrSpecID, func(task *models.Task) {
		task.Logs = append(task.Logs, line)
	})
}

// lookup resolves either identifier to the backing task. Callers must
// hold the mutex.
func (r *Registry) lookup(idOrSpecID string) *models.Task {
	if task, ok := r.tasks[idOrSpecID]; ok {
		return task
	}
	if id, ok := r.bySpecID[idOrSpecID]; ok {
		return r.tasks[id]
	}
	return nil
}

// mutate applies fn to the matched task, refreshes its update time, and
// notifies the observer. Unmatched identifiers are no-ops.
func (r *Registry) mutate(idOrSpecID string, fn func(*models.Task)) {
	r.mu.Lock()
	task := r.lookup(idOrSpecID)
	if task == nil {
		r.mu.Unlock()
		return
	}
	fn(task)
	task.Updated = r.clock()
	snapshot := *task
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}
