package core

import (
	"testing"
	"time"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

func fixedClock() Clock {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func seedRegistry(t *testing.T, observer TaskObserver) *Registry {
	t.Helper()
	r := NewRegistry(fixedClock(), observer)
	r.UpsertMany([]models.Task{
		{
			ID:       "task-1",
			SpecID:   "001-auth-flow",
			Title:    "Auth flow",
			Status:   models.StatusBacklog,
			Metadata: models.TaskMetadata{SourceType: models.SourceAutomated},
		},
		{
			ID:     "task-2",
			Title:  "No spec yet",
			Status: models.StatusBacklog,
		},
	})
	return r
}

func TestRegistryLookupByEitherIdentifier(t *testing.T) {
	r := seedRegistry(t, nil)

	byID, ok := r.Get("task-1")
	if !ok {
		t.Fatal("lookup by id failed")
	}
	bySpec, ok := r.Get("001-auth-flow")
	if !ok {
		t.Fatal("lookup by spec id failed")
	}
	if byID.ID != bySpec.ID {
		t.Errorf("lookups disagree: %q vs %q", byID.ID, bySpec.ID)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("lookup of unknown identifier succeeded")
	}
}

func TestRegistryUnmatchedMutationsAreNoOps(t *testing.T) {
	r := seedRegistry(t, nil)

	r.SetStatus("missing", models.StatusDone)
	r.AppendLog("missing", "line")
	r.ApplyPlan("missing", planOf(models.SubtaskCompleted))

	for _, id := range []string{"task-1", "task-2"} {
		task, _ := r.Get(id)
		if task.Status != models.StatusBacklog {
			t.Errorf("task %s status changed to %q by an unmatched mutation", id, task.Status)
		}
	}
}

func TestRegistrySetStatusResetsProgressOnBacklog(t *testing.T) {
	r := seedRegistry(t, nil)
	phase := models.PhaseCoding
	progress := 80
	r.MergeProgress("task-1", ProgressPatch{Phase: &phase, OverallProgress: &progress})
	r.SetStatus("task-1", models.StatusInProgress)

	r.SetStatus("task-1", models.StatusBacklog)

	task, _ := r.Get("task-1")
	if task.ExecutionProgress != models.IdleProgress() {
		t.Errorf("progress = %+v, want idle reset", task.ExecutionProgress)
	}
}

func TestRegistrySetStatusKeepsProgressOtherwise(t *testing.T) {
	r := seedRegistry(t, nil)
	phase := models.PhaseQA
	r.MergeProgress("task-1", ProgressPatch{Phase: &phase})

	r.SetStatus("task-1", models.StatusHumanReview)

	task, _ := r.Get("task-1")
	if task.ExecutionProgress.Phase != models.PhaseQA {
		t.Errorf("phase = %q, progress reset outside a backlog transition", task.ExecutionProgress.Phase)
	}
}

func TestRegistryMergeProgressLastWriteWins(t *testing.T) {
	r := seedRegistry(t, nil)

	phase := models.PhaseSpec
	p1 := 40
	r.MergeProgress("task-1", ProgressPatch{Phase: &phase, PhaseProgress: &p1})

	p2 := 10 // callers are trusted; values may go backwards
	r.MergeProgress("task-1", ProgressPatch{PhaseProgress: &p2})

	task, _ := r.Get("task-1")
	if task.ExecutionProgress.Phase != models.PhaseSpec {
		t.Errorf("phase = %q, want spec", task.ExecutionProgress.Phase)
	}
	if task.ExecutionProgress.PhaseProgress != 10 {
		t.Errorf("phaseProgress = %d, want 10", task.ExecutionProgress.PhaseProgress)
	}
}

func TestRegistryApplyPlanEndToEnd(t *testing.T) {
	r := seedRegistry(t, nil)
	r.Patch("task-1", TaskPatch{Metadata: &models.TaskMetadata{SourceType: models.SourceManual}})

	r.ApplyPlan("001-auth-flow", planOf(models.SubtaskInProgress, models.SubtaskQueued))
	task, _ := r.Get("task-1")
	if task.Status != models.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", task.Status)
	}

	r.ApplyPlan("001-auth-flow", planOf(models.SubtaskCompleted, models.SubtaskFailed))
	task, _ = r.Get("task-1")
	if task.Status != models.StatusHumanReview || task.ReviewReason != models.ReviewErrors {
		t.Fatalf("derived (%q, %q), want (human_review, errors)", task.Status, task.ReviewReason)
	}

	r.ApplyPlan("001-auth-flow", planOf(models.SubtaskCompleted, models.SubtaskCompleted))
	task, _ = r.Get("task-1")
	if task.Status != models.StatusHumanReview || task.ReviewReason != models.ReviewCompleted {
		t.Fatalf("derived (%q, %q), want (human_review, completed) for a manual task", task.Status, task.ReviewReason)
	}
}

func TestRegistryPatchReindexesSpecID(t *testing.T) {
	r := seedRegistry(t, nil)

	specID := "002-new-spec"
	r.Patch("task-2", TaskPatch{SpecID: &specID})

	if _, ok := r.Get("002-new-spec"); !ok {
		t.Fatal("lookup by newly assigned spec id failed")
	}

	renamed := "003-renamed"
	r.Patch("task-2", TaskPatch{SpecID: &renamed})
	if _, ok := r.Get("002-new-spec"); ok {
		t.Error("stale spec id still resolves after rename")
	}
	if _, ok := r.Get("003-renamed"); !ok {
		t.Error("renamed spec id does not resolve")
	}
}

func TestRegistryAppendLogPreservesOrder(t *testing.T) {
	r := seedRegistry(t, nil)

	lines := []string{"first", "second", "second", "third"}
	for _, l := range lines {
		r.AppendLog("task-1", l)
	}

	task, _ := r.Get("task-1")
	if len(task.Logs) != len(lines) {
		t.Fatalf("logs = %d lines, want %d (no dedup)", len(task.Logs), len(lines))
	}
	for i, l := range lines {
		if task.Logs[i] != l {
			t.Errorf("logs[%d] = %q, want %q", i, task.Logs[i], l)
		}
	}
}

func TestRegistryMutationsRefreshUpdatedAndNotify(t *testing.T) {
	var notified []models.Task
	r := seedRegistry(t, func(task models.Task) {
		notified = append(notified, task)
	})

	r.SetStatus("task-1", models.StatusInProgress)

	task, _ := r.Get("task-1")
	if !task.Updated.Equal(fixedClock()()) {
		t.Errorf("updated = %v, want clock time", task.Updated)
	}
	if len(notified) != 1 || notified[0].Status != models.StatusInProgress {
		t.Errorf("observer saw %+v, want one in_progress notification", notified)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := seedRegistry(t, nil)

	task, _ := r.Get("task-1")
	task.Status = models.StatusDone

	again, _ := r.Get("task-1")
	if again.Status == models.StatusDone {
		t.Error("mutating a returned task leaked into the registry")
	}
}
