package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/internal/storage"
	"github.com/valter-silva-au/taskdeck/pkg/models"
)

type cliSupervisorMock struct {
	started []string
	stopped []string
	resumed []string
}

func (m *cliSupervisorMock) StartAgent(task models.Task, _ core.StartOpts) error {
	m.started = append(m.started, task.ID)
	return nil
}

func (m *cliSupervisorMock) StopAgent(task models.Task) error {
	m.stopped = append(m.stopped, task.ID)
	return nil
}

func (m *cliSupervisorMock) ResumeQA(task models.Task) error {
	m.resumed = append(m.resumed, task.ID)
	return nil
}

type cliIDGenMock struct{ next string }

func (m *cliIDGenMock) GenerateTaskID() (string, error) { return m.next, nil }

// setupServices wires the package-level service vars against a real
// registry and temp-dir backed stores, and restores the originals when
// the test finishes.
func setupServices(t *testing.T) (*cliSupervisorMock, string) {
	t.Helper()

	origLifecycle := Lifecycle
	origChannel := Channel
	origRegistry := Registry
	origDrafts := Drafts
	t.Cleanup(func() {
		Lifecycle = origLifecycle
		Channel = origChannel
		Registry = origRegistry
		Drafts = origDrafts
	})

	projectDir := t.TempDir()
	dirs := storage.NewSpecDirs(projectDir)
	plans := storage.NewPlanStore(dirs)

	registry := core.NewRegistry(nil, nil)
	registry.UpsertMany([]models.Task{
		{
			ID:       "TASK-001",
			SpecID:   "001-auth-flow",
			Title:    "Auth flow",
			Status:   models.StatusInProgress,
			Metadata: models.TaskMetadata{SourceType: models.SourceAutomated},
			Created:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			Updated:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:      "TASK-002",
			Title:   "Fix login",
			Status:  models.StatusBacklog,
			Created: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
			Updated: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		},
	})

	supervisor := &cliSupervisorMock{}
	Registry = registry
	Lifecycle = core.NewLifecycle(registry, supervisor, &cliIDGenMock{next: "TASK-003"}, nil, nil)
	Channel = core.NewClarificationChannel(dirs, plans, supervisor, registry, nil, nil)
	Drafts = storage.NewDraftStore(filepath.Join(projectDir, ".taskdeck"))

	return supervisor, projectDir
}

// seedQuestion writes a pending question and its plan flag into the spec
// directory so the clarification channel reports it.
func seedQuestion(t *testing.T, projectDir, specID string) {
	t.Helper()
	specDir := filepath.Join(projectDir, ".taskdeck", "specs", specID)
	if err := os.MkdirAll(specDir, 0o755); err != nil {
		t.Fatalf("creating spec dir: %v", err)
	}
	plan := `{"phases":[],"qa_signoff":{"status":"question_pending","qa_session":1}}`
	if err := os.WriteFile(filepath.Join(specDir, storage.PlanFileName), []byte(plan), 0o644); err != nil {
		t.Fatalf("writing plan: %v", err)
	}
	question := "## Context\nToken storage.\n## Question\nWhere should refresh tokens live?\n## Options\n1. Cookie\n2. Local storage\n"
	if err := os.WriteFile(filepath.Join(specDir, storage.QuestionFileName), []byte(question), 0o644); err != nil {
		t.Fatalf("writing question: %v", err)
	}
}
