package internal

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/taskdeck/internal/cli"
	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/internal/storage"
	"github.com/valter-silva-au/taskdeck/pkg/models"
)

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()

	projectDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(projectDir, ".taskdeck"), 0o755); err != nil {
		t.Fatalf("creating data dir: %v", err)
	}

	a, err := NewApp(projectDir)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, projectDir
}

func TestNewApp_WiresServices(t *testing.T) {
	a, _ := newTestApp(t)

	if a.Lifecycle == nil || a.Channel == nil || a.Registry == nil {
		t.Error("expected core services to be wired")
	}
	if a.Supervisor == nil || a.PlanWatcher == nil {
		t.Error("expected integration services to be wired")
	}
	if a.AlertEngine == nil {
		t.Error("expected alert engine to be wired")
	}
	if a.Config == nil || a.Config.TaskIDPrefix != "TASK" {
		t.Errorf("unexpected config: %+v", a.Config)
	}

	// CLI package vars follow the app's services.
	if cli.Lifecycle != a.Lifecycle || cli.Channel != a.Channel {
		t.Error("expected CLI vars to point at the app services")
	}
}

func TestNewApp_PersistsTasksAcrossRestarts(t *testing.T) {
	a, projectDir := newTestApp(t)

	task, err := a.Lifecycle.CreateTask("Persisted task", "", "", models.SourceManual)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	a.Close()

	reopened, err := NewApp(projectDir)
	if err != nil {
		t.Fatalf("reopening app: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Lifecycle.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask after restart: %v", err)
	}
	if loaded.Title != "Persisted task" {
		t.Errorf("Title = %q", loaded.Title)
	}
	if loaded.Status != models.StatusBacklog {
		t.Errorf("Status = %s, want backlog", loaded.Status)
	}
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	projectDir := t.TempDir()
	dataDir := filepath.Join(projectDir, ".taskdeck")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("creating data dir: %v", err)
	}
	cfg := "task_id:\n  prefix: \"lowercase!\"\n"
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	_, err := NewApp(projectDir)
	if err == nil {
		t.Fatal("expected config validation error")
	}
	if !strings.Contains(err.Error(), "task_id.prefix") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveProjectDir_EnvOverride(t *testing.T) {
	t.Setenv("TDK_HOME", "/srv/deck")
	if got := ResolveProjectDir(); got != "/srv/deck" {
		t.Errorf("ResolveProjectDir = %q, want /srv/deck", got)
	}
}

func TestResolveProjectDir_WalksUpToDataDir(t *testing.T) {
	t.Setenv("TDK_HOME", "")

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".taskdeck"), 0o755); err != nil {
		t.Fatalf("creating data dir: %v", err)
	}
	nested := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("creating nested dir: %v", err)
	}

	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(orig)
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	got := ResolveProjectDir()
	// Resolve symlinks; on some systems TempDir returns a symlinked path.
	wantReal, _ := filepath.EvalSymlinks(root)
	gotReal, _ := filepath.EvalSymlinks(got)
	if gotReal != wantReal {
		t.Errorf("ResolveProjectDir = %q, want %q", got, root)
	}
}

// End-to-end: an agent-written plan and question flow through derivation
// and the clarification handshake against real files.
func TestApp_ClarificationRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("agent spawning uses POSIX process groups")
	}

	projectDir := t.TempDir()
	dataDir := filepath.Join(projectDir, ".taskdeck")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("creating data dir: %v", err)
	}
	// Agent command that exits immediately; extra args land in "$@".
	cfg := "agent:\n  command: sh\n  default_args: [\"-c\", \"true\", \"--\"]\n"
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	a, err := NewApp(projectDir)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer a.Close()

	task, err := a.Lifecycle.CreateTask("Auth flow", "", "", models.SourceAutomated)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	specID := "001-auth-flow"
	a.Registry.Patch(task.ID, core.TaskPatch{SpecID: &specID})

	// Agent pauses its QA phase with a question.
	specDir := filepath.Join(dataDir, "specs", specID)
	if err := os.MkdirAll(specDir, 0o755); err != nil {
		t.Fatalf("creating spec dir: %v", err)
	}
	plan := `{"phases":[{"name":"implementation","subtasks":[]}],"qa_signoff":{"status":"question_pending","qa_session":1}}`
	if err := os.WriteFile(filepath.Join(specDir, storage.PlanFileName), []byte(plan), 0o644); err != nil {
		t.Fatalf("writing plan: %v", err)
	}
	question := "## Question\nWhich token lifetime should QA assume?\n"
	if err := os.WriteFile(filepath.Join(specDir, storage.QuestionFileName), []byte(question), 0o644); err != nil {
		t.Fatalf("writing question: %v", err)
	}

	task, err = a.Lifecycle.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	pending, err := a.Channel.GetPendingQuestion(task)
	if err != nil {
		t.Fatalf("GetPendingQuestion: %v", err)
	}
	if pending == nil || !strings.Contains(pending.Question, "token lifetime") {
		t.Fatalf("unexpected question: %+v", pending)
	}

	if err := a.Channel.SubmitAnswer(task, "Assume 15 minutes."); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	// Answer persisted, question consumed, flag flipped, task resumed.
	answer, err := os.ReadFile(filepath.Join(specDir, storage.AnswerFileName))
	if err != nil {
		t.Fatalf("reading answer: %v", err)
	}
	if !strings.Contains(string(answer), "Assume 15 minutes.") {
		t.Errorf("answer = %q", answer)
	}
	if _, err := os.Stat(filepath.Join(specDir, storage.QuestionFileName)); !os.IsNotExist(err) {
		t.Error("expected question file to be consumed")
	}

	loadedPlan, err := a.Plans.LoadPlan(specID)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if loadedPlan.QASignoff == nil || loadedPlan.QASignoff.Status != models.QAResuming {
		t.Errorf("qa_signoff = %+v, want resuming", loadedPlan.QASignoff)
	}

	updated, _ := a.Registry.Get(task.ID)
	if updated.Status != models.StatusInProgress {
		t.Errorf("Status = %s, want in_progress", updated.Status)
	}
}

// End-to-end: the plan watcher picks up an agent plan write and the
// derivation result lands on the registry task.
func TestApp_PlanWatcherDerivesStatus(t *testing.T) {
	a, projectDir := newTestApp(t)

	task, err := a.Lifecycle.CreateTask("Watched task", "", "", models.SourceAutomated)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	specID := "002-watched"
	a.Registry.Patch(task.ID, core.TaskPatch{SpecID: &specID})

	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	specDir := filepath.Join(projectDir, ".taskdeck", "specs", specID)
	if err := os.MkdirAll(specDir, 0o755); err != nil {
		t.Fatalf("creating spec dir: %v", err)
	}
	plan := `{"phases":[{"name":"implementation","subtasks":[{"id":"1.1","description":"Scaffold","status":"in_progress"}]}]}`
	if err := os.WriteFile(filepath.Join(specDir, storage.PlanFileName), []byte(plan), 0o644); err != nil {
		t.Fatalf("writing plan: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := a.Registry.Get(task.ID)
		if got.Status == models.StatusInProgress && len(got.Subtasks) == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	got, _ := a.Registry.Get(task.ID)
	t.Fatalf("derivation never applied, task = %+v", got)
}
