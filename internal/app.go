// Package internal provides the App struct that wires all components of
// TaskDeck together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/taskdeck/internal/cli"
	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/internal/integration"
	"github.com/valter-silva-au/taskdeck/internal/observability"
	"github.com/valter-silva-au/taskdeck/internal/storage"
	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// App holds all service dependencies for the TaskDeck coordinator.
type App struct {
	ProjectDir string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	Dirs      *storage.SpecDirs
	Plans     *storage.PlanStore
	TaskStore storage.TaskStore
	Drafts    storage.DraftStore

	// Core services
	Registry  *core.Registry
	IDGen     core.TaskIDGenerator
	Lifecycle *core.Lifecycle
	Channel   *core.ClarificationChannel

	// Integration services
	Supervisor  *integration.Supervisor
	PlanWatcher *integration.PlanWatcher

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of the TaskDeck coordinator.
// projectDir is the directory containing the .taskdeck data directory.
func NewApp(projectDir string) (*App, error) {
	app := &App{ProjectDir: projectDir}

	// --- Storage layer ---
	app.Dirs = storage.NewSpecDirs(projectDir)
	dataDir := app.Dirs.DataDir()
	app.Plans = storage.NewPlanStore(app.Dirs)
	app.TaskStore = storage.NewTaskStore(dataDir)
	app.Drafts = storage.NewDraftStore(dataDir)

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(dataDir)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Observability ---
	eventLogPath := filepath.Join(dataDir, "events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: run without an event log if it can't be created.
		app.EventLog = nil
	}

	// --- Core services ---
	// The observer persists every registry mutation back to tasks.yaml,
	// so the snapshot on disk always reflects the live board.
	app.Registry = core.NewRegistry(nil, func(_ models.Task) {
		if err := app.TaskStore.Save(app.Registry.List("")); err != nil && app.EventLog != nil {
			_ = app.EventLog.LogEvent("tasks.save_failed", map[string]any{"error": err.Error()})
		}
	})

	tasks, err := app.TaskStore.Load()
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	app.Registry.UpsertMany(tasks)

	app.IDGen = core.NewTaskIDGenerator(dataDir, cfg.TaskIDPrefix, cfg.TaskIDPadWidth)

	// --- Integration services ---
	app.Supervisor = integration.NewSupervisor(cfg.Agent, app.Dirs, app.EventLog)
	app.Channel = core.NewClarificationChannel(app.Dirs, app.Plans, app.Supervisor, app.Registry, app.EventLog, nil)
	app.Lifecycle = core.NewLifecycle(app.Registry, app.Supervisor, app.IDGen, app.EventLog, nil)
	app.PlanWatcher = integration.NewPlanWatcher(app.Dirs, app.Plans, app.Registry, app.EventLog, 0)

	// --- Alerting ---
	app.AlertEngine = observability.NewAlertEngine(app.Registry, app.Channel, cfg.Notifications.Alerts, nil)
	if cfg.Notifications.Enabled && cfg.Notifications.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.SlackWebhookURL)
	}

	// --- Wire CLI package-level variables ---
	cli.Lifecycle = app.Lifecycle
	cli.Channel = app.Channel
	cli.Registry = app.Registry
	cli.Drafts = app.Drafts
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.Notifier = app.Notifier
	cli.Watcher = app.PlanWatcher
	cli.Config = app.Config

	return app, nil
}

// Start launches the plan watcher so status derivation follows agent
// writes. Safe to skip for one-shot commands that only read state.
func (a *App) Start() error {
	if err := a.PlanWatcher.Start(); err != nil {
		return fmt.Errorf("starting plan watcher: %w", err)
	}
	return nil
}

// Close releases resources held by the App: the plan watcher and the
// event log file handle. Safe to call on a partially constructed App.
func (a *App) Close() error {
	if a.PlanWatcher != nil {
		a.PlanWatcher.Stop()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveProjectDir determines the project directory. It checks the
// TDK_HOME env var, then walks up from the current directory looking for
// an existing .taskdeck directory, and falls back to the cwd.
func ResolveProjectDir() string {
	if home := os.Getenv("TDK_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".taskdeck")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
