package cli

import (
	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/internal/observability"
	"github.com/valter-silva-au/taskdeck/internal/storage"
	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// PlanSync keeps derived task status in sync with agent plan writes
// while a long-running surface (console, MCP server) is up.
type PlanSync interface {
	Start() error
	Stop()
}

// Service instances, set during app initialization in app.go.
var (
	Lifecycle   *core.Lifecycle
	Channel     *core.ClarificationChannel
	Registry    *core.Registry
	Drafts      storage.DraftStore
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	Notifier    observability.Notifier
	Watcher     PlanSync
	Config      *models.GlobalConfig
)
