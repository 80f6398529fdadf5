package models

import "time"

// TaskDraft is an in-progress task-creation form persisted locally so an
// interrupted session can pick up where it left off. Drafts are
// independent of the registry and never derive anything.
type TaskDraft struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	ProjectID   string     `yaml:"project_id,omitempty"`
	SourceType  SourceType `yaml:"source_type"`
	Labels      []string   `yaml:"labels,omitempty"`
	SavedAt     time.Time  `yaml:"saved_at"`
}
