package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/taskdeck/pkg/models"
	"gopkg.in/yaml.v3"
)

// DraftStore persists an in-progress task-creation form so an interrupted
// session can resume it. One draft per project directory.
type DraftStore interface {
	Load() (*models.TaskDraft, error)
	Save(draft models.TaskDraft) error
	Clear() error
}

type fileDraftStore struct {
	basePath string
}

// NewDraftStore creates a DraftStore backed by draft.yaml in the given
// base directory.
func NewDraftStore(basePath string) DraftStore {
	return &fileDraftStore{basePath: basePath}
}

func (s *fileDraftStore) filePath() string {
	return filepath.Join(s.basePath, "draft.yaml")
}

// Load returns the saved draft, or nil when none exists.
func (s *fileDraftStore) Load() (*models.TaskDraft, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading draft: %w", err)
	}

	var draft models.TaskDraft
	if err := yaml.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("loading draft: parsing YAML: %w", err)
	}
	return &draft, nil
}

func (s *fileDraftStore) Save(draft models.TaskDraft) error {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving draft: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&draft)
	if err != nil {
		return fmt.Errorf("saving draft: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving draft: writing file: %w", err)
	}
	return nil
}

// Clear removes the draft. Clearing an absent draft is not an error.
func (s *fileDraftStore) Clear() error {
	if err := os.Remove(s.filePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing draft: %w", err)
	}
	return nil
}
