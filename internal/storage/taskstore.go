package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/valter-silva-au/taskdeck/pkg/models"
	"gopkg.in/yaml.v3"
)

// TaskFile represents the top-level structure of tasks.yaml.
type TaskFile struct {
	Version string                 `yaml:"version"`
	Tasks   map[string]models.Task `yaml:"tasks"`
}

// TaskStore persists registry snapshots. The registry stays the owner of
// in-memory task state; the store only feeds its initial load and
// records its mutations, through the same derivation results, so the
// persisted view can never disagree with the live one.
type TaskStore interface {
	Load() ([]models.Task, error)
	Save(tasks []models.Task) error
}

type fileTaskStore struct {
	basePath string
}

// NewTaskStore creates a TaskStore backed by a tasks.yaml file in the
// given base directory.
func NewTaskStore(basePath string) TaskStore {
	return &fileTaskStore{basePath: basePath}
}

func (s *fileTaskStore) filePath() string {
	return filepath.Join(s.basePath, "tasks.yaml")
}

// Load reads tasks.yaml and returns its tasks ordered by creation time,
// then ID. A missing file means an empty collection, not an error.
func (s *fileTaskStore) Load() ([]models.Task, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	var tf TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("loading tasks: parsing YAML: %w", err)
	}

	tasks := make([]models.Task, 0, len(tf.Tasks))
	for id, task := range tf.Tasks {
		if task.ID == "" {
			task.ID = id
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].Created.Equal(tasks[j].Created) {
			return tasks[i].Created.Before(tasks[j].Created)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// Save writes the full task collection to tasks.yaml.
func (s *fileTaskStore) Save(tasks []models.Task) error {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving tasks: creating directory: %w", err)
	}

	tf := TaskFile{
		Version: "1.0",
		Tasks:   make(map[string]models.Task, len(tasks)),
	}
	for _, task := range tasks {
		tf.Tasks[task.ID] = task
	}

	data, err := yaml.Marshal(&tf)
	if err != nil {
		return fmt.Errorf("saving tasks: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving tasks: writing file: %w", err)
	}
	return nil
}
