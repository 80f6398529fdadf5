package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Artifact names inside a spec directory. The agent writes the plan and
// the question; the operator side writes the answer.
const (
	PlanFileName     = "implementation_plan.json"
	QuestionFileName = "QA_QUESTION.md"
	AnswerFileName   = "QA_ANSWER.md"
)

// dataDirName is the per-project taskdeck data directory.
const dataDirName = ".taskdeck"

// SpecDirs resolves per-task spec directories under a project. A task may
// run in an isolated workspace (a worktree checked out under the data
// directory); when that workspace exists its copy of the spec directory is
// the live one, otherwise the project root's copy is.
type SpecDirs struct {
	projectDir string
}

// NewSpecDirs creates a resolver rooted at the given project directory.
func NewSpecDirs(projectDir string) *SpecDirs {
	return &SpecDirs{projectDir: projectDir}
}

// DataDir returns the project's taskdeck data directory.
func (s *SpecDirs) DataDir() string {
	return filepath.Join(s.projectDir, dataDirName)
}

// WorkDir returns the directory the agent works in for the given spec:
// the isolated workspace when one exists, else the project root.
func (s *SpecDirs) WorkDir(specID string) string {
	workspace := filepath.Join(s.DataDir(), "worktrees", specID)
	if info, err := os.Stat(workspace); err == nil && info.IsDir() {
		return workspace
	}
	return s.projectDir
}

// Resolve returns the live spec directory for the given spec ID,
// preferring the isolated workspace's copy when present.
func (s *SpecDirs) Resolve(specID string) string {
	return filepath.Join(s.WorkDir(specID), dataDirName, "specs", specID)
}

// ReadQuestion reads the question artifact for a spec. A missing file is
// not an error; found reports whether one exists. The file's modification
// time doubles as the question's identity.
func (s *SpecDirs) ReadQuestion(specID string) (content string, modTime time.Time, found bool, err error) {
	path := filepath.Join(s.Resolve(specID), QuestionFileName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, fmt.Errorf("checking question file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("reading question file: %w", err)
	}
	return string(data), info.ModTime(), true, nil
}

// WriteAnswer durably writes the answer artifact. The write goes through
// a temp file and rename so the agent can never observe a half-written
// answer, and so a crash after this call always leaves a complete file.
func (s *SpecDirs) WriteAnswer(specID string, answer string, submittedAt time.Time) error {
	specDir := s.Resolve(specID)
	if err := os.MkdirAll(specDir, 0o755); err != nil {
		return fmt.Errorf("creating spec directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Your Answer\n\n")
	sb.WriteString(answer)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("Submitted by the operator at %s\n", submittedAt.UTC().Format(time.RFC3339)))

	path := filepath.Join(specDir, AnswerFileName)
	tmpPath := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmpPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing answer file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming answer file: %w", err)
	}
	return nil
}

// DeleteQuestion removes the question artifact. A missing file is fine;
// the agent cleans it up on its side too.
func (s *SpecDirs) DeleteQuestion(specID string) error {
	path := filepath.Join(s.Resolve(specID), QuestionFileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing question file: %w", err)
	}
	return nil
}
