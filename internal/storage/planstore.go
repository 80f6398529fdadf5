package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// ErrMalformedPlan marks a plan file that exists but cannot be parsed,
// typically because the agent was mid-write. Callers skip the update for
// that cycle and keep the last-known-good task state.
var ErrMalformedPlan = errors.New("malformed implementation plan")

// PlanStore reads and updates implementation_plan.json files. The agent
// owns the plan; the only operator-side write is the QA signoff flip
// during the clarification handshake, done under a file lock so the two
// sides never interleave a read-modify-write.
type PlanStore struct {
	dirs *SpecDirs
}

// NewPlanStore creates a PlanStore resolving spec directories through dirs.
func NewPlanStore(dirs *SpecDirs) *PlanStore {
	return &PlanStore{dirs: dirs}
}

// planPath returns the plan file path for a spec.
func (ps *PlanStore) planPath(specID string) string {
	return filepath.Join(ps.dirs.Resolve(specID), PlanFileName)
}

// LoadPlan reads and parses the plan for a spec. A missing plan returns
// (nil, nil); unparseable content returns ErrMalformedPlan.
func (ps *PlanStore) LoadPlan(specID string) (*models.ImplementationPlan, error) {
	data, err := os.ReadFile(ps.planPath(specID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading plan for %s: %w", specID, err)
	}

	var plan models.ImplementationPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan for %s: %w: %v", specID, ErrMalformedPlan, err)
	}
	return &plan, nil
}

// SavePlan atomically writes the plan via a temp file and rename, so a
// concurrent reader never sees a partial document.
func (ps *PlanStore) SavePlan(specID string, plan *models.ImplementationPlan) error {
	path := ps.planPath(specID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating spec directory: %w", err)
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling plan for %s: %w", specID, err)
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing plan temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming plan file: %w", err)
	}
	return nil
}

// SetQASignoffResuming flips the plan's QA signoff from question_pending
// to resuming and records when the answer arrived. The flip is skipped,
// with flipped=false and no error, when the signoff is absent or in any
// other state; that guard makes a second submission a no-op.
func (ps *PlanStore) SetQASignoffResuming(specID string, receivedAt time.Time) (flipped bool, err error) {
	if _, err := os.Stat(ps.planPath(specID)); os.IsNotExist(err) {
		return false, nil
	}

	unlock, err := lockFile(ps.planPath(specID) + ".lock")
	if err != nil {
		return false, fmt.Errorf("locking plan for %s: %w", specID, err)
	}
	defer func() { _ = unlock() }()

	plan, err := ps.LoadPlan(specID)
	if err != nil {
		return false, err
	}
	if plan == nil || plan.QASignoff == nil {
		return false, nil
	}
	if plan.QASignoff.Status != models.QAQuestionPending {
		return false, nil
	}

	plan.QASignoff.Status = models.QAResuming
	plan.QASignoff.AnswerReceivedAt = receivedAt.UTC().Format(time.RFC3339)
	if err := ps.SavePlan(specID, plan); err != nil {
		return false, err
	}
	return true, nil
}
