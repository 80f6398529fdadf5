package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// ErrEmptyAnswer rejects a clarification answer that is empty after
// trimming. Nothing is written when it is returned.
var ErrEmptyAnswer = errors.New("answer must not be empty")

// SpecArtifacts is the subset of storage.SpecDirs the clarification
// channel needs. Defining it here keeps core independent of storage.
type SpecArtifacts interface {
	ReadQuestion(specID string) (content string, modTime time.Time, found bool, err error)
	WriteAnswer(specID string, answer string, submittedAt time.Time) error
	DeleteQuestion(specID string) error
}

// PlanFlagAccess is the subset of storage.PlanStore the channel needs:
// reading the plan's QA signoff and performing the guarded flag flip.
type PlanFlagAccess interface {
	LoadPlan(specID string) (*models.ImplementationPlan, error)
	SetQASignoffResuming(specID string, receivedAt time.Time) (flipped bool, err error)
}

// QAResumer signals the agent-process supervisor to resume QA
// validation for a task in its working directory.
type QAResumer interface {
	ResumeQA(task models.Task) error
}

// StatusWriter is the slice of the registry the channel uses to publish
// the post-answer status to observers.
type StatusWriter interface {
	SetStatus(idOrSpecID string, status models.TaskStatus)
}

// EventLogger records observable events. Mirrors observability.EventLog
// without importing it.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// ClarificationChannel implements the QA clarification handshake. The
// agent and the operator are separate processes with no open channel
// between them when a question is raised; the task's own spec directory
// is the only medium both sides watch and can write, so the handshake is
// two one-shot file mailboxes (question in, answer out) plus the
// tri-state QA signoff flag on the plan.
//
// Correctness across the process boundary relies on ordering, not locks:
// the answer is durably on disk before the flag flips, the question file
// is deleted only after the flip, and the agent is resumed only after
// both writes. Each artifact has a single writer. A per-task submission
// lock additionally serializes concurrent operator retries, which the
// flag guard alone would let race on the answer file.
type ClarificationChannel struct {
	artifacts SpecArtifacts
	plans     PlanFlagAccess
	resumer   QAResumer
	statuses  StatusWriter
	events    EventLogger
	clock     Clock

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewClarificationChannel creates a channel with all dependencies
// injected. statuses, events, and clock may be nil.
func NewClarificationChannel(artifacts SpecArtifacts, plans PlanFlagAccess, resumer QAResumer, statuses StatusWriter, events EventLogger, clock Clock) *ClarificationChannel {
	if clock == nil {
		clock = time.Now
	}
	return &ClarificationChannel{
		artifacts: artifacts,
		plans:     plans,
		resumer:   resumer,
		statuses:  statuses,
		events:    events,
		clock:     clock,
		inflight:  make(map[string]*sync.Mutex),
	}
}

// GetPendingQuestion returns the task's pending clarification, or nil
// when there is none. Absence of the question file, absence of the plan,
// or a QA signoff in any state other than question_pending all mean "no
// pending question", not an error. An unreadable plan is skipped for
// this cycle and logged.
func (c *ClarificationChannel) GetPendingQuestion(task models.Task) (*models.QAQuestion, error) {
	if task.SpecID == "" {
		return nil, nil
	}

	plan, err := c.plans.LoadPlan(task.SpecID)
	if err != nil {
		c.logEvent("qa.plan_unreadable", map[string]any{"task": task.ID, "error": err.Error()})
		return nil, nil
	}
	if plan == nil || plan.QASignoff == nil || plan.QASignoff.Status != models.QAQuestionPending {
		return nil, nil
	}

	content, modTime, found, err := c.artifacts.ReadQuestion(task.SpecID)
	if err != nil {
		return nil, fmt.Errorf("getting pending question for %s: %w", task.ID, err)
	}
	if !found {
		return nil, nil
	}

	q := ParseQuestion(content)
	q.Timestamp = modTime
	return &q, nil
}

// SubmitAnswer delivers the operator's answer to the agent. The steps
// run in a fixed order: durable answer write (fatal on failure), guarded
// signoff flip (logged, non-fatal), best-effort question cleanup, agent
// resume (failure surfaced even though the answer stays on disk, so a
// retry only needs to redeliver the resume signal), and finally the
// status notification.
func (c *ClarificationChannel) SubmitAnswer(task models.Task, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}
	if task.SpecID == "" {
		return fmt.Errorf("submitting answer: task %s has no spec directory", task.ID)
	}

	lock := c.submissionLock(task.ID)
	lock.Lock()
	defer lock.Unlock()

	now := c.clock()
	if err := c.artifacts.WriteAnswer(task.SpecID, answer, now); err != nil {
		return fmt.Errorf("submitting answer for %s: %w", task.ID, err)
	}

	flipped, err := c.plans.SetQASignoffResuming(task.SpecID, now)
	if err != nil {
		c.logEvent("qa.signoff_update_failed", map[string]any{"task": task.ID, "error": err.Error()})
	} else if !flipped {
		c.logEvent("qa.signoff_already_advanced", map[string]any{"task": task.ID})
	}

	if err := c.artifacts.DeleteQuestion(task.SpecID); err != nil {
		c.logEvent("qa.question_cleanup_failed", map[string]any{"task": task.ID, "error": err.Error()})
	}

	if err := c.resumer.ResumeQA(task); err != nil {
		return fmt.Errorf("answer saved but resuming QA for %s failed (retry is safe): %w", task.ID, err)
	}

	if c.statuses != nil {
		c.statuses.SetStatus(task.ID, models.StatusInProgress)
	}
	c.logEvent("qa.answer_submitted", map[string]any{"task": task.ID})
	return nil
}

// submissionLock returns the per-task mutex, creating it on first use.
func (c *ClarificationChannel) submissionLock(taskID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.inflight[taskID]
	if !ok {
		lock = &sync.Mutex{}
		c.inflight[taskID] = lock
	}
	return lock
}

func (c *ClarificationChannel) logEvent(eventType string, data map[string]any) {
	if c.events != nil {
		_ = c.events.LogEvent(eventType, data)
	}
}
