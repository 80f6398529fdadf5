package models

import "time"

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusBacklog     TaskStatus = "backlog"
	StatusInProgress  TaskStatus = "in_progress"
	StatusAIReview    TaskStatus = "ai_review"
	StatusHumanReview TaskStatus = "human_review"
	StatusDone        TaskStatus = "done"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusAIReview, StatusHumanReview, StatusDone:
		return true
	}
	return false
}

// ReviewReason classifies why a task is awaiting human attention.
// ReviewNone means no reason applies to the task's current status.
type ReviewReason string

const (
	ReviewNone      ReviewReason = ""
	ReviewCompleted ReviewReason = "completed"
	ReviewErrors    ReviewReason = "errors"
)

// SourceType describes how a task was created. Manual tasks skip the
// AI review stage and go straight to human review on completion.
type SourceType string

const (
	SourceManual    SourceType = "manual"
	SourceAutomated SourceType = "automated"
)

// SubtaskStatus represents the state of a single plan subtask.
type SubtaskStatus string

const (
	SubtaskQueued     SubtaskStatus = "queued"
	SubtaskInProgress SubtaskStatus = "in_progress"
	SubtaskCompleted  SubtaskStatus = "completed"
	SubtaskFailed     SubtaskStatus = "failed"
)

// Subtask is one unit of agent work rolled up into the task status.
// Order within a task is execution order and must be preserved.
type Subtask struct {
	ID           string        `json:"id" yaml:"id"`
	Title        string        `json:"title" yaml:"title"`
	Description  string        `json:"description" yaml:"description"`
	Status       SubtaskStatus `json:"status" yaml:"status"`
	Files        []string      `json:"files,omitempty" yaml:"files,omitempty"`
	Verification string        `json:"verification,omitempty" yaml:"verification,omitempty"`
}

// AgentPhase names the stage of the agent pipeline a task is in.
type AgentPhase string

const (
	PhaseIdle     AgentPhase = "idle"
	PhaseSpec     AgentPhase = "spec"
	PhasePlanning AgentPhase = "planning"
	PhaseCoding   AgentPhase = "coding"
	PhaseQA       AgentPhase = "qa"
)

// ExecutionProgress is the live progress snapshot for a running task.
type ExecutionProgress struct {
	Phase           AgentPhase `json:"phase" yaml:"phase"`
	PhaseProgress   int        `json:"phaseProgress" yaml:"phase_progress"`
	OverallProgress int        `json:"overallProgress" yaml:"overall_progress"`
}

// IdleProgress is the reset state applied whenever a task returns to backlog.
func IdleProgress() ExecutionProgress {
	return ExecutionProgress{Phase: PhaseIdle}
}

// TaskMetadata carries creation-time attributes that influence the
// review path but are never derived from the plan.
type TaskMetadata struct {
	SourceType SourceType `json:"sourceType" yaml:"source_type"`
	Labels     []string   `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Task is one unit of work an agent executes. ID is assigned at creation;
// SpecID is assigned once the agent creates a spec directory for the task
// and may be empty before that. Lookups must succeed by either identifier
// since callers are inconsistent about which they hold.
type Task struct {
	ID                string            `json:"id" yaml:"id"`
	SpecID            string            `json:"specId,omitempty" yaml:"spec_id,omitempty"`
	Title             string            `json:"title" yaml:"title"`
	Description       string            `json:"description,omitempty" yaml:"description,omitempty"`
	ProjectID         string            `json:"projectId,omitempty" yaml:"project_id,omitempty"`
	Status            TaskStatus        `json:"status" yaml:"status"`
	ReviewReason      ReviewReason      `json:"reviewReason,omitempty" yaml:"review_reason,omitempty"`
	Subtasks          []Subtask         `json:"subtasks" yaml:"subtasks"`
	ExecutionProgress ExecutionProgress `json:"executionProgress" yaml:"execution_progress"`
	Logs              []string          `json:"logs,omitempty" yaml:"logs,omitempty"`
	Metadata          TaskMetadata      `json:"metadata" yaml:"metadata"`
	Created           time.Time         `json:"createdAt" yaml:"created"`
	Updated           time.Time         `json:"updatedAt" yaml:"updated"`
}
