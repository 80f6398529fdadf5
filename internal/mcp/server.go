// Package mcp provides an MCP (Model Context Protocol) server that exposes
// TaskDeck operations as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/internal/observability"
	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// Server wraps TaskDeck services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	lifecycle   *core.Lifecycle
	channel     *core.ClarificationChannel
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server with the given service dependencies.
// alertEngine may be nil if alerting is disabled.
func NewServer(lifecycle *core.Lifecycle, channel *core.ClarificationChannel, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		lifecycle:   lifecycle,
		channel:     channel,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "taskdeck", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskRefInput struct {
	Task string `json:"task" jsonschema:"required,the task ID or the agent-assigned spec ID (e.g. TASK-042 or 001-auth-flow)"`
}

type taskOutput struct {
	ID              string          `json:"id"`
	SpecID          string          `json:"spec_id,omitempty"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	ProjectID       string          `json:"project_id,omitempty"`
	Status          string          `json:"status"`
	ReviewReason    string          `json:"review_reason,omitempty"`
	Phase           string          `json:"phase"`
	PhaseProgress   int             `json:"phase_progress"`
	OverallProgress int             `json:"overall_progress"`
	Source          string          `json:"source,omitempty"`
	Subtasks        []subtaskOutput `json:"subtasks,omitempty"`
	Created         string          `json:"created"`
	Updated         string          `json:"updated"`
}

type subtaskOutput struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type listTasksInput struct {
	Project string `json:"project,omitempty" jsonschema:"filter tasks by project ID"`
	Status  string `json:"status,omitempty" jsonschema:"filter tasks by status (backlog, in_progress, ai_review, human_review, done)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type startTaskInput struct {
	Task     string `json:"task" jsonschema:"required,the task ID or spec ID"`
	Parallel bool   `json:"parallel,omitempty" jsonschema:"run independent subtasks concurrently"`
	Workers  int    `json:"workers,omitempty" jsonschema:"worker count when running in parallel"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type updateTaskStatusInput struct {
	Task   string `json:"task" jsonschema:"required,the task ID or spec ID"`
	Status string `json:"status" jsonschema:"required,the new status (backlog, in_progress, ai_review, human_review, done)"`
}

type updateTaskInput struct {
	Task        string `json:"task" jsonschema:"required,the task ID or spec ID"`
	Title       string `json:"title,omitempty" jsonschema:"new task title"`
	Description string `json:"description,omitempty" jsonschema:"new task description"`
}

type recoverTaskInput struct {
	Task        string `json:"task" jsonschema:"required,the task ID or spec ID"`
	Status      string `json:"status,omitempty" jsonschema:"explicit status to recover to; derived from subtask state when omitted"`
	AutoRestart bool   `json:"auto_restart,omitempty" jsonschema:"restart the agent when the task lands back in backlog"`
}

type recoverTaskOutput struct {
	NewStatus     string `json:"new_status"`
	Message       string `json:"message"`
	AutoRestarted bool   `json:"auto_restarted,omitempty"`
}

type questionOutput struct {
	Pending  bool     `json:"pending"`
	Context  string   `json:"context,omitempty"`
	Question string   `json:"question,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Options  []string `json:"options,omitempty"`
	AskedAt  string   `json:"asked_at,omitempty"`
}

type submitAnswerInput struct {
	Task   string `json:"task" jsonschema:"required,the task ID or spec ID"`
	Answer string `json:"answer" jsonschema:"required,the operator's answer to the pending question"`
}

type getAlertsInput struct{}

type alertOutput struct {
	TaskID      string `json:"task_id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with optional project and status filters. Returns an array of task summaries.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get task details by task ID or spec ID, including derived status, execution progress, and subtasks.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_task",
		Description: "Launch the coding agent for a task and move it to in_progress.",
	}, s.handleStartTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "stop_task",
		Description: "Stop the agent run for a task and return it to backlog, resetting execution progress.",
	}, s.handleStopTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_status",
		Description: "Set a task's status directly. Valid statuses: backlog, in_progress, ai_review, human_review, done.",
	}, s.handleUpdateTaskStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Edit a task's title or description.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "recover_task",
		Description: "Recover a stuck task to a consistent status, optionally restarting the agent.",
	}, s.handleRecoverTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_pending_question",
		Description: "Get the clarification question the agent is currently blocked on for a task, if any.",
	}, s.handleGetPendingQuestion)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "submit_answer",
		Description: "Answer the pending clarification question for a task, unblocking the agent.",
	}, s.handleSubmitAnswer)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (stuck tasks, questions waiting too long for an answer).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	tasks := s.lifecycle.ListTasks(input.Project)

	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, t := range tasks {
		if input.Status != "" && string(t.Status) != input.Status {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)

	return nil, out, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), taskOutput{}, nil
	}

	task, err := s.lifecycle.GetTask(input.Task)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.Task, err)), taskOutput{}, nil
	}

	return nil, taskToOutput(task), nil
}

func (s *Server) handleStartTask(_ context.Context, _ *gomcp.CallToolRequest, input startTaskInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), messageOutput{}, nil
	}

	opts := core.StartOpts{Parallel: input.Parallel, Workers: input.Workers}
	if err := s.lifecycle.StartTask(input.Task, opts); err != nil {
		return errorResult(fmt.Sprintf("starting task %s: %s", input.Task, err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("task %s started", input.Task)}, nil
}

func (s *Server) handleStopTask(_ context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), messageOutput{}, nil
	}

	if err := s.lifecycle.StopTask(input.Task); err != nil {
		return errorResult(fmt.Sprintf("stopping task %s: %s", input.Task, err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("task %s stopped and returned to backlog", input.Task)}, nil
}

func (s *Server) handleUpdateTaskStatus(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskStatusInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), messageOutput{}, nil
	}
	if input.Status == "" {
		return errorResult("status is required"), messageOutput{}, nil
	}

	if err := s.lifecycle.UpdateTaskStatus(input.Task, models.TaskStatus(input.Status)); err != nil {
		return errorResult(fmt.Sprintf("updating task %s status: %s", input.Task, err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("task %s status updated to %s", input.Task, input.Status)}, nil
}

func (s *Server) handleUpdateTask(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), messageOutput{}, nil
	}
	if input.Title == "" && input.Description == "" {
		return errorResult("nothing to update: provide title or description"), messageOutput{}, nil
	}

	opts := core.UpdateOpts{}
	if input.Title != "" {
		opts.Title = &input.Title
	}
	if input.Description != "" {
		opts.Description = &input.Description
	}

	if err := s.lifecycle.UpdateTask(input.Task, opts); err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.Task, err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("task %s updated", input.Task)}, nil
}

func (s *Server) handleRecoverTask(_ context.Context, _ *gomcp.CallToolRequest, input recoverTaskInput) (*gomcp.CallToolResult, recoverTaskOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), recoverTaskOutput{}, nil
	}

	result, err := s.lifecycle.RecoverStuckTask(input.Task, core.RecoverOpts{
		TargetStatus: models.TaskStatus(input.Status),
		AutoRestart:  input.AutoRestart,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("recovering task %s: %s", input.Task, err)), recoverTaskOutput{}, nil
	}

	out := recoverTaskOutput{
		NewStatus:     string(result.NewStatus),
		Message:       result.Message,
		AutoRestarted: result.AutoRestarted,
	}
	return nil, out, nil
}

func (s *Server) handleGetPendingQuestion(_ context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, questionOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), questionOutput{}, nil
	}

	task, err := s.lifecycle.GetTask(input.Task)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.Task, err)), questionOutput{}, nil
	}

	question, err := s.channel.GetPendingQuestion(task)
	if err != nil {
		return errorResult(fmt.Sprintf("reading pending question for %s: %s", input.Task, err)), questionOutput{}, nil
	}
	if question == nil {
		return nil, questionOutput{Pending: false}, nil
	}

	out := questionOutput{
		Pending:  true,
		Context:  question.Context,
		Question: question.Question,
		Reason:   question.Reason,
		Options:  question.Options,
	}
	if !question.Timestamp.IsZero() {
		out.AskedAt = question.Timestamp.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleSubmitAnswer(_ context.Context, _ *gomcp.CallToolRequest, input submitAnswerInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.Task == "" {
		return errorResult("task is required"), messageOutput{}, nil
	}

	task, err := s.lifecycle.GetTask(input.Task)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.Task, err)), messageOutput{}, nil
	}

	if err := s.channel.SubmitAnswer(task, input.Answer); err != nil {
		if errors.Is(err, core.ErrEmptyAnswer) {
			return errorResult("answer must not be empty"), messageOutput{}, nil
		}
		return errorResult(fmt.Sprintf("submitting answer for %s: %s", input.Task, err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("answer submitted, task %s resuming", task.ID)}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (alerting may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			TaskID:      a.TaskID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t models.Task) taskOutput {
	out := taskOutput{
		ID:              t.ID,
		SpecID:          t.SpecID,
		Title:           t.Title,
		Description:     t.Description,
		ProjectID:       t.ProjectID,
		Status:          string(t.Status),
		ReviewReason:    string(t.ReviewReason),
		Phase:           string(t.ExecutionProgress.Phase),
		PhaseProgress:   t.ExecutionProgress.PhaseProgress,
		OverallProgress: t.ExecutionProgress.OverallProgress,
		Source:          string(t.Metadata.SourceType),
		Created:         t.Created.Format(time.RFC3339),
		Updated:         t.Updated.Format(time.RFC3339),
	}
	for _, st := range t.Subtasks {
		out.Subtasks = append(out.Subtasks, subtaskOutput{
			ID:     st.ID,
			Title:  st.Title,
			Status: string(st.Status),
		})
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
