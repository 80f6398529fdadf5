package integration

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/valter-silva-au/taskdeck/internal/core"
	"github.com/valter-silva-au/taskdeck/internal/storage"
	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// EventLogger is re-declared here so the supervisor does not depend on
// the observability package directly.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Supervisor launches and stops the coding agent subprocess for tasks.
// At most one agent run is tracked per task; runs are detached and
// reaped by a background goroutine.
type Supervisor struct {
	cfg      models.AgentConfig
	dirs     *storage.SpecDirs
	executor Executor
	events   EventLogger

	mu      sync.Mutex
	running map[string]*exec.Cmd // task ID -> live agent process
}

// NewSupervisor creates a supervisor. events may be nil.
func NewSupervisor(cfg models.AgentConfig, dirs *storage.SpecDirs, events EventLogger) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		dirs:     dirs,
		executor: NewExecutor(),
		events:   events,
		running:  make(map[string]*exec.Cmd),
	}
}

// StartAgent spawns the agent for the task and returns once the process
// is running. A second start for the same task is rejected while the
// first run is alive.
func (s *Supervisor) StartAgent(task models.Task, opts core.StartOpts) error {
	args := append([]string{}, s.cfg.DefaultArgs...)
	args = append(args, "--task", task.ID)
	if opts.Parallel {
		args = append(args, "--parallel")
		if opts.Workers > 0 {
			args = append(args, "--workers", fmt.Sprint(opts.Workers))
		}
	}
	return s.spawn(task, args)
}

// ResumeQA nudges the agent to continue after an answered question. A
// running agent picks the answer up from the plan flag on its own; when
// no agent is alive one is started in resume mode so the answer is not
// left waiting for an operator restart.
func (s *Supervisor) ResumeQA(task models.Task) error {
	s.mu.Lock()
	_, alive := s.running[task.ID]
	s.mu.Unlock()
	if alive {
		return nil
	}

	args := append([]string{}, s.cfg.DefaultArgs...)
	args = append(args, "--task", task.ID, "--resume-qa")
	return s.spawn(task, args)
}

func (s *Supervisor) spawn(task models.Task, args []string) error {
	s.mu.Lock()
	if _, alive := s.running[task.ID]; alive {
		s.mu.Unlock()
		return fmt.Errorf("agent already running for task %s", task.ID)
	}
	s.mu.Unlock()

	cmd := exec.Command(s.cfg.Command, args...)
	cmd.Dir = s.dirs.WorkDir(task.SpecID)
	cmd.Env = s.executor.BuildEnv(os.Environ(), &TaskEnvContext{
		TaskID:  task.ID,
		SpecID:  task.SpecID,
		WorkDir: cmd.Dir,
	})
	// Own process group, so stopping the agent also reaches its children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting agent for task %s: %w", task.ID, err)
	}

	s.mu.Lock()
	s.running[task.ID] = cmd
	s.mu.Unlock()

	s.logEvent("agent.started", map[string]any{"task": task.ID, "pid": cmd.Process.Pid})

	go s.reap(task.ID, cmd)
	return nil
}

// reap waits for the agent process and clears the tracking entry.
func (s *Supervisor) reap(taskID string, cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	if s.running[taskID] == cmd {
		delete(s.running, taskID)
	}
	s.mu.Unlock()

	data := map[string]any{"task": taskID}
	if err != nil {
		data["error"] = err.Error()
	}
	s.logEvent("agent.exited", data)
}

// StopAgent terminates the agent run for the task. Stopping a task with
// no live agent is a no-op.
func (s *Supervisor) StopAgent(task models.Task) error {
	s.mu.Lock()
	cmd, alive := s.running[task.ID]
	s.mu.Unlock()
	if !alive {
		return nil
	}

	// Signal the whole process group.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("stopping agent for task %s: %w", task.ID, err)
	}
	s.logEvent("agent.stopped", map[string]any{"task": task.ID, "pid": cmd.Process.Pid})
	return nil
}

// Running reports whether an agent process is currently alive for the task.
func (s *Supervisor) Running(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, alive := s.running[taskID]
	return alive
}

func (s *Supervisor) logEvent(eventType string, data map[string]any) {
	if s.events != nil {
		_ = s.events.LogEvent(eventType, data)
	}
}
