// Package integration connects TaskDeck to the outside world: the
// coding agent subprocess, the spec workspace on disk, and the plan
// file watcher that feeds agent progress back into the registry.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ExecConfig holds all parameters needed to run the agent binary once.
type ExecConfig struct {
	Command string
	Args    []string
	Dir     string
	TaskCtx *TaskEnvContext // nil if no task is bound to the run
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// TaskEnvContext carries task-specific information to inject as
// environment variables into the agent subprocess.
type TaskEnvContext struct {
	TaskID  string
	SpecID  string
	WorkDir string
}

// ExecResult captures the outcome of an agent invocation.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs agent commands with task context injection. The context
// bounds the run; cancellation kills the subprocess.
type Executor interface {
	Exec(ctx context.Context, config ExecConfig) (*ExecResult, error)
	BuildEnv(base []string, taskCtx *TaskEnvContext) []string
}

type agentExecutor struct{}

// NewExecutor creates an Executor backed by os/exec.
func NewExecutor() Executor {
	return &agentExecutor{}
}

// BuildEnv appends TDK_* environment variables to the base environment
// when a task context is provided. When taskCtx is nil, the base is
// returned unchanged.
func (e *agentExecutor) BuildEnv(base []string, taskCtx *TaskEnvContext) []string {
	if taskCtx == nil {
		return base
	}
	env := make([]string, len(base), len(base)+3)
	copy(env, base)
	env = append(env,
		"TDK_TASK_ID="+taskCtx.TaskID,
		"TDK_SPEC_ID="+taskCtx.SpecID,
		"TDK_WORK_DIR="+taskCtx.WorkDir,
	)
	return env
}

// Exec builds the environment and runs the agent command. The exit code
// is reported in the result rather than as an error; an error means the
// command could not be started or the context ended the run.
func (e *agentExecutor) Exec(ctx context.Context, config ExecConfig) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = e.BuildEnv(os.Environ(), config.TaskCtx)

	// Always capture stdout/stderr for the result, teeing to the
	// provided writers if set.
	var stdoutBuf, stderrBuf bytes.Buffer

	if config.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdoutBuf, config.Stdout)
	} else {
		cmd.Stdout = &stdoutBuf
	}

	if config.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, config.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	if config.Stdin != nil {
		cmd.Stdin = config.Stdin
	}

	err := cmd.Run()

	result := &ExecResult{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("running %s: %w", config.Command, ctxErr)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// Command could not be started (e.g., not found).
		return result, fmt.Errorf("running %s: %w", config.Command, err)
	}

	return result, nil
}
