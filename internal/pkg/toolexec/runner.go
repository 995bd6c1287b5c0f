// Package toolexec runs the external vendor tools (partition generator,
// esptool) behind a narrow interface so callers can be tested with fakes.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	utilexec "k8s.io/utils/exec"

	"cloupeer.io/nvsprov/pkg/log"
)

// Command describes one invocation of an external tool.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Output, when set, receives a live copy of stdout and stderr.
	Output io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is what the tool left behind once it exited.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the tool exited with status 0.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Runner executes external commands.
//
// A non-zero exit status is not an error: it is reported in Result.ExitCode.
// The returned error is reserved for commands that could not be run at all
// (binary not found, context cancelled or timed out).
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ErrNotFound is returned when the tool binary is not on PATH.
var ErrNotFound = errors.New("executable not found")

type execRunner struct {
	exec utilexec.Interface
	log  logr.Logger
}

var _ Runner = (*execRunner)(nil)

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return NewRunnerWithExec(utilexec.New())
}

// NewRunnerWithExec returns a Runner backed by the given exec implementation.
func NewRunnerWithExec(e utilexec.Interface) Runner {
	return &execRunner{exec: e, log: log.Logr().WithName("toolexec")}
}

func (r *execRunner) Run(ctx context.Context, c Command) (*Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := r.exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.SetDir(c.Dir)
	}
	if c.Output != nil {
		cmd.SetStdout(io.MultiWriter(&stdout, c.Output))
		cmd.SetStderr(io.MultiWriter(&stderr, c.Output))
	} else {
		cmd.SetStdout(&stdout)
		cmd.SetStderr(&stderr)
	}

	r.log.V(1).Info("Executing external tool", "command", c.String(), "dir", c.Dir)

	err := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	// A killed process also surfaces as an ExitError, so the context is checked first.
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", c.Name, ctxErr)
	}

	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		r.log.V(1).Info("External tool exited", "command", c.Name, "exitCode", res.ExitCode)
		return res, nil
	}

	res.ExitCode = -1
	if errors.Is(err, utilexec.ErrExecutableNotFound) {
		return res, fmt.Errorf("%s: %w", c.Name, ErrNotFound)
	}
	return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}
