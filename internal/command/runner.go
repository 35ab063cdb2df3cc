package command

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Command describes one external program invocation.
type Command struct {
	// Path is the program to run, resolved via PATH if not absolute.
	Path string
	// Args are positional arguments, excluding the program name.
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env is an overlay merged over the process environment for this
	// invocation only. The process environment is never mutated.
	Env map[string]string
}

// Error reports a failed external command, preserving the underlying
// exit error so callers can surface the tool's status unmodified.
type Error struct {
	// Path is the program that failed.
	Path string
	// Args are the arguments it was invoked with.
	Args []string
	// Err is the underlying execution error.
	Err error
}

// Error renders the failed command line and cause.
func (e *Error) Error() string {
	return fmt.Sprintf("command %q failed: %v", strings.Join(append([]string{e.Path}, e.Args...), " "), e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes external commands. The interface exists so workflows can
// be tested with a recording fake instead of spawning processes.
type Runner interface {
	Run(ctx context.Context, cmd *Command) error
}

// ExecRunner runs commands via os/exec, streaming output through unmodified.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

// Run executes the command, blocking until completion.
// Non-zero exits are returned as *Error.
func (ExecRunner) Run(ctx context.Context, cmd *Command) error {
	ec := exec.CommandContext(ctx, cmd.Path, cmd.Args...) //nolint:gosec // Running configured tooling is the point.
	ec.Dir = cmd.Dir
	ec.Stdout = os.Stdout
	ec.Stderr = os.Stderr
	ec.Env = MergeEnv(os.Environ(), cmd.Env)

	if err := ec.Run(); err != nil {
		return &Error{Path: cmd.Path, Args: cmd.Args, Err: err}
	}

	return nil
}

// MergeEnv appends the overlay to a copy of base in sorted key order,
// so later entries win per os/exec semantics and output is deterministic.
func MergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	merged := make([]string, 0, len(base)+len(overlay))
	merged = append(merged, base...)

	for _, k := range keys {
		merged = append(merged, k+"="+overlay[k])
	}

	return merged
}
