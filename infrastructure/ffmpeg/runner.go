package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// stderrTailLines is how much of a failed command's stderr ends up in logs and errors
const stderrTailLines = 8

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// PipeRunner starts long-running commands connected through pipes
type PipeRunner interface {
	// StartReader starts a command and returns its stdout. Closing it before
	// EOF stops the command.
	StartReader(ctx context.Context, name string, args ...string) (io.ReadCloser, error)

	// StartWriter starts a command and returns its stdin. Closing it waits
	// for the command to exit.
	StartWriter(ctx context.Context, name string, args ...string) (io.WriteCloser, error)
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct {
	logger *zap.Logger
}

// NewExecCommandRunner creates a runner that logs failed commands
func NewExecCommandRunner(logger *zap.Logger) *ExecCommandRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecCommandRunner{logger: logger}
}

// Run executes a command and returns any error
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return r.failed(name, args, err, stderr.String())
	}
	return nil
}

// Output executes a command and returns its output
func (r *ExecCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, r.failed(name, args, err, stderr.String())
	}
	return out, nil
}

// StartReader implements PipeRunner
func (r *ExecCommandRunner) StartReader(ctx context.Context, name string, args ...string) (io.ReadCloser, error) {
	p := &process{runner: r, name: name, args: args}
	p.cmd = exec.CommandContext(ctx, name, args...)
	p.cmd.Stderr = &p.stderr
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout of %s: %w", name, err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	p.stdout = stdout
	return p, nil
}

// StartWriter implements PipeRunner
func (r *ExecCommandRunner) StartWriter(ctx context.Context, name string, args ...string) (io.WriteCloser, error) {
	p := &process{runner: r, name: name, args: args}
	p.cmd = exec.CommandContext(ctx, name, args...)
	p.cmd.Stderr = &p.stderr
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin of %s: %w", name, err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	p.stdin = stdin
	return p, nil
}

func (r *ExecCommandRunner) failed(name string, args []string, err error, stderr string) error {
	tail := stderrTail(stderr, stderrTailLines)
	fields := []zap.Field{
		zap.String("command", name),
		zap.Strings("args", args),
		zap.Error(err),
		zap.String("stderr_tail", tail),
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		fields = append(fields, zap.Int("exit_status", exitErr.ExitCode()))
	}
	r.logger.Warn("external command failed", fields...)

	if tail == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, tail)
}

// process is a started command with one end of a pipe held by the caller
type process struct {
	runner *ExecCommandRunner
	name   string
	args   []string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stdin  io.WriteCloser
	stderr bytes.Buffer
	eof    bool
	once   sync.Once
	err    error
}

func (p *process) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, io.EOF) {
		p.eof = true
	}
	return n, err
}

func (p *process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *process) Close() error {
	p.once.Do(func() {
		if p.stdin != nil {
			_ = p.stdin.Close()
			if err := p.cmd.Wait(); err != nil {
				p.err = p.runner.failed(p.name, p.args, err, p.stderr.String())
			}
			return
		}
		if !p.eof {
			// stopped before EOF, so the kill status is ignored
			_ = p.cmd.Process.Kill()
			_ = p.cmd.Wait()
			return
		}
		if err := p.cmd.Wait(); err != nil {
			p.err = p.runner.failed(p.name, p.args, err, p.stderr.String())
		}
	})
	return p.err
}

// stderrTail returns the last n non-empty lines of s
func stderrTail(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

var (
	_ CommandRunner = (*ExecCommandRunner)(nil)
	_ PipeRunner    = (*ExecCommandRunner)(nil)
)
