package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/focusops/observe"
	"github.com/jonwraymond/focusops/script"
)

// Config configures an Executor.
type Config struct {
	// Command is the interpreter binary. Default: "osascript".
	Command string

	// Args are passed to Command. Default: ["-l", "JavaScript"].
	// The script is never passed as an argument.
	Args []string

	// Env replaces the process environment when non-nil.
	Env []string

	// MaxTimeout clamps per-call timeouts. Default: 2m.
	MaxTimeout time.Duration

	// MaxOutputBytes caps captured stdout and stderr each. Default: 64MiB.
	MaxOutputBytes int

	// WaitDelay bounds how long Execute waits for output pipes after the
	// process exits. Default: 2s.
	WaitDelay time.Duration
}

// DefaultConfig returns the osascript configuration.
func DefaultConfig() Config {
	return Config{
		Command:        "osascript",
		Args:           []string{"-l", "JavaScript"},
		MaxTimeout:     2 * time.Minute,
		MaxOutputBytes: 64 << 20,
		WaitDelay:      2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Command == "" {
		c.Command = d.Command
		if c.Args == nil {
			c.Args = d.Args
		}
	}
	if c.MaxTimeout <= 0 {
		c.MaxTimeout = d.MaxTimeout
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = d.MaxOutputBytes
	}
	if c.WaitDelay <= 0 {
		c.WaitDelay = d.WaitDelay
	}
	c.Args = slices.Clone(c.Args)
	return c
}

// Result is the raw outcome of one process run.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
	TimedOut  bool
	Truncated bool
}

// Executor runs scripts in a fresh interpreter process per call.
//
// Contract:
//   - Concurrency: safe for concurrent use; calls share no state.
//   - Context: cancellation kills the process group and waits for exit.
//   - Errors: returns ErrInvalidTimeout, ErrSpawn or ErrCanceled; a
//     non-zero exit is reported in Result, not as an error.
type Executor struct {
	cfg    Config
	logger observe.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l observe.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor.
func New(cfg Config, opts ...Option) *Executor {
	e := &Executor{cfg: cfg.withDefaults(), logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Executor) Config() Config { return e.cfg }

// Execute runs s, wrapping it first if it is not already wrapped.
// Timeouts above MaxTimeout are clamped.
func (e *Executor) Execute(ctx context.Context, s script.Script, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		return Result{}, ErrInvalidTimeout
	}
	if timeout > e.cfg.MaxTimeout {
		timeout = e.cfg.MaxTimeout
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	s = script.Wrap(s)

	cmd := exec.Command(e.cfg.Command, e.cfg.Args...)
	cmd.Stdin = strings.NewReader(s.Text)
	stdout := &cappedBuffer{max: e.cfg.MaxOutputBytes}
	stderr := &cappedBuffer{max: e.cfg.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = e.cfg.WaitDelay
	if e.cfg.Env != nil {
		cmd.Env = slices.Clone(e.cfg.Env)
	}
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrSpawn, e.cfg.Command, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		waitErr  error
		timedOut bool
		canceled error
	)
	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
	case <-ctx.Done():
		timedOut = true
		canceled = ctx.Err()
	}
	if timedOut {
		killProcessGroup(cmd)
		waitErr = <-done
		e.logger.Warn(ctx, "script process killed",
			observe.Int("pid", cmd.Process.Pid),
			observe.Duration("timeout", timeout),
			observe.Bool("canceled", canceled != nil),
		)
	}

	res := Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  exitCode(waitErr),
		Duration:  time.Since(start),
		TimedOut:  timedOut,
		Truncated: stdout.truncated() || stderr.truncated(),
	}

	if canceled != nil {
		return res, fmt.Errorf("%w: %w", ErrCanceled, canceled)
	}
	return res, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// cappedBuffer keeps the first max bytes written and discards the rest.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   strings.Builder
	max   int
	extra int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.max - b.buf.Len()
	switch {
	case room <= 0:
		b.extra += len(p)
	case len(p) > room:
		b.buf.Write(p[:room])
		b.extra += len(p) - room
	default:
		b.buf.Write(p)
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extra > 0
}
