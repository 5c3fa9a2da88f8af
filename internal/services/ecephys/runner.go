package ecephys

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"sglxpipe/internal/config"
	"sglxpipe/internal/logging"
	"sglxpipe/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, dir, binary string, args []string, onOutput func(string)) error
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the logger receiving tool output lines.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner invokes processing modules one at a time.
type Runner struct {
	python  string
	flags   []string
	pkg     string
	workDir string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// New constructs a runner from the tools and paths configuration.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	python := strings.TrimSpace(cfg.Tools.Python)
	if python == "" {
		return nil, errors.New("python interpreter required")
	}
	pkg := strings.TrimSuffix(strings.TrimSpace(cfg.Tools.ModulePackage), ".")
	if pkg == "" {
		return nil, errors.New("module package required")
	}
	runner := &Runner{
		python:  python,
		flags:   append([]string(nil), cfg.Tools.PythonFlags...),
		pkg:     pkg,
		workDir: cfg.Paths.WorkDir,
		timeout: time.Duration(cfg.StageTimeout()) * time.Second,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Args returns the argument vector passed to the interpreter for module.
func (r *Runner) Args(module, inputJSON, outputJSON string) []string {
	args := make([]string, 0, len(r.flags)+6)
	args = append(args, r.flags...)
	args = append(args, "-m", r.pkg+"."+module, "--input_json", inputJSON, "--output_json", outputJSON)
	return args
}

// CommandLine renders the invocation for logs and dry runs.
func (r *Runner) CommandLine(module, inputJSON, outputJSON string) string {
	return r.python + " " + strings.Join(r.Args(module, inputJSON, outputJSON), " ")
}

// RunModule executes one module and waits for it to exit.
func (r *Runner) RunModule(ctx context.Context, module, inputJSON, outputJSON string) error {
	module = strings.TrimSpace(module)
	if module == "" {
		return services.Wrap(services.ErrValidation, "ecephys", "run module", "module name required", nil)
	}
	if _, err := os.Stat(inputJSON); err != nil {
		return services.Wrap(services.ErrNotFound, module, "run module", "input record missing", err)
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, r.logger)
	args := r.Args(module, inputJSON, outputJSON)
	logger.Debug("module command",
		logging.String("module", module),
		logging.String("command", r.python+" "+strings.Join(args, " ")),
	)

	err := r.exec.Run(runCtx, r.workDir, r.python, args, func(line string) {
		if line = strings.TrimRight(line, "\r"); line != "" {
			logger.Debug("tool output", logging.String("module", module), logging.String("line", line))
		}
	})
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return services.Wrap(services.ErrTimeout, module, "run module",
			fmt.Sprintf("exceeded %s", r.timeout), err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", module, ctxErr)
	}
	return services.Wrap(services.ErrExternalTool, module, "run module", "module exited with error", err)
}

// outputWaitDelay bounds how long Wait keeps reading output after the tool
// exits or is killed while a detached child still holds its pipes.
const outputWaitDelay = 2 * time.Second

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, dir, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = outputWaitDelay

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	var mu sync.Mutex

	forward := func(line string) {
		if onOutput == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onOutput(line)
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdoutR)
	go scan(stderrR)

	waitErr := cmd.Wait()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	wg.Wait()

	if errors.Is(waitErr, exec.ErrWaitDelay) {
		// The tool itself succeeded; reap whatever it left behind.
		_ = killProcessGroup(cmd)
		waitErr = nil
	}
	if waitErr != nil {
		return fmt.Errorf("wait command: %w", waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("scan output: %w", scanErr)
	}
	return nil
}

// killProcessGroup kills the tool together with every child it spawned.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	return nil
}
