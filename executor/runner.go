package executor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/shlex"
)

// Runner invokes external programs by name. Stage collaborators depend on
// Runner rather than on CommandExecutor so tests can substitute fakes.
type Runner interface {
	Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error)
	RunWithInput(ctx context.Context, input, program string, args []string, opts ...Option) (*Result, error)
}

// LocalRunner runs programs on the local host.
type LocalRunner struct {
	logger *slog.Logger
}

// RunnerOption configures a LocalRunner.
type RunnerOption func(*LocalRunner)

// WithLogger sets the logger used to report invocations.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *LocalRunner) {
		r.logger = logger
	}
}

// NewLocalRunner creates a LocalRunner. Output is captured and streamed to
// the console unless a call passes SilentMode.
func NewLocalRunner(opts ...RunnerOption) *LocalRunner {
	r := &LocalRunner{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes program with args.
func (r *LocalRunner) Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error) {
	return r.RunWithInput(ctx, "", program, args, opts...)
}

// RunWithInput executes program with args, feeding input on stdin.
func (r *LocalRunner) RunWithInput(
	ctx context.Context,
	input, program string,
	args []string,
	opts ...Option,
) (*Result, error) {
	cmd := New(program, args...)
	all := append([]Option{CaptureAll()}, opts...)

	r.logger.Debug("running command", "command", program+" "+strings.Join(args, " "))

	result, err := cmd.ExecuteWithInput(ctx, input, all...)
	if err != nil {
		exitCode := -1
		if result != nil {
			exitCode = result.ExitCode
		}
		r.logger.Warn("command failed", "program", program, "exit_code", exitCode, "error", err)
		return result, err
	}

	r.logger.Debug("command finished", "program", program, "duration", result.Duration)
	return result, nil
}

// SplitCommand splits a configured command line such as
// `sh -c "mvn -B package && cp target/*.jar dist/"` into program and
// arguments. Quotes and escapes follow POSIX shell rules; nothing is expanded.
func SplitCommand(line string) (string, []string, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return "", nil, err
	}
	if len(fields) == 0 {
		return "", nil, nil
	}
	return fields[0], fields[1:], nil
}
