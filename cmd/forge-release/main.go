// Command forge-release checks out, builds, tests and releases one
// application: the archive goes to the repository manager and a container
// image goes to the registry.
//
// Parameters come from flags, FORGE_* environment variables and an optional
// CUE parameter file, in that order of precedence:
//
//	forge-release run --build-number 42 --repo-url https://git.example.com/billing.git --app-name billing
//	forge-release render --artifact target/billing-1.0.jar
//	forge-release locate ./target
//
// The exit status is 1 when the pipeline failed, 2 when the configuration
// was rejected and 0 otherwise.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// errPipelineFailed marks a run that completed with a failed status.
var errPipelineFailed = errors.New(errors.CodeExecutionFailed, "pipeline failed")

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"FORGE_LOG_LEVEL"`
	LogFormat string `help:"Log format." enum:"text,json" default:"text" env:"FORGE_LOG_FORMAT"`
	Config    string `help:"CUE parameter file." type:"path" env:"FORGE_CONFIG" placeholder:"FILE"`
}

// env is bound into every command.
type env struct {
	globals *Globals
	stdout  io.Writer
	logger  *slog.Logger
}

// CLI is the root command.
type CLI struct {
	Globals

	Run     RunCmd     `cmd:"" help:"Run the release pipeline."`
	Render  RenderCmd  `cmd:"" help:"Print the container build descriptor."`
	Locate  LocateCmd  `cmd:"" help:"Print the artifact the pipeline would publish."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run(e *env) error {
	fmt.Fprintln(e.stdout, "forge-release", version)
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run parses args, executes the selected command and maps the outcome to an
// exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("forge-release"),
		kong.Description("Release pipeline for a single application."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}

	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		// --help and friends.
		return exitCode
	}
	if err != nil {
		parser.Errorf("%s", err)
		return exitConfig
	}

	logger := newLogger(stderr, cli.LogFormat, cli.LogLevel)
	slog.SetDefault(logger)

	err = kctx.Run(&env{globals: &cli.Globals, stdout: stdout, logger: logger})
	return exitStatus(logger, err)
}

func exitStatus(logger *slog.Logger, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPipelineFailed):
		logger.Error("release failed", "error", err)
		return exitFailed
	case isConfigError(err):
		logger.Error("invalid configuration", "error", err)
		return exitConfig
	default:
		logger.Error("release failed", "error", err)
		return exitFailed
	}
}

func isConfigError(err error) bool {
	return errors.HasCode(err, errors.CodeInvalidConfig) ||
		errors.HasCode(err, errors.CodeSchemaFailed) ||
		errors.HasCode(err, errors.CodeInvalidInput)
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
