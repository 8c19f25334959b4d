// Command govctl runs the governance simulations from the command line and prints JSON results.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/govsim/internal/config"
	"github.com/aristath/govsim/internal/di"
	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/pkg/logger"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitFailure = 1
	exitInvalid = 2
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// failure maps a simulation error to its exit code. Input problems exit 2.
func failure(err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		switch derr.Kind {
		case domain.KindValidation, domain.KindMissingColumns, domain.KindInvalidShockType,
			domain.KindInfeasibleBounds, domain.KindInfeasible:
			return codeError(exitInvalid, "%s", err)
		}
	}
	return codeError(exitFailure, "%s", err)
}

// globalFlags holds the flags shared by every subcommand.
type globalFlags struct {
	modelFile     string
	logLevel      string
	solverTimeout time.Duration
}

// app carries what subcommands need to build services and print results.
type app struct {
	flags  globalFlags
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func main() {
	root := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(exitFailure)
	}
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "govctl",
		Short:         "Run governance, shock, allocation and portfolio simulations",
		Long:          "govctl scores governance profiles, simulates shocks, allocates capital and optimizes portfolios, printing JSON to stdout.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&a.flags.modelFile, "model", "", "YAML file overriding the model coefficients")
	f.StringVar(&a.flags.logLevel, "log-level", "warn", "Log level: debug, info, warn, error or off")
	f.DurationVar(&a.flags.solverTimeout, "solver-timeout", 5*time.Second, "Upper bound on a single QP solve")

	root.AddCommand(
		a.scoreCommand(),
		a.datasetCommand(),
		a.correlateCommand(),
		a.shockCommand(),
		a.allocateCommand(),
		a.portfolioCommand(),
	)
	return root
}

// services wires the simulation components from the global flags.
func (a *app) services() (*di.Container, error) {
	model := config.DefaultModel()
	if a.flags.modelFile != "" {
		loaded, err := config.LoadModel(a.flags.modelFile)
		if err != nil {
			return nil, codeError(exitInvalid, "loading model: %s", err)
		}
		model = loaded
	}
	if a.flags.solverTimeout <= 0 {
		return nil, codeError(exitInvalid, "--solver-timeout must be positive")
	}

	log := logger.New(logger.Config{Level: a.flags.logLevel, Output: a.errOut})
	cfg := &config.Config{SolverTimeout: a.flags.solverTimeout, Model: model}

	container := &di.Container{}
	if err := di.InitializeServices(container, cfg, log); err != nil {
		return nil, codeError(exitFailure, "%s", err)
	}
	return container, nil
}

// open returns the named input, where "-" is standard input.
func (a *app) open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(a.in), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, codeError(exitInvalid, "opening input: %s", err)
	}
	return f, nil
}
