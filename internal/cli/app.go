// Package cli implements the protein-oligo command line.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LadnerLab/Protein-Oligo/pkg/driver"
	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph/slurm"
	"github.com/LadnerLab/Protein-Oligo/pkg/library"
)

const usage = `usage: protein-oligo <command> [flags]

commands:
  design     tile one alignment into an oligo library
  pipeline   cluster, align and tile proteins as batch jobs
`

// SchedulerFunc builds the scheduler used by the pipeline command.
type SchedulerFunc func(cfg driver.Config, logger logrus.FieldLogger) jobgraph.Scheduler

// SlurmScheduler submits jobs with sbatch from the current directory.
func SlurmScheduler(cfg driver.Config, logger logrus.FieldLogger) jobgraph.Scheduler {
	return slurm.New(".", slurm.WithAccounting(cfg.Accounting), slurm.WithLogger(logger))
}

// App runs protein-oligo commands.
type App struct {
	stdout    io.Writer
	stderr    io.Writer
	scheduler SchedulerFunc
}

// AppOption configures an App.
type AppOption func(a *App)

// WithScheduler replaces the Slurm scheduler of the pipeline command.
func WithScheduler(fn SchedulerFunc) AppOption {
	return func(a *App) {
		a.scheduler = fn
	}
}

// New creates an App writing results to stdout and logs to stderr.
func New(stdout, stderr io.Writer, opts ...AppOption) *App {
	a := &App{
		stdout:    stdout,
		stderr:    stderr,
		scheduler: SlurmScheduler,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Run executes the command named by args[0] and returns the process exit
// code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return 1
	}

	var err error
	switch args[0] {
	case "design":
		err = a.design(ctx, args[1:])
	case "pipeline":
		err = a.pipeline(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return 0
	default:
		err = errors.Wrapf(ErrUsage, "unknown command %q", args[0])
		fmt.Fprint(a.stderr, usage)
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	default:
		fmt.Fprintln(a.stderr, "error:", err)
		return 1
	}
}

func (a *App) newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(ErrUsage, err.Error())
	}

	logger := logrus.New()
	logger.SetOutput(a.stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logger, nil
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := NewFlagSet(name)
	fs.SetOutput(a.stderr)

	return fs
}

func (a *App) design(ctx context.Context, args []string) error {
	opts, err := ParseDesign(a.flagSet("design"), args)
	if err != nil {
		return err
	}
	logger, err := a.newLogger(opts.LogLevel)
	if err != nil {
		return err
	}

	res, err := library.DesignFile(ctx, opts.Alignment, opts.Output, opts.Library)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"input":  opts.Alignment,
		"output": opts.Output,
		"policy": opts.Library.Policy.String(),
		"oligos": len(res.Library),
	}).Info("library designed")

	return res.Summary.WriteReport(a.stdout, opts.Library.WindowSize, opts.Library.XmerSize)
}

func (a *App) pipeline(ctx context.Context, args []string) error {
	cfg, err := ParsePipeline(a.flagSet("pipeline"), args)
	if err != nil {
		return err
	}
	logger, err := a.newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}

	res, err := driver.Run(ctx, cfg, a.scheduler(cfg, logger), driver.WithLogger(logger))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(a.stdout, res.Output)

	return err
}

// Run is New(stdout, stderr).Run(ctx, args).
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return New(stdout, stderr).Run(ctx, args)
}
