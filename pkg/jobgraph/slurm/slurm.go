// Package slurm submits jobgraph units to a Slurm cluster through the sbatch,
// squeue and sacct commands.
package slurm

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
)

const scriptMode = 0o755

// Scheduler is a jobgraph.Scheduler backed by Slurm.
type Scheduler struct {
	workDir    string
	scriptDir  string
	accounting bool
	runner     Runner
	logger     logrus.FieldLogger
}

// Option configures a Scheduler.
type Option func(s *Scheduler)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(s *Scheduler) {
		s.runner = r
	}
}

// WithScriptDir writes every script to dir instead of the directory the job
// runs in.
func WithScriptDir(dir string) Option {
	return func(s *Scheduler) {
		s.scriptDir = dir
	}
}

// WithAccounting asks sacct for the final state of jobs that left the queue,
// so failed jobs are told apart from completed ones.
func WithAccounting(enabled bool) Option {
	return func(s *Scheduler) {
		s.accounting = enabled
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a scheduler that runs Slurm commands in workDir. Scripts naming
// their own directory are submitted from it.
func New(workDir string, opts ...Option) *Scheduler {
	s := &Scheduler{
		workDir: workDir,
		runner:  execRunner{},
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Submit writes the script and hands it to sbatch from the script's
// directory.
func (s *Scheduler) Submit(ctx context.Context, script jobgraph.Script) (jobgraph.JobHandle, error) {
	dir := script.Dir
	if dir == "" {
		dir = s.workDir
	}
	scriptDir := s.scriptDir
	if scriptDir == "" {
		scriptDir = dir
	}

	path, err := filepath.Abs(filepath.Join(scriptDir, script.Name))
	if err != nil {
		return jobgraph.JobHandle{}, errors.Wrapf(err, "unable to resolve script path for %s", script.UnitID)
	}
	if err := os.WriteFile(path, []byte(script.Text), scriptMode); err != nil {
		return jobgraph.JobHandle{}, errors.Wrapf(err, "unable to write script %s", path)
	}
	if err := os.Chmod(path, scriptMode); err != nil {
		return jobgraph.JobHandle{}, errors.Wrapf(err, "unable to make %s executable", path)
	}

	out, err := s.runner.Run(ctx, dir, "sbatch", path)
	if err != nil {
		return jobgraph.JobHandle{}, errors.Wrapf(jobgraph.ErrSubmission, "sbatch %s: %v: %s", path, err, strings.TrimSpace(out))
	}

	id, err := parseJobID(out)
	if err != nil {
		return jobgraph.JobHandle{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"unit":   script.UnitID,
		"job":    id,
		"script": path,
	}).Debug("sbatch accepted script")

	return jobgraph.JobHandle{ID: id}, nil
}

// parseJobID reads the job number from "Submitted batch job <id>".
func parseJobID(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) < 4 {
		return "", errors.Wrapf(jobgraph.ErrSubmission, "unexpected sbatch output %q", out)
	}
	if _, err := strconv.ParseUint(fields[3], 10, 64); err != nil {
		return "", errors.Wrapf(jobgraph.ErrSubmission, "unexpected sbatch output %q", out)
	}

	return fields[3], nil
}

// Poll reports a job running while squeue lists it.
func (s *Scheduler) Poll(ctx context.Context, handle jobgraph.JobHandle) (jobgraph.Status, error) {
	out, err := s.runner.Run(ctx, s.workDir, "squeue", "-h", "-j", handle.ID)
	switch {
	case err != nil && strings.Contains(out, "Invalid job id"):
	case err != nil:
		return jobgraph.StatusUnknown, errors.Wrapf(err, "squeue job %s: %s", handle.ID, strings.TrimSpace(out))
	case strings.TrimSpace(out) != "":
		return jobgraph.StatusRunning, nil
	}

	if !s.accounting {
		return jobgraph.StatusCompleted, nil
	}

	return s.accountedStatus(ctx, handle)
}

func (s *Scheduler) accountedStatus(ctx context.Context, handle jobgraph.JobHandle) (jobgraph.Status, error) {
	out, err := s.runner.Run(ctx, s.workDir, "sacct", "-n", "-X", "-P", "-o", "State", "-j", handle.ID)
	if err != nil {
		return jobgraph.StatusUnknown, errors.Wrapf(err, "sacct job %s: %s", handle.ID, strings.TrimSpace(out))
	}

	state := ""
	if fields := strings.Fields(out); len(fields) > 0 {
		state = fields[0]
	}
	status := parseState(state)
	s.logger.WithFields(logrus.Fields{
		"job":   handle.ID,
		"state": state,
	}).Debug("sacct state")

	return status, nil
}

func parseState(state string) jobgraph.Status {
	switch state {
	case "COMPLETED":
		return jobgraph.StatusCompleted
	case "FAILED", "CANCELLED", "TIMEOUT", "OUT_OF_MEMORY", "NODE_FAIL", "BOOT_FAIL", "DEADLINE", "PREEMPTED":
		return jobgraph.StatusFailed
	case "PENDING", "RUNNING", "COMPLETING", "REQUEUED", "RESIZING", "SUSPENDED":
		return jobgraph.StatusRunning
	default:
		return jobgraph.StatusUnknown
	}
}
