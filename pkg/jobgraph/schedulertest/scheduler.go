// Package schedulertest provides an in-memory jobgraph.Scheduler for tests.
package schedulertest

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
)

// ErrUnknownJob is returned when polling a handle the scheduler never issued.
var ErrUnknownJob = errors.New("unknown job")

// Scheduler accepts every script, numbers jobs from 1001 and reports a job
// finished after a fixed number of polls.
type Scheduler struct {
	mu          sync.Mutex
	next        int
	finishAfter int
	scripts     []jobgraph.Script
	units       map[string]string
	polls       map[string]int
	failing     map[string]struct{}
	submitErrs  map[string]error
	onSubmit    func(jobgraph.Script)
}

// Option configures a Scheduler.
type Option func(s *Scheduler)

// FinishAfter makes jobs report running for n-1 polls and finish on the nth.
func FinishAfter(n int) Option {
	return func(s *Scheduler) {
		s.finishAfter = n
	}
}

// FailUnit makes the job of unitID finish as failed.
func FailUnit(unitID string) Option {
	return func(s *Scheduler) {
		s.failing[unitID] = struct{}{}
	}
}

// SubmitError makes submitting unitID fail with err.
func SubmitError(unitID string, err error) Option {
	return func(s *Scheduler) {
		s.submitErrs[unitID] = err
	}
}

// OnSubmit calls fn for every accepted script, before Submit returns.
func OnSubmit(fn func(jobgraph.Script)) Option {
	return func(s *Scheduler) {
		s.onSubmit = fn
	}
}

// New creates a scheduler whose jobs finish on the first poll.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		next:        1000,
		finishAfter: 1,
		units:       make(map[string]string),
		polls:       make(map[string]int),
		failing:     make(map[string]struct{}),
		submitErrs:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Scheduler) Submit(ctx context.Context, script jobgraph.Script) (jobgraph.JobHandle, error) {
	if err := ctx.Err(); err != nil {
		return jobgraph.JobHandle{}, err
	}

	s.mu.Lock()
	if err, ok := s.submitErrs[script.UnitID]; ok {
		s.mu.Unlock()
		return jobgraph.JobHandle{}, err
	}
	s.next++
	id := strconv.Itoa(s.next)
	s.scripts = append(s.scripts, script)
	s.units[id] = script.UnitID
	onSubmit := s.onSubmit
	s.mu.Unlock()

	if onSubmit != nil {
		onSubmit(script)
	}

	return jobgraph.JobHandle{ID: id}, nil
}

func (s *Scheduler) Poll(ctx context.Context, handle jobgraph.JobHandle) (jobgraph.Status, error) {
	if err := ctx.Err(); err != nil {
		return jobgraph.StatusUnknown, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[handle.ID]
	if !ok {
		return jobgraph.StatusUnknown, errors.Wrapf(ErrUnknownJob, "job %s", handle.ID)
	}

	s.polls[handle.ID]++
	if s.polls[handle.ID] < s.finishAfter {
		return jobgraph.StatusRunning, nil
	}
	if _, ok := s.failing[unit]; ok {
		return jobgraph.StatusFailed, nil
	}

	return jobgraph.StatusCompleted, nil
}

// Scripts returns the accepted scripts in submission order.
func (s *Scheduler) Scripts() []jobgraph.Script {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]jobgraph.Script(nil), s.scripts...)
}

// Script returns the accepted script of unitID.
func (s *Scheduler) Script(unitID string) (jobgraph.Script, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range s.scripts {
		if sc.UnitID == unitID {
			return sc, true
		}
	}

	return jobgraph.Script{}, false
}

// Polls returns how many times the job was polled.
func (s *Scheduler) Polls(handle jobgraph.JobHandle) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.polls[handle.ID]
}
