package jobgraph_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph/schedulertest"
)

func newGraph(t *testing.T, opts ...schedulertest.Option) (*jobgraph.Graph, *schedulertest.Scheduler) {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	sched := schedulertest.New(opts...)

	return jobgraph.New(sched, jobgraph.WithLogger(logger)), sched
}

func addUnit(t *testing.T, g *jobgraph.Graph, id string, stage jobgraph.Stage, preds ...string) *jobgraph.Unit {
	t.Helper()

	u := jobgraph.NewUnit(id, stage, "run "+id)
	require.NoError(t, u.DependsOn(preds...))
	require.NoError(t, g.Add(u))

	return u
}

// pipeline builds align a/b, tile a/b and one combination unit.
func pipeline(t *testing.T, g *jobgraph.Graph) {
	t.Helper()

	addUnit(t, g, "a.fasta", jobgraph.StageAlignment)
	addUnit(t, g, "b.fasta", jobgraph.StageAlignment)
	addUnit(t, g, "a.tile", jobgraph.StageTiling, "a.fasta")
	addUnit(t, g, "b.tile", jobgraph.StageTiling, "b.fasta")
	addUnit(t, g, "combine", jobgraph.StageCombination, "a.tile", "b.tile")
}

func TestSubmitAll(t *testing.T) {
	t.Parallel()

	g, sched := newGraph(t)
	pipeline(t, g)
	require.NoError(t, g.Validate())
	require.NoError(t, g.SubmitAll(context.Background()))

	var order []string
	for _, s := range sched.Scripts() {
		order = append(order, s.UnitID)
	}
	assert.Equal(t, []string{"a.fasta", "b.fasta", "a.tile", "b.tile", "combine"}, order)

	script, ok := sched.Script("combine")
	require.True(t, ok)
	assert.Contains(t, script.Text, "#SBATCH --dependency=afterany:1003,1004\n")
	assert.Equal(t, "combine.sh", script.Name)

	script, ok = sched.Script("a.tile")
	require.True(t, ok)
	assert.Contains(t, script.Text, "#SBATCH --dependency=afterany:1001\n")

	script, ok = sched.Script("a.fasta")
	require.True(t, ok)
	assert.NotContains(t, script.Text, "--dependency")

	assert.Equal(t, 5, g.Registry().Len())
	h, ok := g.Registry().Handle("combine")
	require.True(t, ok)
	assert.Equal(t, "1005", h.ID)
}

func TestOrderKeepsInsertionForIndependentUnits(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)
	addUnit(t, g, "x", jobgraph.StageTiling)
	addUnit(t, g, "y", jobgraph.StageTiling)
	addUnit(t, g, "z", jobgraph.StageTiling)
	require.NoError(t, g.DependsOn("x", "z"))

	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z", "x"}, order)
}

func TestDependsOnCycle(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)
	addUnit(t, g, "a", jobgraph.StageAlignment)
	addUnit(t, g, "b", jobgraph.StageTiling, "a")
	addUnit(t, g, "c", jobgraph.StageCombination, "b")

	err := g.DependsOn("a", "c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, jobgraph.ErrCycle))

	u, err := g.Unit("a")
	require.NoError(t, err)
	assert.Empty(t, u.Predecessors())
	require.NoError(t, g.Validate())
}

func TestDependsOnLeavesGraphUnchangedOnError(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		preds []string
		err   error
	}{
		"unknown predecessor last": {preds: []string{"a", "missing"}, err: jobgraph.ErrUnknownUnit},
		"cycle after a valid edge": {preds: []string{"a", "c"}, err: jobgraph.ErrCycle},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			g, _ := newGraph(t)
			addUnit(t, g, "a", jobgraph.StageAlignment)
			addUnit(t, g, "b", jobgraph.StageTiling)
			addUnit(t, g, "c", jobgraph.StageCombination, "b")

			err := g.DependsOn("b", tc.preds...)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)

			u, err := g.Unit("b")
			require.NoError(t, err)
			assert.Empty(t, u.Predecessors())
			_, err = g.DAG().Edge("a", "b")
			assert.Error(t, err)
			require.NoError(t, g.Validate())
		})
	}
}

func TestValidateUndeclaredEdge(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)
	addUnit(t, g, "a", jobgraph.StageAlignment)
	b := addUnit(t, g, "b", jobgraph.StageTiling)

	// Declared on the unit only, so no edge orders a before b.
	require.NoError(t, b.DependsOn("a"))
	assert.True(t, errors.Is(g.Validate(), jobgraph.ErrUnlinked))

	require.NoError(t, g.DependsOn("b", "a"))
	require.NoError(t, g.Validate())
}

func TestAddErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		id    string
		preds []string
		err   error
	}{
		"duplicate":           {id: "a", err: jobgraph.ErrDuplicateUnit},
		"unknown predecessor": {id: "b", preds: []string{"missing"}, err: jobgraph.ErrUnknownUnit},
		"self dependency":     {id: "c", preds: []string{"c"}, err: jobgraph.ErrCycle},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			g, _ := newGraph(t)
			addUnit(t, g, "a", jobgraph.StageAlignment)

			u := jobgraph.NewUnit(tc.id, jobgraph.StageTiling, "true")
			require.NoError(t, u.DependsOn(tc.preds...))
			err := g.Add(u)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestSubmitRequiresSubmittedPredecessors(t *testing.T) {
	t.Parallel()

	g, sched := newGraph(t)
	pipeline(t, g)

	_, err := g.Submit(context.Background(), "a.tile")
	assert.True(t, errors.Is(err, jobgraph.ErrNotSubmitted))
	assert.Empty(t, sched.Scripts())
}

func TestSubmittedUnitIsImmutable(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)
	u := addUnit(t, g, "a", jobgraph.StageAlignment)
	addUnit(t, g, "b", jobgraph.StageAlignment)

	_, err := g.Submit(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, jobgraph.StateSubmitted, u.State())

	_, err = g.Submit(context.Background(), "a")
	assert.True(t, errors.Is(err, jobgraph.ErrUnitSubmitted))
	assert.True(t, errors.Is(u.AddCommand("echo"), jobgraph.ErrUnitSubmitted))
	assert.True(t, errors.Is(u.AddDirective("--mem", "1G"), jobgraph.ErrUnitSubmitted))
	assert.True(t, errors.Is(u.AddModules("muscle"), jobgraph.ErrUnitSubmitted))
	assert.True(t, errors.Is(u.DependsOn("b"), jobgraph.ErrUnitSubmitted))
	assert.True(t, errors.Is(u.SetDependencyMode(jobgraph.AfterOK), jobgraph.ErrUnitSubmitted))
	assert.True(t, errors.Is(g.DependsOn("a", "b"), jobgraph.ErrUnitSubmitted))
	assert.Equal(t, []string{"run a"}, u.Commands())
}

func TestSubmitError(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t, schedulertest.SubmitError("a", errors.Wrap(jobgraph.ErrSubmission, "sbatch said no")))
	u := addUnit(t, g, "a", jobgraph.StageAlignment)

	_, err := g.Submit(context.Background(), "a")
	assert.True(t, errors.Is(err, jobgraph.ErrSubmission))
	assert.Equal(t, 0, g.Registry().Len())
	assert.Equal(t, jobgraph.StateRendered, u.State())
}

func TestWait(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	sched := schedulertest.New(schedulertest.FinishAfter(3))
	g := jobgraph.New(sched, jobgraph.WithLogger(logger))
	addUnit(t, g, "a", jobgraph.StageAlignment)

	h, err := g.Submit(context.Background(), "a")
	require.NoError(t, err)

	require.NoError(t, g.Wait(context.Background(), "a", time.Millisecond))
	assert.Equal(t, 3, sched.Polls(h))
	assert.Equal(t, "finished", hook.LastEntry().Message)

	entry, ok := g.Registry().Entry("a")
	require.True(t, ok)
	assert.Equal(t, jobgraph.StatusCompleted, entry.Status)
	require.NotNil(t, entry.FinishedAt)

	// Terminal units are not polled again.
	done, err := g.IsFinished(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 3, sched.Polls(h))
}

func TestWaitFailedJob(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t, schedulertest.FailUnit("a"))
	addUnit(t, g, "a", jobgraph.StageAlignment)
	_, err := g.Submit(context.Background(), "a")
	require.NoError(t, err)

	err = g.Wait(context.Background(), "a", time.Millisecond)
	assert.True(t, errors.Is(err, jobgraph.ErrJobFailed))

	u, err := g.Unit("a")
	require.NoError(t, err)
	assert.Equal(t, jobgraph.StatusFailed, u.Status())
}

func TestWaitCancelled(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t, schedulertest.FinishAfter(1_000_000))
	addUnit(t, g, "a", jobgraph.StageAlignment)
	_, err := g.Submit(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = g.Wait(ctx, "a", time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWaitRejectsInterval(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)
	addUnit(t, g, "a", jobgraph.StageAlignment)
	_, err := g.Submit(context.Background(), "a")
	require.NoError(t, err)

	for _, interval := range []time.Duration{0, -time.Second} {
		err := g.Wait(context.Background(), "a", interval)
		assert.True(t, errors.Is(err, jobgraph.ErrInterval), "got %v", err)
	}
}

func TestPollNotSubmitted(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)
	addUnit(t, g, "a", jobgraph.StageAlignment)

	_, err := g.Poll(context.Background(), "a")
	assert.True(t, errors.Is(err, jobgraph.ErrNotSubmitted))

	_, err = g.Poll(context.Background(), "nope")
	assert.True(t, errors.Is(err, jobgraph.ErrUnknownUnit))
}

func TestRegistriesAreIndependent(t *testing.T) {
	t.Parallel()

	g1, _ := newGraph(t)
	g2, _ := newGraph(t)
	addUnit(t, g1, "a", jobgraph.StageAlignment)
	addUnit(t, g2, "a", jobgraph.StageAlignment)

	require.NoError(t, g1.SubmitAll(context.Background()))
	assert.Equal(t, 1, g1.Registry().Len())
	assert.Equal(t, 0, g2.Registry().Len())
	assert.NotEqual(t, g1.Registry().RunID(), g2.Registry().RunID())
}

func TestManifest(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)
	pipeline(t, g)
	require.NoError(t, g.SubmitAll(context.Background()))
	require.NoError(t, g.Wait(context.Background(), "combine", time.Millisecond))

	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, g.Registry().SaveManifest(path))

	m, err := jobgraph.LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, g.Registry().RunID(), m.RunID)
	require.Len(t, m.Jobs, 5)
	assert.Equal(t, "combine", m.Jobs[4].Unit)
	assert.Equal(t, jobgraph.StageCombination, m.Jobs[4].Stage)
	assert.Equal(t, jobgraph.StatusCompleted, m.Jobs[4].Status)
	assert.Equal(t, jobgraph.StatusRunning, m.Jobs[0].Status)
	assert.NotNil(t, m.Jobs[4].FinishedAt)
	assert.Nil(t, m.Jobs[0].FinishedAt)
}

func TestRegistryRecordTwice(t *testing.T) {
	t.Parallel()

	r := jobgraph.NewRegistry()
	require.NoError(t, r.Record("a", jobgraph.StageTiling, jobgraph.JobHandle{ID: "1"}, time.Now()))
	err := r.Record("a", jobgraph.StageTiling, jobgraph.JobHandle{ID: "2"}, time.Now())
	assert.True(t, errors.Is(err, jobgraph.ErrUnitSubmitted))
	assert.True(t, errors.Is(r.SetStatus("b", jobgraph.StatusCompleted, time.Now()), jobgraph.ErrNotSubmitted))
	assert.False(t, strings.Contains(r.RunID(), " "))
}
