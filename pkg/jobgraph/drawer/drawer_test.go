package drawer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph/drawer"
	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph/schedulertest"
)

func twoUnits(t *testing.T, opts ...schedulertest.Option) *jobgraph.Graph {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	g := jobgraph.New(schedulertest.New(opts...), jobgraph.WithLogger(logger))
	require.NoError(t, g.Add(jobgraph.NewUnit("a", jobgraph.StageAlignment, "muscle")))
	b := jobgraph.NewUnit("b", jobgraph.StageTiling, "tile")
	require.NoError(t, b.DependsOn("a"))
	require.NoError(t, g.Add(b))

	return g
}

func TestWriteUnsubmitted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, drawer.New("unused").Write(&buf, twoUnits(t)))

	assert.Equal(t, "strict digraph {\n"+
		"\trankdir=\"LR\";\n"+
		"\t\"a\" [ fillcolor=\"#b2df8a\", style=\"filled\", weight=0 ];\n"+
		"\t\"a\" -> \"b\" [ weight=0 ];\n"+
		"\t\"b\" [ fillcolor=\"#fdbf6f\", style=\"filled\", weight=0 ];\n"+
		"}\n", buf.String())
}

func TestWriteElapsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := twoUnits(t, schedulertest.FinishAfter(1))
	require.NoError(t, g.SubmitAll(ctx))
	require.NoError(t, g.Wait(ctx, "a", time.Millisecond))

	later := time.Now().Add(90 * time.Second)
	var buf bytes.Buffer
	require.NoError(t, drawer.New("unused", drawer.WithClock(func() time.Time { return later })).Write(&buf, g))

	out := buf.String()
	assert.Contains(t, out, `"a" [ label=<a <BR /> <FONT POINT-SIZE="12">job 1001, 0s</FONT>>, color="#0000f0", `)
	assert.Contains(t, out, `"b" [ label=<b <BR /> <FONT POINT-SIZE="12">job 1002, 1m30s</FONT>>, color="#f00000", `)
}

func TestWriteFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := twoUnits(t, schedulertest.FailUnit("a"))
	require.NoError(t, g.SubmitAll(ctx))
	require.Error(t, g.Wait(ctx, "a", time.Millisecond))

	var buf bytes.Buffer
	require.NoError(t, drawer.New("unused").Write(&buf, g))
	assert.Contains(t, buf.String(), `color="#ff0000", fillcolor="#b2df8a", penwidth="3", style="filled"`)
}

func TestDraw(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.dot")
	require.NoError(t, drawer.New(path).Draw(twoUnits(t)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"a" -> "b"`)
}
