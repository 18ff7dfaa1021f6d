package jobgraph

import (
	"context"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LadnerLab/Protein-Oligo/internal/store"
)

// Graph holds units and their dependency edges. Edges point from a
// predecessor to the unit depending on it.
type Graph struct {
	store     store.Store[string, *Unit]
	graph     graph.Graph[string, *Unit]
	added     map[string]int
	scheduler Scheduler
	registry  *Registry
	logger    logrus.FieldLogger
	now       func() time.Time
}

// Option configures a Graph.
type Option func(g *Graph)

// WithRegistry records submissions in r instead of a fresh registry.
func WithRegistry(r *Registry) Option {
	return func(g *Graph) {
		g.registry = r
	}
}

// WithLogger sets the logger used for submission and polling events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

func unitHash(u *Unit) string {
	return u.ID()
}

// New creates an empty graph submitting through scheduler.
func New(scheduler Scheduler, opts ...Option) *Graph {
	s := store.NewMemoryStore[string, *Unit]()
	g := &Graph{
		store:     s,
		graph:     graph.NewWithStore[string, *Unit](unitHash, s, graph.Directed(), graph.PreventCycles()),
		added:     make(map[string]int),
		scheduler: scheduler,
		logger:    logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = NewRegistry()
	}

	return g
}

// Registry returns the registry submissions are recorded in.
func (g *Graph) Registry() *Registry {
	return g.registry
}

// DAG exposes the underlying graph for read-only use such as drawing.
func (g *Graph) DAG() graph.Graph[string, *Unit] {
	return g.graph
}

// Len returns the number of units.
func (g *Graph) Len() int {
	return len(g.added)
}

// Unit returns the unit with the given ID.
func (g *Graph) Unit(id string) (*Unit, error) {
	u, err := g.graph.Vertex(id)
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownUnit, "unit %s", id)
	}

	return u, nil
}

// Add inserts u. Every predecessor u already declares must be in the graph.
func (g *Graph) Add(u *Unit) error {
	if _, ok := g.added[u.ID()]; ok {
		return errors.Wrapf(ErrDuplicateUnit, "unit %s", u.ID())
	}
	for _, p := range u.Predecessors() {
		if p == u.ID() {
			return errors.Wrapf(ErrCycle, "unit %s depends on itself", p)
		}
		if _, ok := g.added[p]; !ok {
			return errors.Wrapf(ErrUnknownUnit, "predecessor %s of %s", p, u.ID())
		}
	}

	err := g.graph.AddVertex(u, graph.VertexAttribute("stage", string(u.Stage())))
	if err != nil {
		return errors.Wrapf(err, "unable to add unit %s", u.ID())
	}
	g.added[u.ID()] = len(g.added)

	for _, p := range u.Predecessors() {
		if _, err := g.link(p, u.ID()); err != nil {
			return err
		}
	}

	return nil
}

// DependsOn makes the unit id depend on predecessors. On any error, an
// unknown predecessor or an edge that would close a cycle (ErrCycle), the
// graph and the unit are left unchanged.
func (g *Graph) DependsOn(id string, predecessors ...string) error {
	u, err := g.Unit(id)
	if err != nil {
		return err
	}
	if err := u.mutable(); err != nil {
		return err
	}

	for _, p := range predecessors {
		if _, ok := g.added[p]; !ok {
			return errors.Wrapf(ErrUnknownUnit, "predecessor %s of %s", p, id)
		}
	}

	linked := make([]string, 0, len(predecessors))
	for _, p := range predecessors {
		added, err := g.link(p, id)
		if err != nil {
			g.unlink(linked, id)
			return err
		}
		if added {
			linked = append(linked, p)
		}
	}

	return u.DependsOn(predecessors...)
}

// link adds the edge predecessor -> id and reports whether it is new.
func (g *Graph) link(predecessor, id string) (bool, error) {
	err := g.graph.AddEdge(predecessor, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, graph.ErrEdgeAlreadyExists):
		return false, nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return false, errors.Wrapf(ErrCycle, "%s -> %s", predecessor, id)
	default:
		return false, errors.Wrapf(err, "unable to link %s to %s", predecessor, id)
	}
}

func (g *Graph) unlink(predecessors []string, id string) {
	for _, p := range predecessors {
		if err := g.graph.RemoveEdge(p, id); err != nil {
			g.logger.WithError(err).WithField("unit", id).Warn("unable to remove edge")
		}
	}
}

// Order returns the unit IDs in dependency order. Units without an ordering
// constraint between them keep the order they were added in.
func (g *Graph) Order() ([]string, error) {
	order, err := graph.StableTopologicalSort(g.graph, func(a, b string) bool {
		return g.added[a] < g.added[b]
	})
	if err != nil {
		return nil, errors.Wrapf(ErrCycle, "unable to order units: %v", err)
	}

	return order, nil
}

// Validate checks that the graph is acyclic, that every declared
// predecessor is a unit of the graph and that the declared predecessors of
// each unit match its incoming edges (ErrUnlinked otherwise).
func (g *Graph) Validate() error {
	if _, err := g.Order(); err != nil {
		return err
	}
	for id := range g.added {
		u, err := g.Unit(id)
		if err != nil {
			return err
		}
		for _, p := range u.Predecessors() {
			if _, ok := g.added[p]; !ok {
				return errors.Wrapf(ErrUnknownUnit, "predecessor %s of %s", p, id)
			}
		}

		edges, err := g.store.Predecessors(id)
		if err != nil {
			return errors.Wrapf(err, "unable to list edges into %s", id)
		}
		if len(edges) != len(u.Predecessors()) {
			return errors.Wrapf(ErrUnlinked, "unit %s declares %v, edges from %v", id, u.Predecessors(), edges)
		}
		for _, p := range edges {
			if !u.hasPredecessor(p) {
				return errors.Wrapf(ErrUnlinked, "edge %s -> %s is not declared", p, id)
			}
		}
	}

	return nil
}

// Submit renders the unit id with the job IDs of its predecessors and hands
// it to the scheduler. Every predecessor must already be submitted.
func (g *Graph) Submit(ctx context.Context, id string) (JobHandle, error) {
	u, err := g.Unit(id)
	if err != nil {
		return JobHandle{}, err
	}
	if err := u.mutable(); err != nil {
		return JobHandle{}, err
	}

	preds := u.Predecessors()
	jobs := make([]string, 0, len(preds))
	for _, p := range preds {
		h, ok := g.registry.Handle(p)
		if !ok {
			return JobHandle{}, errors.Wrapf(ErrNotSubmitted, "predecessor %s of %s", p, id)
		}
		jobs = append(jobs, h.ID)
	}

	text, err := u.RenderString(jobs)
	if err != nil {
		return JobHandle{}, err
	}

	handle, err := g.scheduler.Submit(ctx, Script{UnitID: id, Name: u.ScriptName(), Dir: u.Dir(), Text: text})
	if err != nil {
		return JobHandle{}, errors.Wrapf(err, "unable to submit unit %s", id)
	}

	if err := g.registry.Record(id, u.Stage(), handle, g.now()); err != nil {
		return JobHandle{}, err
	}
	u.markSubmitted(handle)
	if err := g.store.SetVertexAttribute(id, "job", handle.ID); err != nil {
		return JobHandle{}, errors.Wrapf(err, "unable to tag unit %s", id)
	}

	g.logger.WithFields(logrus.Fields{
		"unit":  id,
		"stage": u.Stage(),
		"job":   handle.ID,
	}).Info("submitted")

	return handle, nil
}

// SubmitAll submits every unit not yet submitted, in dependency order.
func (g *Graph) SubmitAll(ctx context.Context) error {
	order, err := g.Order()
	if err != nil {
		return err
	}

	for _, id := range order {
		u, err := g.Unit(id)
		if err != nil {
			return err
		}
		if u.State() == StateSubmitted {
			continue
		}
		if _, err := g.Submit(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// Poll asks the scheduler for the status of the unit id.
func (g *Graph) Poll(ctx context.Context, id string) (Status, error) {
	u, err := g.Unit(id)
	if err != nil {
		return StatusUnknown, err
	}
	handle, ok := u.Handle()
	if !ok {
		return StatusUnknown, errors.Wrapf(ErrNotSubmitted, "unit %s", id)
	}
	if u.status.Terminal() {
		return u.status, nil
	}

	status, err := g.scheduler.Poll(ctx, handle)
	if err != nil {
		return StatusUnknown, errors.Wrapf(err, "unable to poll unit %s", id)
	}
	if status == StatusUnknown {
		return status, nil
	}

	u.status = status
	if err := g.registry.SetStatus(id, status, g.now()); err != nil {
		return status, err
	}
	if status.Terminal() {
		if err := g.store.SetVertexAttribute(id, "status", status.String()); err != nil {
			return status, errors.Wrapf(err, "unable to tag unit %s", id)
		}
	}

	return status, nil
}

// IsFinished reports whether the job of unit id has left the scheduler. A
// failed job is finished and reported with ErrJobFailed.
func (g *Graph) IsFinished(ctx context.Context, id string) (bool, error) {
	status, err := g.Poll(ctx, id)
	if err != nil {
		return false, err
	}

	switch status {
	case StatusCompleted:
		return true, nil
	case StatusFailed:
		return true, errors.Wrapf(ErrJobFailed, "unit %s", id)
	default:
		return false, nil
	}
}

// Wait polls the unit id every interval until its job finishes or ctx is
// done.
func (g *Graph) Wait(ctx context.Context, id string, interval time.Duration) error {
	if interval <= 0 {
		return errors.Wrapf(ErrInterval, "waiting for unit %s every %s", id, interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := g.IsFinished(ctx, id)
		if err != nil {
			return err
		}
		if done {
			g.logger.WithField("unit", id).Info("finished")
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for unit %s", id)
		case <-ticker.C:
		}
	}
}
