// Package driver runs the library design pipeline on a batch cluster:
// optional clustering, one alignment and one tiling job per cluster, then a
// single job combining every cluster library.
package driver

import (
	"context"
	"os"
	"path/filepath"

	"al.essio.dev/pkg/shellescape"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph/drawer"
	"github.com/LadnerLab/Protein-Oligo/pkg/sequence"
)

const (
	clusterUnitID = "cluster"
	combineUnitID = "combine"
	combinedFile  = "combined.fasta"
	manifestFile  = "jobs.yaml"
)

func alignUnitID(file string) string { return "align/" + file }

func tileUnitID(file string) string { return "tile/" + file }

// Result describes a finished run.
type Result struct {
	// Output is the absolute path of the combined library.
	Output    string
	Clustered bool
	Clusters  []string
	Graph     *jobgraph.Graph
	// Manifest is the path of the job registry written for the run.
	Manifest string
}

// Driver runs the pipeline described by a Config.
type Driver struct {
	cfg       Config
	scheduler jobgraph.Scheduler
	logger    logrus.FieldLogger
	registry  *jobgraph.Registry
}

// Option configures a Driver.
type Option func(d *Driver)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithRegistry records the run's jobs in r.
func WithRegistry(r *jobgraph.Registry) Option {
	return func(d *Driver) {
		d.registry = r
	}
}

// New creates a driver submitting through scheduler.
func New(cfg Config, scheduler jobgraph.Scheduler, opts ...Option) *Driver {
	d := &Driver{
		cfg:       cfg,
		scheduler: scheduler,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = jobgraph.NewRegistry()
	}

	return d
}

// Run is New(cfg, scheduler, opts...).Run(ctx).
func Run(ctx context.Context, cfg Config, scheduler jobgraph.Scheduler, opts ...Option) (*Result, error) {
	return New(cfg, scheduler, opts...).Run(ctx)
}

// Run submits the pipeline and blocks until the combination job finishes.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	directives, err := d.cfg.directives()
	if err != nil {
		return nil, err
	}
	output, err := filepath.Abs(d.cfg.Output)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve %s", d.cfg.Output)
	}
	clusterDir, err := filepath.Abs(d.cfg.ClusterDir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve %s", d.cfg.ClusterDir)
	}

	needCluster, err := d.needsClustering(clusterDir)
	if err != nil {
		return nil, err
	}

	logger := d.logger.WithField("run", d.registry.RunID())
	g := jobgraph.New(d.scheduler, jobgraph.WithLogger(logger), jobgraph.WithRegistry(d.registry))
	res := &Result{Output: output, Clustered: needCluster, Graph: g}

	if needCluster {
		if err := d.cluster(ctx, g, directives); err != nil {
			return res, err
		}
	}

	if err := WaitForClusterDir(ctx, clusterDir, d.cfg.PollInterval, logger); err != nil {
		return res, err
	}
	if needCluster {
		// Cluster files are complete only once the clustering job ends.
		if err := g.Wait(ctx, clusterUnitID, d.cfg.PollInterval); err != nil {
			return res, errors.Wrap(err, "clustering")
		}
	}

	res.Clusters, err = ClusterFiles(clusterDir)
	if err != nil {
		return res, err
	}
	if len(res.Clusters) == 0 {
		return res, errors.Wrapf(ErrNoClusters, "in %s", clusterDir)
	}
	logger.WithFields(logrus.Fields{"dir": clusterDir, "clusters": len(res.Clusters)}).Info("found clusters")

	if err := d.build(g, clusterDir, output, res.Clusters, directives); err != nil {
		return res, err
	}

	err = d.submitAndWait(ctx, g)
	if ferr := d.finish(g, clusterDir, res); err == nil {
		err = ferr
	}
	if err != nil {
		return res, err
	}

	if d.cfg.FinalDedup {
		if err := dedupeFile(output); err != nil {
			return res, err
		}
	}

	logger.WithField("output", output).Info("library complete")

	return res, nil
}

// needsClustering decides whether the clustering stage runs and checks the
// options it needs.
func (d *Driver) needsClustering(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case err == nil && len(entries) > 0:
		return false, nil
	case err == nil && d.cfg.Query == "":
		return false, errors.Wrapf(ErrEmptyClusterDir,
			"%s: provide a query file to cluster or populate the directory with clusters", dir)
	case err != nil && !os.IsNotExist(err):
		return false, errors.Wrapf(err, "unable to read %s", dir)
	}

	if d.cfg.Query == "" {
		return false, errors.Wrap(ErrMissingRequiredOption, "a FASTA query file must be provided")
	}
	if d.cfg.taxonomic() && d.cfg.Lineage == "" {
		return false, errors.Wrap(ErrMissingRequiredOption, "a lineage file must be provided for taxonomic clustering")
	}

	return true, nil
}

func (d *Driver) cluster(ctx context.Context, g *jobgraph.Graph, directives []jobgraph.Directive) error {
	cmd := d.cfg.Commands.Clusterer + " " + shellescape.QuoteCommand(d.cfg.clusterArgs())
	u := jobgraph.NewUnit(clusterUnitID, jobgraph.StageClustering, cmd)
	if err := u.AddDirectives(directives...); err != nil {
		return err
	}
	if err := u.AddModules(d.cfg.Commands.ClusteringModules...); err != nil {
		return err
	}
	if err := g.Add(u); err != nil {
		return err
	}
	_, err := g.Submit(ctx, clusterUnitID)

	return err
}

// build adds the alignment, tiling and combination units.
func (d *Driver) build(g *jobgraph.Graph, dir, output string, clusters []string, directives []jobgraph.Directive) error {
	args, err := d.cfg.designArgs()
	if err != nil {
		return err
	}
	designArgs := shellescape.QuoteCommand(args)
	tiles := make([]string, 0, len(clusters))

	for _, file := range clusters {
		aligned := file + ".aligned"

		align := jobgraph.NewUnit(alignUnitID(file), jobgraph.StageAlignment,
			d.cfg.Commands.Aligner+" -in "+shellescape.Quote(file)+" -out "+shellescape.Quote(aligned))
		tile := jobgraph.NewUnit(tileUnitID(file), jobgraph.StageTiling,
			d.cfg.Commands.Tiler+" design -a "+shellescape.Quote(aligned)+" -o "+shellescape.Quote(aligned+"_out")+" "+designArgs)

		err := firstErr(
			align.SetDir(dir),
			align.AddDirectives(directives...),
			align.AddDirective("--job-name", shellescape.Quote(file)),
			align.AddModules(d.cfg.Commands.AlignmentModules...),
			g.Add(align),
			tile.SetDir(dir),
			tile.AddDirectives(directives...),
			tile.AddModules(d.cfg.Commands.TilingModules...),
			tile.DependsOn(align.ID()),
			g.Add(tile),
		)
		if err != nil {
			return errors.Wrapf(err, "unable to build units for %s", file)
		}
		tiles = append(tiles, tile.ID())
	}

	combine := jobgraph.NewUnit(combineUnitID, jobgraph.StageCombination, `cat "$(pwd)"/*_out > `+combinedFile)
	err = firstErr(
		combine.SetDir(dir),
		combine.AddCommand("mv "+combinedFile+" "+shellescape.Quote(output)),
		combine.AddDirectives(directives...),
		combine.SetDependencyMode(jobgraph.AfterAny),
		combine.DependsOn(tiles...),
		g.Add(combine),
	)
	if err != nil {
		return errors.Wrap(err, "unable to build combination unit")
	}

	return g.Validate()
}

func (d *Driver) submitAndWait(ctx context.Context, g *jobgraph.Graph) error {
	if err := g.SubmitAll(ctx); err != nil {
		return err
	}

	return g.Wait(ctx, combineUnitID, d.cfg.PollInterval)
}

// finish writes the job manifest and, when asked, the DOT graph.
func (d *Driver) finish(g *jobgraph.Graph, dir string, res *Result) error {
	res.Manifest = filepath.Join(dir, manifestFile)
	if err := g.Registry().SaveManifest(res.Manifest); err != nil {
		return err
	}
	if d.cfg.DOT != "" {
		if err := drawer.New(d.cfg.DOT).Draw(g); err != nil {
			return errors.Wrap(err, "unable to draw job graph")
		}
	}

	return nil
}

// dedupeFile rewrites a FASTA file with one record per residue string.
func dedupeFile(path string) error {
	seqs, err := sequence.ReadFile(path)
	if err != nil {
		return err
	}

	return sequence.WriteFile(path, sequence.DedupeByResidues(seqs))
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
