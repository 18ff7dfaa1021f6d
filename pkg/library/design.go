// Package library designs an oligo tiling library from one alignment: it
// tiles every sequence, merges and deduplicates the windows, and scores the
// redundancy of the result.
package library

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/LadnerLab/Protein-Oligo/pkg/redundancy"
	"github.com/LadnerLab/Protein-Oligo/pkg/sequence"
	"github.com/LadnerLab/Protein-Oligo/pkg/tiling"
)

// Options configures a design run.
type Options struct {
	WindowSize int
	StepSize   int
	XmerSize   int
	SpanGaps   bool
	Policy     tiling.Policy
	// Concurrency is the number of sequences tiled at once. Zero or one
	// tiles sequentially.
	Concurrency int
}

func (o Options) tiling() tiling.Options {
	return tiling.Options{
		WindowSize: o.WindowSize,
		StepSize:   o.StepSize,
		SpanGaps:   o.SpanGaps,
		Policy:     o.Policy,
	}
}

// Validate reports whether the options can drive a design run.
func (o Options) Validate() error {
	if err := o.tiling().Validate(); err != nil {
		return err
	}
	if o.XmerSize <= 0 {
		return errors.Wrapf(tiling.ErrInvalidParameter, "x-mer size must be positive, got %d", o.XmerSize)
	}

	return nil
}

// Result is a designed library and its statistics.
type Result struct {
	Library []sequence.Sequence
	Summary redundancy.Summary
}

// Design tiles seqs, deduplicates the windows across sequences and scores the
// library against the x-mers of seqs.
func Design(ctx context.Context, seqs []sequence.Sequence, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	perSeq, err := tileAll(ctx, seqs, opts)
	if err != nil {
		return nil, err
	}

	var windows []sequence.Sequence
	for _, w := range perSeq {
		windows = append(windows, w...)
	}
	lib := sequence.DedupeByResidues(windows)

	summary, err := redundancy.Score(seqs, lib, len(windows), redundancy.Options{
		XmerSize: opts.XmerSize,
		SpanGaps: opts.SpanGaps,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to score library")
	}

	return &Result{Library: lib, Summary: summary}, nil
}

func tileOne(s sequence.Sequence, opts tiling.Options) ([]sequence.Sequence, error) {
	windows, err := tiling.Tile(s.Name, s.Residues, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to tile %s", s.Name)
	}

	return windows, nil
}

func sequentialTile(ctx context.Context, seqs []sequence.Sequence, opts tiling.Options) ([][]sequence.Sequence, error) {
	out := make([][]sequence.Sequence, len(seqs))
	for i, s := range seqs {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "tiling interrupted")
		}
		windows, err := tileOne(s, opts)
		if err != nil {
			return nil, err
		}
		out[i] = windows
	}

	return out, nil
}

// concurrentTile fills one slot per sequence so the merged output keeps the
// input order.
func concurrentTile(ctx context.Context, seqs []sequence.Sequence, opts tiling.Options, concurrent int) ([][]sequence.Sequence, error) {
	out := make([][]sequence.Sequence, len(seqs))
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrent)
	for i := range seqs {
		idx := i
		errGrp.Go(func() error {
			if err := dCtx.Err(); err != nil {
				return errors.Wrapf(err, "go routine %d:", idx)
			}
			windows, err := tileOne(seqs[idx], opts)
			if err != nil {
				return err
			}
			out[idx] = windows
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func tileAll(ctx context.Context, seqs []sequence.Sequence, opts Options) ([][]sequence.Sequence, error) {
	if opts.Concurrency <= 1 {
		return sequentialTile(ctx, seqs, opts.tiling())
	}

	return concurrentTile(ctx, seqs, opts.tiling(), opts.Concurrency)
}
