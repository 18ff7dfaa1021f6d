// Package redundancy measures how often the short sub-windows (x-mers) of a
// set of input sequences recur in a tiled library.
package redundancy

import (
	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/sequence"
	"github.com/LadnerLab/Protein-Oligo/pkg/tiling"
)

// Options configures x-mer extraction. X-mers are always read with a step of
// one residue.
type Options struct {
	XmerSize int
	SpanGaps bool
}

// Table maps every x-mer of the input sequences to the number of times it
// occurs in the library. All keys exist with a zero count before counting.
type Table struct {
	opts   Options
	counts map[string]int
	order  []string
}

// NewTable builds the x-mer universe of seqs. X-mers holding an unknown
// residue are left out because no library window can contain them.
func NewTable(seqs []sequence.Sequence, opts Options) (*Table, error) {
	t := &Table{
		opts:   opts,
		counts: make(map[string]int),
	}
	for _, s := range seqs {
		err := tiling.Windows(s.Residues, opts.XmerSize, 1, opts.SpanGaps, func(_, _ int, xmer string) {
			if !tiling.IsValid(xmer, tiling.Unrestricted()) {
				return
			}
			if _, ok := t.counts[xmer]; ok {
				return
			}
			t.counts[xmer] = 0
			t.order = append(t.order, xmer)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to extract x-mers from %s", s.Name)
		}
	}

	return t, nil
}

// Count adds every x-mer occurrence of every library window to the table.
// Repeats inside one window are counted individually; x-mers missing from the
// universe are ignored.
func (t *Table) Count(library []sequence.Sequence) error {
	for _, y := range library {
		err := tiling.Windows(y.Residues, t.opts.XmerSize, 1, t.opts.SpanGaps, func(_, _ int, xmer string) {
			if _, ok := t.counts[xmer]; ok {
				t.counts[xmer]++
			}
		})
		if err != nil {
			return errors.Wrapf(err, "unable to extract x-mers from %s", y.Name)
		}
	}

	return nil
}

// Size returns the number of distinct x-mers in the universe.
func (t *Table) Size() int {
	return len(t.counts)
}

// Get returns the count of xmer and whether it belongs to the universe.
func (t *Table) Get(xmer string) (int, bool) {
	c, ok := t.counts[xmer]
	return c, ok
}

// Xmers returns the universe in the order the x-mers were first seen.
func (t *Table) Xmers() []string {
	return append([]string(nil), t.order...)
}

// Total returns the sum of all counts.
func (t *Table) Total() int {
	total := 0
	for _, c := range t.counts {
		total += c
	}

	return total
}

// Represented returns the number of universe x-mers seen at least once.
func (t *Table) Represented() int {
	n := 0
	for _, c := range t.counts {
		if c > 0 {
			n++
		}
	}

	return n
}
