package tiling

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/sequence"
)

// Options configures a tiling pass.
type Options struct {
	WindowSize int
	StepSize   int
	SpanGaps   bool
	Policy     Policy
}

// Validate reports whether the options can drive a tiling pass.
func (o Options) Validate() error {
	if o.WindowSize <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "window size must be positive, got %d", o.WindowSize)
	}
	if o.StepSize <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "step size must be positive, got %d", o.StepSize)
	}

	return o.Policy.Validate()
}

// WindowName returns the name of the window of parent covering
// residues[start:end].
func WindowName(parent string, start, end int) string {
	return fmt.Sprintf("%s_%d_%d", parent, start+1, end)
}

// Windows calls fn with every window of residues in scan order, without
// validity filtering or deduplication. start and end delimit the span of
// residues the window was read from.
//
// Without spanGaps a window is residues[start:start+size]. With spanGaps a
// window collects size non-gap residues from start on and holds no gaps;
// scanning stops at the first start that cannot collect enough residues.
// No window is produced when size is not smaller than len(residues).
func Windows(residues string, size, step int, spanGaps bool, fn func(start, end int, window string)) error {
	if size <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "window size must be positive, got %d", size)
	}
	if step <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "step size must be positive, got %d", step)
	}

	n := len(residues)
	if size >= n {
		return nil
	}

	if !spanGaps {
		for start := 0; start+size <= n; start += step {
			fn(start, start+size, residues[start:start+size])
		}
		return nil
	}

	buf := make([]byte, 0, size)
	for start := 0; start < n; start += step {
		buf = buf[:0]
		cursor := start
		for cursor < n && len(buf) < size {
			if residues[cursor] != sequence.Gap {
				buf = append(buf, residues[cursor])
			}
			cursor++
		}
		if len(buf) < size {
			break
		}
		fn(start, cursor, string(buf))
	}

	return nil
}

// Tile returns the valid windows of residues, unique by residue content. The
// first window seen for a residue string keeps its name.
//
// Validity is judged on the span a window was read from, gaps included, so a
// gap-spanning window is rejected when the columns it covers are too gappy.
func Tile(name, residues string, opts Options) ([]sequence.Sequence, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var out []sequence.Sequence
	seen := make(map[string]struct{})
	err := Windows(residues, opts.WindowSize, opts.StepSize, opts.SpanGaps, func(start, end int, window string) {
		if !IsValid(residues[start:end], opts.Policy) {
			return
		}
		if _, ok := seen[window]; ok {
			return
		}
		seen[window] = struct{}{}
		out = append(out, sequence.Sequence{Name: WindowName(name, start, end), Residues: window})
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
