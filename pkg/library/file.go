package library

import (
	"context"

	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/sequence"
)

// DesignFile reads the alignment at in, designs its library and writes the
// library to out as FASTA.
func DesignFile(ctx context.Context, in, out string, opts Options) (*Result, error) {
	seqs, err := sequence.ReadFile(in)
	if err != nil {
		return nil, err
	}

	res, err := Design(ctx, seqs, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to design library for %s", in)
	}

	if err := sequence.WriteFile(out, res.Library); err != nil {
		return nil, err
	}

	return res, nil
}
