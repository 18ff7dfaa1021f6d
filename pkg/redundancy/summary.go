package redundancy

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/sequence"
)

// Summary holds the statistics reported for a designed library.
type Summary struct {
	// TotalYmers is the number of windows kept before the final dedup.
	TotalYmers int `yaml:"total_ymers"`
	// FinalYmers is the size of the deduplicated library.
	FinalYmers      int     `yaml:"final_ymers"`
	PercentRetained float64 `yaml:"percent_retained"`

	UniverseSize            int     `yaml:"universe_size"`
	DistinctOutputXmers     int     `yaml:"distinct_output_xmers"`
	PercentXmersRepresented float64 `yaml:"percent_xmers_represented"`
	AverageRedundancy       float64 `yaml:"average_redundancy"`
}

// Summarize derives the library statistics from a counted table.
func Summarize(t *Table, totalYmers, finalYmers int) (Summary, error) {
	if t.Size() == 0 {
		return Summary{}, ErrInsufficientData
	}

	s := Summary{
		TotalYmers:          totalYmers,
		FinalYmers:          finalYmers,
		UniverseSize:        t.Size(),
		DistinctOutputXmers: t.Represented(),
	}
	if totalYmers > 0 {
		s.PercentRetained = percentage(finalYmers, totalYmers)
	}
	s.PercentXmersRepresented = percentage(s.DistinctOutputXmers, s.UniverseSize)
	s.AverageRedundancy = float64(t.Total()) / float64(s.UniverseSize)

	return s, nil
}

// Score builds the x-mer universe of seqs, counts the x-mers of library
// against it and summarises the result. totalYmers is the window count before
// the library was deduplicated.
func Score(seqs, library []sequence.Sequence, totalYmers int, opts Options) (Summary, error) {
	t, err := NewTable(seqs, opts)
	if err != nil {
		return Summary{}, err
	}
	if t.Size() == 0 {
		return Summary{}, errors.Wrapf(ErrInsufficientData, "x-mer size %d", opts.XmerSize)
	}
	if err := t.Count(library); err != nil {
		return Summary{}, err
	}

	return Summarize(t, totalYmers, len(library))
}

// WriteReport prints the human readable summary of a design.
func (s Summary) WriteReport(w io.Writer, windowSize, xmerSize int) error {
	_, err := fmt.Fprintf(w,
		"Final design includes %d %d-mers ( %.2f%% of total )\n"+
			"%d unique %d-mers in final %d-mers ( %.2f%% of total )\n"+
			"Average redundancy of %d-mers in %d-mers: %.2f\n",
		s.FinalYmers, windowSize, s.PercentRetained,
		s.DistinctOutputXmers, xmerSize, windowSize, s.PercentXmersRepresented,
		xmerSize, windowSize, s.AverageRedundancy,
	)

	return errors.Wrap(err, "unable to write report")
}

func percentage(part, whole int) float64 {
	return 100 * float64(part) / float64(whole)
}
