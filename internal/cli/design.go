package cli

import (
	"flag"
	"runtime"

	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/library"
	"github.com/LadnerLab/Protein-Oligo/pkg/tiling"
)

// DesignOptions holds the flags of the design command.
type DesignOptions struct {
	Alignment string
	Output    string
	Library   library.Options
	LogLevel  string
}

// ParseDesign parses the design command's arguments.
func ParseDesign(fs *flag.FlagSet, args []string) (DesignOptions, error) {
	opts := DesignOptions{}
	var dontSpanGaps bool

	fs.StringVar(&opts.Alignment, "a", "", "aligned FASTA file to tile [required]")
	fs.StringVar(&opts.Output, "o", "oligo_out.fasta", "output FASTA file")
	fs.IntVar(&opts.Library.WindowSize, "w", 100, "window size")
	fs.IntVar(&opts.Library.StepSize, "s", 1, "step size")
	fs.IntVar(&opts.Library.XmerSize, "x", 8, "x-mer size used for the redundancy report")
	policy := bindPolicy(fs, "l", 99, 0)
	fs.BoolVar(&dontSpanGaps, "dont-span-gaps", false, "skip windows with gaps instead of extending over them")
	fs.IntVar(&opts.Library.Concurrency, "j", runtime.GOMAXPROCS(0), "sequences tiled at once")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.Alignment == "" {
		return opts, errors.Wrap(ErrUsage, "an aligned FASTA file must be given with -a")
	}
	if fs.NArg() > 0 {
		return opts, errors.Wrapf(ErrUsage, "unexpected arguments %v", fs.Args())
	}

	selected, ok, err := policy.selected(fs)
	if err != nil {
		return opts, err
	}
	if !ok {
		selected = tiling.MaxGapPercent(policy.percent)
	}
	opts.Library.Policy = selected
	opts.Library.SpanGaps = !dontSpanGaps

	return opts, opts.Library.Validate()
}
