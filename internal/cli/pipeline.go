package cli

import (
	"flag"
	"io"

	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/driver"
)

func bindPipeline(fs *flag.FlagSet, cfg *driver.Config, configPath *string, dontSpanGaps *bool) *policyFlags {
	fs.StringVar(configPath, "config", "", "YAML configuration file, flags override it")

	fs.StringVar(&cfg.Query, "q", cfg.Query, "FASTA file of proteins to cluster")
	fs.StringVar(&cfg.Lineage, "l", cfg.Lineage, "lineage file for taxonomic clustering")
	fs.IntVar(&cfg.Number, "n", cfg.Number, "number of sequences per cluster")
	fs.Var(newStringList(&cfg.Start), "s", "taxonomic rank to start clustering from (repeatable)")
	fs.StringVar(&cfg.Method, "m", cfg.Method, "clustering method: kmer or tax")
	fs.StringVar(&cfg.Identity, "id", cfg.Identity, "comma separated clustering identity thresholds")
	fs.IntVar(&cfg.XmerSize, "x", cfg.XmerSize, "x-mer size")
	fs.StringVar(&cfg.ClusterDir, "cluster-dir", cfg.ClusterDir, "directory holding the cluster FASTA files")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "combined library file")
	fs.BoolVar(&cfg.FinalDedup, "dedup", cfg.FinalDedup, "remove duplicate oligos from the combined library")

	fs.IntVar(&cfg.Tiling.WindowSize, "w", cfg.Tiling.WindowSize, "window size")
	fs.IntVar(&cfg.Tiling.StepSize, "step-size", cfg.Tiling.StepSize, "step size")
	percent, minLength := 99.0, 17
	if cfg.Tiling.Policy.PercentValid != 0 {
		percent = cfg.Tiling.Policy.PercentValid
	}
	if cfg.Tiling.Policy.MinLength != 0 {
		minLength = cfg.Tiling.Policy.MinLength
	}
	policy := bindPolicy(fs, "min-length", percent, minLength)
	fs.BoolVar(dontSpanGaps, "dont-span-gaps", !cfg.Tiling.SpanGaps, "skip windows with gaps instead of extending over them")

	fs.StringVar(&cfg.Time, "time", cfg.Time, "wall time limit of every job")
	fs.Var(newStringList(&cfg.Slurm), "slurm", `extra scheduler directive such as "mem 20G" (repeatable)`)
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "interval between job status checks")
	fs.BoolVar(&cfg.Accounting, "accounting", cfg.Accounting, "ask sacct whether finished jobs failed")
	fs.StringVar(&cfg.DOT, "dot", cfg.DOT, "write the job graph in DOT format to this file")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level")

	return policy
}

// ParsePipeline parses the pipeline command's arguments. When --config is
// given the file is loaded first and the flags are applied over it.
func ParsePipeline(fs *flag.FlagSet, args []string) (driver.Config, error) {
	cfg, err := parsePipeline(fs, driver.DefaultConfig(), args)
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func parsePipeline(fs *flag.FlagSet, cfg driver.Config, args []string) (driver.Config, error) {
	var (
		configPath   string
		dontSpanGaps bool
	)
	policy := bindPipeline(fs, &cfg, &configPath, &dontSpanGaps)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, errors.Wrapf(ErrUsage, "unexpected arguments %v", fs.Args())
	}

	if configPath != "" {
		loaded, err := driver.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		// Parse again over the file so flags take precedence. The first pass
		// already reported any flag error.
		fs = NewFlagSet(fs.Name())
		fs.SetOutput(io.Discard)
		cfg = loaded
		policy = bindPipeline(fs, &cfg, &configPath, &dontSpanGaps)
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}

	selected, ok, err := policy.selected(fs)
	if err != nil {
		return cfg, err
	}
	if ok {
		cfg.Tiling.Policy = driver.PolicyConfigOf(selected)
	}
	if isSet(fs, "dont-span-gaps")["dont-span-gaps"] {
		cfg.Tiling.SpanGaps = !dontSpanGaps
	}

	return cfg, nil
}
