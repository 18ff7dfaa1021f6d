package driver

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/LadnerLab/Protein-Oligo/pkg/jobgraph"
)

// Config drives one pipeline run.
type Config struct {
	// Query is the FASTA file to cluster. Required when clustering runs.
	Query string `yaml:"query"`
	// Lineage is the taxonomic lineage file required by taxonomic clustering.
	Lineage string   `yaml:"lineage"`
	Number  int      `yaml:"number"`
	Start   []string `yaml:"start"`
	Method  string   `yaml:"cluster_method"`
	// Identity is a comma separated list of clustering identity thresholds.
	Identity   string `yaml:"id"`
	ClusterDir string `yaml:"cluster_dir"`
	XmerSize   int    `yaml:"xmer_size"`

	Output     string `yaml:"output"`
	FinalDedup bool   `yaml:"final_dedup"`

	Tiling   TilingConfig   `yaml:"tiling"`
	Commands CommandsConfig `yaml:"commands"`

	// Time is the wall time limit given to every job.
	Time string `yaml:"time"`
	// Slurm holds extra directives written as "key value".
	Slurm []string `yaml:"slurm"`

	PollInterval time.Duration `yaml:"poll_interval"`
	Accounting   bool          `yaml:"accounting"`
	DOT          string        `yaml:"dot"`

	Logging LoggingConfig `yaml:"logging"`
}

// TilingConfig holds the design options passed to every tiling job.
type TilingConfig struct {
	WindowSize int          `yaml:"window_size"`
	StepSize   int          `yaml:"step_size"`
	Policy     PolicyConfig `yaml:"policy"`
	SpanGaps   bool         `yaml:"span_gaps"`
}

// CommandsConfig names the external programs and the environment modules
// each stage loads.
type CommandsConfig struct {
	Clusterer         string   `yaml:"clusterer"`
	Aligner           string   `yaml:"aligner"`
	Tiler             string   `yaml:"tiler"`
	ClusteringModules []string `yaml:"clustering_modules"`
	AlignmentModules  []string `yaml:"alignment_modules"`
	TilingModules     []string `yaml:"tiling_modules"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file or flag says
// otherwise.
func DefaultConfig() Config {
	return Config{
		Number:     10000,
		Start:      []string{"family"},
		Method:     "kmer",
		Identity:   "0.8",
		ClusterDir: "tax_out",
		XmerSize:   10,
		Output:     "library.fasta",
		Tiling: TilingConfig{
			WindowSize: 100,
			StepSize:   1,
			Policy:     MinRunLengthPolicy(17),
			SpanGaps:   true,
		},
		Commands: CommandsConfig{
			Clusterer:         "clustering.py",
			Aligner:           "muscle",
			Tiler:             "protein-oligo",
			ClusteringModules: []string{"python/3.latest"},
			AlignmentModules:  []string{"muscle"},
		},
		PollInterval: time.Second,
		Logging:      LoggingConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "unable to read config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "unable to parse config %s", path)
	}

	return cfg, nil
}

// Validate checks the values that do not depend on the file system.
func (c Config) Validate() error {
	switch {
	case c.ClusterDir == "":
		return errors.Wrap(ErrInvalidConfig, "cluster directory must be set")
	case c.Output == "":
		return errors.Wrap(ErrInvalidConfig, "output must be set")
	case c.XmerSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "x-mer size must be positive, got %d", c.XmerSize)
	case c.Tiling.WindowSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "window size must be positive, got %d", c.Tiling.WindowSize)
	case c.Tiling.StepSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "step size must be positive, got %d", c.Tiling.StepSize)
	case c.PollInterval <= 0:
		return errors.Wrapf(ErrInvalidConfig, "poll interval must be positive, got %s", c.PollInterval)
	}

	if _, err := c.Tiling.Policy.Policy(); err != nil {
		return err
	}
	_, err := c.directives()

	return err
}

// directives returns the scheduler directives shared by every job.
func (c Config) directives() ([]jobgraph.Directive, error) {
	var out []jobgraph.Directive
	if c.Time != "" {
		out = append(out, jobgraph.Directive{Key: "--time", Value: c.Time})
	}
	for _, s := range c.Slurm {
		d, err := jobgraph.ParseDirective(s)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidConfig, err.Error())
		}
		out = append(out, d)
	}

	return out, nil
}

// taxonomic reports whether the clustering method needs a lineage file.
func (c Config) taxonomic() bool {
	return strings.Contains(c.Method, "tax")
}

// designArgs returns the flags of the tiler's design command.
func (c Config) designArgs() ([]string, error) {
	policy, err := c.Tiling.Policy.args()
	if err != nil {
		return nil, err
	}

	args := []string{
		"-w", strconv.Itoa(c.Tiling.WindowSize),
		"-s", strconv.Itoa(c.Tiling.StepSize),
		"-x", strconv.Itoa(c.XmerSize),
	}
	args = append(args, policy...)
	if !c.Tiling.SpanGaps {
		args = append(args, "--dont-span-gaps")
	}

	return args, nil
}

// clusterArgs returns the flags of the clustering program.
func (c Config) clusterArgs() []string {
	args := []string{"-q", c.Query}
	if c.Lineage != "" {
		args = append(args, "-l", c.Lineage)
	}
	args = append(args, "-n", strconv.Itoa(c.Number))
	for _, s := range c.Start {
		args = append(args, "-s", s)
	}

	return append(args,
		"-o", c.ClusterDir,
		"-c", c.Method,
		"--id", c.Identity,
		"-k", strconv.Itoa(c.XmerSize),
	)
}
