package driver_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LadnerLab/Protein-Oligo/pkg/driver"
	"github.com/LadnerLab/Protein-Oligo/pkg/tiling"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oligo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
query: proteins.fasta
cluster_method: taxonomic
lineage: lineage.dmp
tiling:
  window_size: 50
  policy:
    kind: max-gap-percent
    percent_valid: 95.5
slurm:
  - --mem 20G
poll_interval: 250ms
logging:
  level: debug
`), 0o644))

	cfg, err := driver.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "proteins.fasta", cfg.Query)
	assert.Equal(t, "taxonomic", cfg.Method)
	assert.Equal(t, "lineage.dmp", cfg.Lineage)
	assert.Equal(t, 50, cfg.Tiling.WindowSize)
	// The file's policy replaces the default one instead of merging with it.
	assert.Equal(t, driver.MaxGapPercentPolicy(95.5), cfg.Tiling.Policy)
	assert.Equal(t, []string{"--mem 20G"}, cfg.Slurm)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, 1, cfg.Tiling.StepSize)
	assert.True(t, cfg.Tiling.SpanGaps)
	assert.Equal(t, "tax_out", cfg.ClusterDir)
	assert.Equal(t, "muscle", cfg.Commands.Aligner)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := driver.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tiling: [1, 2"), 0o644))
	_, err = driver.LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]func(c *driver.Config){
		"no cluster dir":     func(c *driver.Config) { c.ClusterDir = "" },
		"no output":          func(c *driver.Config) { c.Output = "" },
		"zero xmer":          func(c *driver.Config) { c.XmerSize = 0 },
		"zero window":        func(c *driver.Config) { c.Tiling.WindowSize = 0 },
		"negative step":      func(c *driver.Config) { c.Tiling.StepSize = -1 },
		"zero poll interval": func(c *driver.Config) { c.PollInterval = 0 },
		"empty directive":    func(c *driver.Config) { c.Slurm = []string{""} },
		"percent over 100":   func(c *driver.Config) { c.Tiling.Policy = driver.MaxGapPercentPolicy(101) },
		"negative run":       func(c *driver.Config) { c.Tiling.Policy = driver.MinRunLengthPolicy(-5) },
		"no policy kind":     func(c *driver.Config) { c.Tiling.Policy = driver.PolicyConfig{MinLength: 17} },
		"unknown policy":     func(c *driver.Config) { c.Tiling.Policy = driver.PolicyConfig{Kind: "lenient"} },
		"both parameters": func(c *driver.Config) {
			c.Tiling.Policy = driver.PolicyConfig{Kind: "min-run-length", MinLength: 17, PercentValid: 99}
		},
		"unrestricted with parameter": func(c *driver.Config) {
			c.Tiling.Policy = driver.PolicyConfig{Kind: "unrestricted", PercentValid: 99}
		},
	}

	for name, mutate := range tcs {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := driver.DefaultConfig()
			mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), driver.ErrInvalidConfig))
		})
	}

	require.NoError(t, driver.DefaultConfig().Validate())
}

func TestPolicyConfig(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		config driver.PolicyConfig
		policy tiling.Policy
	}{
		"min run length":  {config: driver.MinRunLengthPolicy(17), policy: tiling.MinRunLength(17)},
		"max gap percent": {config: driver.MaxGapPercentPolicy(99), policy: tiling.MaxGapPercent(99)},
		"unrestricted":    {config: driver.UnrestrictedPolicy(), policy: tiling.Unrestricted()},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.config.Policy()
			require.NoError(t, err)
			assert.Equal(t, tc.policy, got)
		})
	}
}
