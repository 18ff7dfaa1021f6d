package tiling_test

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/LadnerLab/Protein-Oligo/pkg/tiling"
)

func withGaps(total, gaps int) string {
	return strings.Repeat("-", gaps) + strings.Repeat("A", total-gaps)
}

func TestIsValidGapPercentBoundary(t *testing.T) {
	t.Parallel()

	policy := tiling.MaxGapPercent(50)
	for gaps := 0; gaps <= 10; gaps++ {
		assert.Equal(t, gaps <= 4, tiling.IsValid(withGaps(10, gaps), policy), "gaps=%d", gaps)
	}
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		residues string
		policy   tiling.Policy
		expected bool
	}{
		"unrestricted":                  {residues: "A--A", policy: tiling.Unrestricted(), expected: true},
		"unrestricted with unknown":     {residues: "AXA", policy: tiling.Unrestricted(), expected: false},
		"zero value is unrestricted":    {residues: "----", policy: tiling.Policy{}, expected: true},
		"percent with unknown":          {residues: "AXAA", policy: tiling.MaxGapPercent(0), expected: false},
		"empty is zero percent":         {residues: "", policy: tiling.MaxGapPercent(50), expected: true},
		"percent valid 100 rejects all": {residues: "AAAA", policy: tiling.MaxGapPercent(100), expected: false},
		"run length satisfied":          {residues: "AAAAAAAA--", policy: tiling.MinRunLength(6), expected: true},
		"run length one short":          {residues: "AAAAAAAA--", policy: tiling.MinRunLength(7), expected: false},
		"run length no gaps":            {residues: "AAAAA", policy: tiling.MinRunLength(5), expected: true},
		"run length longer than window": {residues: "AAAAA", policy: tiling.MinRunLength(6), expected: false},
		"run length with unknown":       {residues: "AAXAA", policy: tiling.MinRunLength(1), expected: false},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, tiling.IsValid(tc.residues, tc.policy))
		})
	}
}

func TestGapPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, tiling.GapPercent(""), 1e-9)
	assert.InDelta(t, 25.0, tiling.GapPercent("A-AA"), 1e-9)
	assert.Equal(t, 2, tiling.CountGaps("-A-"))
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, tiling.Unrestricted().Validate())
	assert.NoError(t, tiling.MinRunLength(17).Validate())
	assert.NoError(t, tiling.MaxGapPercent(99).Validate())
	assert.True(t, errors.Is(tiling.MinRunLength(-1).Validate(), tiling.ErrInvalidParameter))
	assert.True(t, errors.Is(tiling.MaxGapPercent(100.5).Validate(), tiling.ErrInvalidParameter))
}

func TestPolicyAccessors(t *testing.T) {
	t.Parallel()

	p := tiling.MinRunLength(17)
	assert.Equal(t, tiling.KindMinRunLength, p.Kind())
	assert.Equal(t, 17, p.RunLength())
	assert.Equal(t, "min-run-length(17)", p.String())

	p = tiling.MaxGapPercent(99.5)
	assert.Equal(t, tiling.KindMaxGapPercent, p.Kind())
	assert.InDelta(t, 99.5, p.PercentValid(), 1e-9)
	assert.Equal(t, "max-gap-percent(99.5)", p.String())

	assert.Equal(t, "unrestricted", tiling.Unrestricted().String())
}
