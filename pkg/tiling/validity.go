package tiling

import (
	"strings"

	"github.com/LadnerLab/Protein-Oligo/pkg/sequence"
)

// IsValid reports whether residues pass policy. A window holding the unknown
// marker is never valid.
func IsValid(residues string, policy Policy) bool {
	if strings.IndexByte(residues, sequence.Unknown) >= 0 {
		return false
	}

	switch policy.kind {
	case KindMinRunLength:
		gaps := CountGaps(residues)
		return gaps <= len(residues)-gaps-policy.runLength
	case KindMaxGapPercent:
		return GapPercent(residues) < 100-policy.percentValid
	default:
		return true
	}
}

// CountGaps returns the number of gap characters in residues.
func CountGaps(residues string) int {
	return strings.Count(residues, string(sequence.Gap))
}

// GapPercent returns the percentage of residues that are gaps, 0 for an
// empty string.
func GapPercent(residues string) float64 {
	if len(residues) == 0 {
		return 0
	}

	return 100 * float64(CountGaps(residues)) / float64(len(residues))
}
