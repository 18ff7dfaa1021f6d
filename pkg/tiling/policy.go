package tiling

import (
	"fmt"

	"github.com/pkg/errors"
)

// PolicyKind tells which validity rule a Policy applies.
type PolicyKind int

const (
	// KindUnrestricted only rejects windows holding an unknown residue.
	KindUnrestricted PolicyKind = iota
	// KindMinRunLength rejects windows without enough non-gap residues.
	KindMinRunLength
	// KindMaxGapPercent rejects windows whose gap percentage is too high.
	KindMaxGapPercent
)

func (k PolicyKind) String() string {
	switch k {
	case KindUnrestricted:
		return "unrestricted"
	case KindMinRunLength:
		return "min-run-length"
	case KindMaxGapPercent:
		return "max-gap-percent"
	default:
		return fmt.Sprintf("PolicyKind(%d)", int(k))
	}
}

// Policy is the validity rule applied to every window. Exactly one rule is
// active; the zero value is Unrestricted.
type Policy struct {
	kind         PolicyKind
	runLength    int
	percentValid float64
}

// Unrestricted returns the policy that accepts any window free of unknown
// residues.
func Unrestricted() Policy {
	return Policy{kind: KindUnrestricted}
}

// MinRunLength returns the policy that accepts a window when its gap count
// does not exceed the number of non-gap residues minus n.
func MinRunLength(n int) Policy {
	return Policy{kind: KindMinRunLength, runLength: n}
}

// MaxGapPercent returns the policy that accepts a window when its gap
// percentage stays strictly below 100 - percentValid. percentValid is the
// share of non-gap residues a window is expected to carry.
func MaxGapPercent(percentValid float64) Policy {
	return Policy{kind: KindMaxGapPercent, percentValid: percentValid}
}

// Kind returns the active rule.
func (p Policy) Kind() PolicyKind {
	return p.kind
}

// RunLength returns the minimum run length of a KindMinRunLength policy.
func (p Policy) RunLength() int {
	return p.runLength
}

// PercentValid returns the threshold of a KindMaxGapPercent policy.
func (p Policy) PercentValid() float64 {
	return p.percentValid
}

// Validate reports whether the policy parameters are usable.
func (p Policy) Validate() error {
	switch p.kind {
	case KindUnrestricted:
		return nil
	case KindMinRunLength:
		if p.runLength <= 0 {
			return errors.Wrapf(ErrInvalidParameter, "minimum run length must be positive, got %d", p.runLength)
		}
	case KindMaxGapPercent:
		if p.percentValid < 0 || p.percentValid > 100 {
			return errors.Wrapf(ErrInvalidParameter, "percent valid must be within [0, 100], got %g", p.percentValid)
		}
	default:
		return errors.Wrapf(ErrInvalidParameter, "unknown policy kind %d", int(p.kind))
	}

	return nil
}

func (p Policy) String() string {
	switch p.kind {
	case KindMinRunLength:
		return fmt.Sprintf("%s(%d)", p.kind, p.runLength)
	case KindMaxGapPercent:
		return fmt.Sprintf("%s(%g)", p.kind, p.percentValid)
	default:
		return p.kind.String()
	}
}
