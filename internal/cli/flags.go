package cli

import (
	"flag"
	"strings"

	"github.com/pkg/errors"

	"github.com/LadnerLab/Protein-Oligo/pkg/tiling"
)

// NewFlagSet returns a FlagSet that reports errors instead of exiting.
func NewFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// stringList is a repeatable flag. The first value given on the command line
// replaces the default.
type stringList struct {
	values *[]string
	set    bool
}

func newStringList(values *[]string) *stringList {
	return &stringList{values: values}
}

func (l *stringList) String() string {
	if l == nil || l.values == nil {
		return ""
	}

	return strings.Join(*l.values, ",")
}

func (l *stringList) Set(v string) error {
	if !l.set {
		*l.values = nil
		l.set = true
	}
	*l.values = append(*l.values, v)

	return nil
}

// isSet reports which of names were given on the command line.
func isSet(fs *flag.FlagSet, names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	fs.Visit(func(f *flag.Flag) {
		for _, n := range names {
			if f.Name == n {
				set[n] = true
			}
		}
	})

	return set
}

// policyFlags holds the flags selecting a validity policy.
type policyFlags struct {
	lengthFlag   string
	percent      float64
	minLength    int
	unrestricted bool
}

func bindPolicy(fs *flag.FlagSet, lengthFlag string, percent float64, minLength int) *policyFlags {
	p := &policyFlags{lengthFlag: lengthFlag}
	fs.Float64Var(&p.percent, "p", percent, "minimum percent of valid residues per window")
	fs.IntVar(&p.minLength, lengthFlag, minLength, "minimum run of valid residues per window, replaces -p")
	fs.BoolVar(&p.unrestricted, "unrestricted", false, "only reject windows holding an unknown residue")

	return p
}

// selected returns the policy given on the command line, ok is false when
// no policy flag was used.
func (p *policyFlags) selected(fs *flag.FlagSet) (policy tiling.Policy, ok bool, err error) {
	set := isSet(fs, "p", p.lengthFlag, "unrestricted")
	if !p.unrestricted {
		delete(set, "unrestricted")
	}
	if len(set) > 1 {
		return policy, false, errors.Wrapf(tiling.ErrInvalidParameter,
			"-p, -%s and --unrestricted cannot be used together", p.lengthFlag)
	}

	switch {
	case set["p"]:
		return tiling.MaxGapPercent(p.percent), true, nil
	case set[p.lengthFlag]:
		return tiling.MinRunLength(p.minLength), true, nil
	case set["unrestricted"]:
		return tiling.Unrestricted(), true, nil
	default:
		return policy, false, nil
	}
}
