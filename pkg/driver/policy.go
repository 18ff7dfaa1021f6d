package driver

import (
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/LadnerLab/Protein-Oligo/pkg/tiling"
)

// PolicyConfig names the validity policy of the tiling jobs. Kind is one of
// min-run-length, max-gap-percent or unrestricted, and only the parameter of
// that kind may be set.
type PolicyConfig struct {
	Kind         string  `yaml:"kind"`
	MinLength    int     `yaml:"min_length,omitempty"`
	PercentValid float64 `yaml:"percent_valid,omitempty"`
}

// MinRunLengthPolicy is the configuration of tiling.MinRunLength(n).
func MinRunLengthPolicy(n int) PolicyConfig {
	return PolicyConfig{Kind: tiling.KindMinRunLength.String(), MinLength: n}
}

// MaxGapPercentPolicy is the configuration of tiling.MaxGapPercent(p).
func MaxGapPercentPolicy(p float64) PolicyConfig {
	return PolicyConfig{Kind: tiling.KindMaxGapPercent.String(), PercentValid: p}
}

// UnrestrictedPolicy is the configuration of tiling.Unrestricted().
func UnrestrictedPolicy() PolicyConfig {
	return PolicyConfig{Kind: tiling.KindUnrestricted.String()}
}

// PolicyConfigOf returns the configuration of policy.
func PolicyConfigOf(policy tiling.Policy) PolicyConfig {
	switch policy.Kind() {
	case tiling.KindMinRunLength:
		return MinRunLengthPolicy(policy.RunLength())
	case tiling.KindMaxGapPercent:
		return MaxGapPercentPolicy(policy.PercentValid())
	default:
		return UnrestrictedPolicy()
	}
}

// UnmarshalYAML replaces the whole policy so a file never mixes its
// parameters with the defaults of another kind.
func (p *PolicyConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain PolicyConfig
	var decoded plain
	if err := value.Decode(&decoded); err != nil {
		return err
	}
	*p = PolicyConfig(decoded)

	return nil
}

// Policy returns the tiling policy p describes.
func (p PolicyConfig) Policy() (tiling.Policy, error) {
	var policy tiling.Policy
	switch p.Kind {
	case tiling.KindMinRunLength.String():
		if p.PercentValid != 0 {
			return policy, errors.Wrapf(ErrInvalidConfig, "%s policy does not take percent_valid", p.Kind)
		}
		policy = tiling.MinRunLength(p.MinLength)
	case tiling.KindMaxGapPercent.String():
		if p.MinLength != 0 {
			return policy, errors.Wrapf(ErrInvalidConfig, "%s policy does not take min_length", p.Kind)
		}
		policy = tiling.MaxGapPercent(p.PercentValid)
	case tiling.KindUnrestricted.String():
		if p.MinLength != 0 || p.PercentValid != 0 {
			return policy, errors.Wrapf(ErrInvalidConfig, "%s policy takes no parameter", p.Kind)
		}
		policy = tiling.Unrestricted()
	default:
		return policy, errors.Wrapf(ErrInvalidConfig, "unknown validity policy %q", p.Kind)
	}

	if err := policy.Validate(); err != nil {
		return policy, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	return policy, nil
}

// args returns the tiler flags selecting the policy.
func (p PolicyConfig) args() ([]string, error) {
	policy, err := p.Policy()
	if err != nil {
		return nil, err
	}

	switch policy.Kind() {
	case tiling.KindMinRunLength:
		return []string{"-l", strconv.Itoa(policy.RunLength())}, nil
	case tiling.KindMaxGapPercent:
		return []string{"-p", strconv.FormatFloat(policy.PercentValid(), 'f', -1, 64)}, nil
	default:
		return []string{"--unrestricted"}, nil
	}
}
