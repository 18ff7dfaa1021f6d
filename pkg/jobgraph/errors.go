package jobgraph

import "github.com/pkg/errors"

var (
	ErrSubmission    = errors.New("job submission failed")
	ErrCycle         = errors.New("dependency creates a cycle")
	ErrUnknownUnit   = errors.New("unknown unit")
	ErrDuplicateUnit = errors.New("unit already exists")
	ErrNotSubmitted  = errors.New("unit has not been submitted")
	ErrUnitSubmitted = errors.New("unit is already submitted")
	ErrJobFailed     = errors.New("job failed")
	ErrDirective     = errors.New("malformed scheduler directive")
	ErrUnlinked      = errors.New("dependency has no edge in the graph")
	ErrInterval      = errors.New("poll interval must be positive")
)
