package redundancy

import "github.com/pkg/errors"

// ErrInsufficientData is returned when the input sequences yield no x-mers,
// leaving nothing to measure redundancy against.
var ErrInsufficientData = errors.New("no x-mers in the input sequences")
