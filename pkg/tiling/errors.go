package tiling

import "github.com/pkg/errors"

// ErrInvalidParameter is returned for window sizes, step sizes or validity
// policies that cannot be used.
var ErrInvalidParameter = errors.New("invalid tiling parameter")
