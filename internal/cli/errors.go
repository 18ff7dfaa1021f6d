package cli

import "github.com/pkg/errors"

// ErrUsage is returned when the command line cannot be understood.
var ErrUsage = errors.New("invalid usage")
