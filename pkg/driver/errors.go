package driver

import "github.com/pkg/errors"

var (
	ErrMissingRequiredOption = errors.New("missing required option")
	ErrEmptyClusterDir       = errors.New("cluster directory is empty")
	ErrNoClusters            = errors.New("no cluster files found")
	ErrInvalidConfig         = errors.New("invalid configuration")
)
