package sequence

import "github.com/pkg/errors"

// ErrFormat is returned when FASTA input is malformed.
var ErrFormat = errors.New("malformed fasta input")
