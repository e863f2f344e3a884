package analytics

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for malformed dates, out-of-order day lists
// and out-of-range window or threshold values.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
