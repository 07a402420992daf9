package pysbridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a lookup for a name or instance id that was
	// never registered.
	ErrNotFound = errors.New("pysbridge: not found")

	// ErrInvalidArgument reports a registration with an unusable value,
	// such as a nil function.
	ErrInvalidArgument = errors.New("pysbridge: invalid argument")
)

func notFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}
