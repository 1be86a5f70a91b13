package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrUnsupportedContactModel indicates a contact model other than NSC or SMC.
	ErrUnsupportedContactModel = errors.New("dynamo: unsupported contact model")

	// ErrUnknownScene indicates a scene name with no registered builder.
	ErrUnknownScene = errors.New("dynamo: unknown scene")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (NaN or Inf detected)")

	// ErrNotImplemented indicates a requested combination has no implementation,
	// e.g. a collision shape pair without a narrow-phase routine.
	ErrNotImplemented = errors.New("dynamo: not implemented")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Invalid builds an ErrInvalidConfig naming the offending field.
func Invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}
