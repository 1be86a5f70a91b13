// Package dynamo provides the primitives shared by every simulation path.
//
// The package defines the small set of types the rest of the module is
// written against:
//
//   - [State]: flat vector of generalized coordinates
//   - [System]: interface for ODE systems (dX/dt = f(X, t)), used by the
//     lumped-mass cable
//   - [Integrator]: explicit one-step integrator interface
//   - [SimulationError]: failure inside a stepping loop, with step and time
//
// Domain errors ([ErrInvalidConfig], [ErrUnsupportedContactModel], ...) are
// sentinels meant to be matched with errors.Is.
//
// # Thread Safety
//
// Nothing in this package holds mutable shared state. [ParallelFor] is the
// only concurrency helper; callers must make sure each chunk writes to
// disjoint memory.
package dynamo
