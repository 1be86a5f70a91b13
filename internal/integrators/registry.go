package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/yarnsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"euler":            func() dynamo.Integrator { return NewEuler() },
	"symplectic_euler": func() dynamo.Integrator { return NewSymplecticEuler() },
	"rk4":              func() dynamo.Integrator { return NewRK4() },
	"verlet":           func() dynamo.Integrator { return NewVerlet() },
}

// New returns a fresh integrator by name. Some integrators keep stage
// buffers, so each scene needs its own.
func New(name string) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrInvalidConfig, name)
	}
	return fn(), nil
}

// Names lists the registered integrators, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
