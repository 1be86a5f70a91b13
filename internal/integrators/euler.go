package integrators

import "github.com/san-kum/yarnsim/internal/dynamo"

// Euler is the forward Euler scheme. It gains energy on undamped springs
// and is mostly useful to show what an unstable cable looks like.
type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (Euler) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return axpy(nil, x, dt, dyn.Derive(x, t))
}

// SymplecticEuler updates velocities first and moves positions with the new
// velocities.
type SymplecticEuler struct{}

func NewSymplecticEuler() *SymplecticEuler { return &SymplecticEuler{} }

func (SymplecticEuler) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := halves(x)
	d := dyn.Derive(x, t)
	out := make(dynamo.State, len(x))
	for i := 0; i < n; i++ {
		v := x[n+i] + dt*d[n+i]
		out[n+i] = v
		out[i] = x[i] + dt*v
	}
	return out
}
