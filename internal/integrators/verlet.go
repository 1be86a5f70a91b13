package integrators

import "github.com/san-kum/yarnsim/internal/dynamo"

// Verlet is velocity Verlet. The second force evaluation sees the new
// positions with the old velocities, so velocity dependent forces such as
// Rayleigh damping lag by one step.
type Verlet struct {
	mid dynamo.State
}

func NewVerlet() *Verlet { return &Verlet{} }

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := halves(x)
	if len(v.mid) != len(x) {
		v.mid = make(dynamo.State, len(x))
	}

	a0 := dyn.Derive(x, t)
	out := make(dynamo.State, len(x))
	for i := 0; i < n; i++ {
		out[i] = x[i] + dt*x[n+i] + 0.5*dt*dt*a0[n+i]
		v.mid[i] = out[i]
		v.mid[n+i] = x[n+i]
	}

	a1 := dyn.Derive(v.mid, t+dt)
	for i := 0; i < n; i++ {
		out[n+i] = x[n+i] + 0.5*dt*(a0[n+i]+a1[n+i])
	}
	return out
}
