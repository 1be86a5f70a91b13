package integrators

import "github.com/san-kum/yarnsim/internal/dynamo"

// RK4 is the classic four-stage Runge-Kutta scheme. Stage buffers are kept
// between steps, so an RK4 value must not be shared between goroutines.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	h := dt / 2

	r.k[0] = append(r.k[0][:0], dyn.Derive(x, t)...)
	r.stage = axpy(r.stage, x, h, r.k[0])
	r.k[1] = append(r.k[1][:0], dyn.Derive(r.stage, t+h)...)
	r.stage = axpy(r.stage, x, h, r.k[1])
	r.k[2] = append(r.k[2][:0], dyn.Derive(r.stage, t+h)...)
	r.stage = axpy(r.stage, x, dt, r.k[2])
	r.k[3] = append(r.k[3][:0], dyn.Derive(r.stage, t+dt)...)

	out := make(dynamo.State, len(x))
	w := dt / 6
	for i := range x {
		out[i] = x[i] + w*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return out
}
