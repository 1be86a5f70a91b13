// Package integrators holds the explicit one-step schemes that advance the
// lumped-mass cable.
//
// The second-order schemes (symplectic Euler, Verlet) expect the state to
// be laid out as all positions followed by all velocities, which is how
// fea.Cable packs its nodes. Every Step returns a freshly allocated state,
// so callers may keep the previous one around.
package integrators

import "github.com/san-kum/yarnsim/internal/dynamo"

// axpy stores x + h*k into dst, growing dst when it is the wrong size.
func axpy(dst, x dynamo.State, h float64, k dynamo.State) dynamo.State {
	if len(dst) != len(x) {
		dst = make(dynamo.State, len(x))
	}
	for i := range x {
		dst[i] = x[i] + h*k[i]
	}
	return dst
}

func halves(x dynamo.State) int { return len(x) / 2 }
