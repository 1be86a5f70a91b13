package engine

import (
	"math"

	"github.com/san-kum/yarnsim/internal/material"
)

// hertzDampingRatio maps restitution to the Hertz damping factor beta used
// by the smooth contact model.
func hertzDampingRatio(e float64) float64 {
	if e <= 0 {
		return -1
	}
	if e >= 1 {
		return 0
	}
	l := math.Log(e)
	return l / math.Sqrt(l*l+math.Pi*math.Pi)
}

// applySMC converts penetrating contacts into Hertzian normal forces with
// restitution-derived damping and Coulomb friction. Damping and friction
// are capped at what would stop the relative motion within one step.
func applySMC(contacts []*Contact, dt float64) {
	for _, c := range contacts {
		if c.Gap >= 0 {
			continue
		}
		delta := -c.Gap
		ra := c.Point.Sub(c.A.pos)
		rb := c.Point.Sub(c.B.pos)
		invM := c.A.InvMass() + c.B.InvMass()
		if invM == 0 {
			continue
		}
		mEff := 1 / invM

		estar := c.Pair.EffectiveE
		if estar <= 0 {
			estar = material.DefaultYoungModulus / (2 * (1 - material.DefaultPoissonRatio*material.DefaultPoissonRatio))
		}
		sqrtRd := math.Sqrt(c.Radius * delta)
		elastic := 4.0 / 3.0 * estar * sqrtRd * delta

		rel := c.A.linVel.Add(c.A.angVel.Cross(ra)).Sub(c.B.linVel.Add(c.B.angVel.Cross(rb)))
		vn := rel.Dot(c.Normal)

		sn := 2 * estar * sqrtRd
		cn := -2 * math.Sqrt(5.0/6.0) * hertzDampingRatio(c.Pair.Restitution) * math.Sqrt(sn*mEff)
		damp := -cn * vn
		if maxDamp := mEff * math.Abs(vn) / dt; math.Abs(damp) > maxDamp {
			damp = math.Copysign(maxDamp, damp)
		}
		fn := math.Max(0, elastic+damp)

		f := c.Normal.Scale(fn)
		vt := rel.Sub(c.Normal.Scale(vn))
		if speed := vt.Length(); speed > 1e-12 {
			ft := math.Min(c.Pair.Friction*fn, mEff*speed/dt)
			f = f.Add(vt.Scale(-ft / speed))
		}

		c.A.ApplyForceAt(f, c.Point)
		c.B.ApplyForceAt(f.Neg(), c.Point)
		c.A.contactF = c.A.contactF.Add(f)
		c.B.contactF = c.B.contactF.Sub(f)
		c.jn = fn * dt
	}
}
