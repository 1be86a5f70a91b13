package engine

import (
	"math"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geom"
)

// contactConstraint adapts a Contact to the PGS loop for NSC systems.
type contactConstraint struct {
	*Contact
	tuning config.SolverTuning
}

func effectiveMass(a, b *Body, ra, rb, d geom.Vec3) float64 {
	k := a.InvMass() + b.InvMass()
	ca := ra.Cross(d)
	cb := rb.Cross(d)
	k += ca.Dot(a.invInertia.MulVec(ca))
	k += cb.Dot(b.invInertia.MulVec(cb))
	if k <= 0 {
		return 0
	}
	return 1 / k
}

func (c *contactConstraint) relVel() geom.Vec3 {
	va := c.A.linVel.Add(c.A.angVel.Cross(c.ra))
	vb := c.B.linVel.Add(c.B.angVel.Cross(c.rb))
	return va.Sub(vb)
}

func (c *contactConstraint) prepare(dt float64) {
	c.ra = c.Point.Sub(c.A.pos)
	c.rb = c.Point.Sub(c.B.pos)
	c.t1, c.t2 = geom.Orthonormal(c.Normal)
	c.kn = effectiveMass(c.A, c.B, c.ra, c.rb, c.Normal)
	c.k1 = effectiveMass(c.A, c.B, c.ra, c.rb, c.t1)
	c.k2 = effectiveMass(c.A, c.B, c.ra, c.rb, c.t2)

	if c.Gap > 0 {
		// speculative: allow closing the gap within this step, no further
		c.target = -c.Gap / dt
	} else {
		depth := math.Max(0, -c.Gap-c.tuning.CollisionMargin)
		c.target = math.Min(baumgarte*depth/dt, c.tuning.MaxPenetrationRecoverySpeed)
	}

	vn := c.relVel().Dot(c.Normal)
	if vn < -c.tuning.MinBounceSpeed && c.Pair.Restitution > 0 {
		c.target = math.Max(c.target, -c.Pair.Restitution*vn)
	}
	c.jn, c.j1, c.j2 = 0, 0, 0
}

func (c *contactConstraint) warmStart() {}

func (c *contactConstraint) solve() float64 {
	if c.kn == 0 {
		return 0
	}
	vn := c.relVel().Dot(c.Normal)
	lambda := -(vn - c.target) * c.kn
	next := math.Max(0, c.jn+lambda)
	dn := next - c.jn
	c.jn = next
	c.apply(c.Normal.Scale(dn))

	limit := c.Pair.Friction * c.jn
	d1 := c.solveTangent(c.t1, c.k1, &c.j1, limit)
	d2 := c.solveTangent(c.t2, c.k2, &c.j2, limit)

	return math.Max(math.Abs(dn), math.Max(d1, d2))
}

func (c *contactConstraint) solveTangent(t geom.Vec3, k float64, acc *float64, limit float64) float64 {
	if k == 0 {
		return 0
	}
	vt := c.relVel().Dot(t)
	next := math.Max(-limit, math.Min(limit, *acc-vt*k))
	d := next - *acc
	*acc = next
	c.apply(t.Scale(d))
	return math.Abs(d)
}

func (c *contactConstraint) apply(j geom.Vec3) {
	c.A.applyImpulse(j, c.ra)
	c.B.applyImpulse(j.Neg(), c.rb)
}

func (c *contactConstraint) finish(dt float64) {
	f := c.Impulse().Scale(1 / dt)
	c.A.contactF = c.A.contactF.Add(f)
	c.B.contactF = c.B.contactF.Sub(f)
}
