package engine

import (
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/material"
)

// Body is a rigid body. Fixed bodies never move; kinematic bodies move with
// their prescribed velocity and are not affected by forces or constraints.
type Body struct {
	Name string

	mass       float64
	inertia    geom.Vec3 // principal moments in the body frame
	pos        geom.Vec3
	rot        geom.Quat
	linVel     geom.Vec3
	angVel     geom.Vec3 // world frame
	fixed      bool
	kinematic  bool
	collide    bool
	shape      Shape
	material   *material.Surface
	family     int
	force      geom.Vec3
	torque     geom.Vec3
	contactF   geom.Vec3 // last step's total contact force
	index      int
	invInertia geom.Mat3 // world frame, refreshed each step
}

// NewBody creates a free body with unit mass and inertia at the origin.
func NewBody() *Body {
	return &Body{
		mass:    1,
		inertia: geom.V(1, 1, 1),
		rot:     geom.Identity,
		index:   -1,
	}
}

func (b *Body) Mass() float64               { return b.mass }
func (b *Body) Inertia() geom.Vec3          { return b.inertia }
func (b *Body) Pos() geom.Vec3              { return b.pos }
func (b *Body) Rot() geom.Quat              { return b.rot }
func (b *Body) LinVel() geom.Vec3           { return b.linVel }
func (b *Body) AngVel() geom.Vec3           { return b.angVel }
func (b *Body) Fixed() bool                 { return b.fixed }
func (b *Body) Kinematic() bool             { return b.kinematic }
func (b *Body) Collide() bool               { return b.collide && b.shape != nil }
func (b *Body) Shape() Shape                { return b.shape }
func (b *Body) Material() *material.Surface { return b.material }
func (b *Body) Family() int                 { return b.family }

// ContactForce is the total contact force applied to the body during the
// last step.
func (b *Body) ContactForce() geom.Vec3 { return b.contactF }

func (b *Body) SetMass(m float64)        { b.mass = m }
func (b *Body) SetInertiaXX(i geom.Vec3) { b.inertia = i }
func (b *Body) SetPos(p geom.Vec3)       { b.pos = p }
func (b *Body) SetRot(q geom.Quat)       { b.rot = q.Normalize() }
func (b *Body) SetLinVel(v geom.Vec3)    { b.linVel = v }
func (b *Body) SetAngVel(w geom.Vec3)    { b.angVel = w }
func (b *Body) SetCollide(c bool)        { b.collide = c }
func (b *Body) SetFamily(f int)          { b.family = f }

// SetFixed pins the body in place and clears its velocity.
func (b *Body) SetFixed(f bool) {
	b.fixed = f
	if f {
		b.linVel = geom.Zero
		b.angVel = geom.Zero
	}
}

// SetKinematic makes the body follow its velocity regardless of forces.
func (b *Body) SetKinematic(k bool) { b.kinematic = k }

// SetShape attaches a collision shape and its surface material. A nil
// material disables collision for the body.
func (b *Body) SetShape(s Shape, m *material.Surface) {
	b.shape = s
	b.material = m
	b.collide = s != nil && m != nil
}

// Dynamic reports whether forces and constraints move the body.
func (b *Body) Dynamic() bool { return !b.fixed && !b.kinematic && b.mass > 0 }

func (b *Body) InvMass() float64 {
	if !b.Dynamic() {
		return 0
	}
	return 1 / b.mass
}

// InvInertiaWorld is R * I^-1 * R^T as of the start of the current step.
func (b *Body) InvInertiaWorld() geom.Mat3 { return b.invInertia }

func (b *Body) refreshInertia() {
	if !b.Dynamic() {
		b.invInertia = geom.Mat3{}
		return
	}
	inv := geom.V(safeInv(b.inertia.X), safeInv(b.inertia.Y), safeInv(b.inertia.Z))
	r := geom.FromQuat(b.rot)
	b.invInertia = r.Mul(geom.Diag(inv)).Mul(r.Transpose())
}

func safeInv(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return 1 / v
}

// LocalToWorld maps a body-frame point to world coordinates.
func (b *Body) LocalToWorld(p geom.Vec3) geom.Vec3 { return b.pos.Add(b.rot.Rotate(p)) }

// WorldToLocal maps a world point into the body frame.
func (b *Body) WorldToLocal(p geom.Vec3) geom.Vec3 { return b.rot.Conj().Rotate(p.Sub(b.pos)) }

// PointVelocity is the world velocity of the material point at world position p.
func (b *Body) PointVelocity(p geom.Vec3) geom.Vec3 {
	return b.linVel.Add(b.angVel.Cross(p.Sub(b.pos)))
}

// ApplyForceAt accumulates a world force acting at world point p.
func (b *Body) ApplyForceAt(f, p geom.Vec3) {
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(p.Sub(b.pos).Cross(f))
}

func (b *Body) ApplyForce(f geom.Vec3)  { b.force = b.force.Add(f) }
func (b *Body) ApplyTorque(t geom.Vec3) { b.torque = b.torque.Add(t) }

// applyImpulse changes velocities by impulse j acting at lever arm r from
// the centre of mass.
func (b *Body) applyImpulse(j, r geom.Vec3) {
	if !b.Dynamic() {
		return
	}
	b.linVel = b.linVel.Add(j.Scale(1 / b.mass))
	b.angVel = b.angVel.Add(b.invInertia.MulVec(r.Cross(j)))
}

// KineticEnergy is the translational plus rotational kinetic energy.
func (b *Body) KineticEnergy() float64 {
	if !b.Dynamic() {
		return 0
	}
	wl := b.rot.Conj().Rotate(b.angVel)
	rot := 0.5 * (b.inertia.X*wl.X*wl.X + b.inertia.Y*wl.Y*wl.Y + b.inertia.Z*wl.Z*wl.Z)
	return 0.5*b.mass*b.linVel.LengthSq() + rot
}
