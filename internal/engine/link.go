package engine

import "github.com/san-kum/yarnsim/internal/geom"

const baumgarte = 0.2

// Link connects two bodies.
type Link interface {
	BodyA() *Body
	BodyB() *Body
}

// forceLink contributes forces before velocities are integrated.
type forceLink interface {
	Link
	applyForces()
}

// constraint is solved at velocity level by the PGS loop.
type constraint interface {
	prepare(dt float64)
	warmStart()
	solve() float64
	finish(dt float64)
}

// SphericalJoint ties a point of body A to a point of body B.
type SphericalJoint struct {
	a, b     *Body
	localA   geom.Vec3
	localB   geom.Vec3
	ra, rb   geom.Vec3
	invK     geom.Mat3
	bias     geom.Vec3
	impulse  geom.Vec3
	reaction geom.Vec3
	active   bool
}

// NewSphericalJoint joins a and b at world point p.
func NewSphericalJoint(a, b *Body, p geom.Vec3) *SphericalJoint {
	return &SphericalJoint{
		a:      a,
		b:      b,
		localA: a.WorldToLocal(p),
		localB: b.WorldToLocal(p),
	}
}

func (j *SphericalJoint) BodyA() *Body { return j.a }
func (j *SphericalJoint) BodyB() *Body { return j.b }

// ReactionForce is the constraint force applied to body A during the last
// step; body B receives the opposite force.
func (j *SphericalJoint) ReactionForce() geom.Vec3 { return j.reaction }

// Tension is the magnitude of the reaction force.
func (j *SphericalJoint) Tension() float64 { return j.reaction.Length() }

// WorldPoints returns the joint anchor on each body in world coordinates.
func (j *SphericalJoint) WorldPoints() (geom.Vec3, geom.Vec3) {
	return j.a.LocalToWorld(j.localA), j.b.LocalToWorld(j.localB)
}

// Violation is the distance between the two anchors.
func (j *SphericalJoint) Violation() float64 {
	pa, pb := j.WorldPoints()
	return pa.Dist(pb)
}

func (j *SphericalJoint) prepare(dt float64) {
	j.ra = j.a.rot.Rotate(j.localA)
	j.rb = j.b.rot.Rotate(j.localB)

	imA, imB := j.a.InvMass(), j.b.InvMass()
	k := geom.Diag(geom.V(imA+imB, imA+imB, imA+imB))
	sa := geom.Skew(j.ra)
	sb := geom.Skew(j.rb)
	k = k.Add(negate(sa.Mul(j.a.invInertia).Mul(sa)))
	k = k.Add(negate(sb.Mul(j.b.invInertia).Mul(sb)))

	inv, ok := k.Inverse()
	j.active = ok && (j.a.Dynamic() || j.b.Dynamic())
	if !j.active {
		j.impulse = geom.Zero
		return
	}
	j.invK = inv

	pa := j.a.pos.Add(j.ra)
	pb := j.b.pos.Add(j.rb)
	j.bias = pa.Sub(pb).Scale(baumgarte / dt)
}

func (j *SphericalJoint) warmStart() {
	if !j.active {
		return
	}
	j.a.applyImpulse(j.impulse, j.ra)
	j.b.applyImpulse(j.impulse.Neg(), j.rb)
}

func (j *SphericalJoint) solve() float64 {
	if !j.active {
		return 0
	}
	va := j.a.linVel.Add(j.a.angVel.Cross(j.ra))
	vb := j.b.linVel.Add(j.b.angVel.Cross(j.rb))
	cdot := va.Sub(vb).Add(j.bias)

	lambda := j.invK.MulVec(cdot).Neg()
	j.impulse = j.impulse.Add(lambda)
	j.a.applyImpulse(lambda, j.ra)
	j.b.applyImpulse(lambda.Neg(), j.rb)
	return lambda.Length()
}

func (j *SphericalJoint) finish(dt float64) {
	j.reaction = j.impulse.Scale(1 / dt)
}

func negate(m geom.Mat3) geom.Mat3 {
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			m[i][k] = -m[i][k]
		}
	}
	return m
}

// TSDA is a translational spring-damper between two body points. A
// positive force pulls the points together.
type TSDA struct {
	a, b           *Body
	localA, localB geom.Vec3
	RestLength     float64
	Stiffness      float64
	Damping        float64
	force          float64
}

// NewTSDA connects local point la of a to local point lb of b.
func NewTSDA(a, b *Body, la, lb geom.Vec3, rest, k, c float64) *TSDA {
	return &TSDA{a: a, b: b, localA: la, localB: lb, RestLength: rest, Stiffness: k, Damping: c}
}

func (s *TSDA) BodyA() *Body { return s.a }
func (s *TSDA) BodyB() *Body { return s.b }

// Length is the current distance between the attachment points.
func (s *TSDA) Length() float64 {
	return s.a.LocalToWorld(s.localA).Dist(s.b.LocalToWorld(s.localB))
}

// Force is the spring-damper force computed during the last step.
func (s *TSDA) Force() float64 { return s.force }

func (s *TSDA) applyForces() {
	pa := s.a.LocalToWorld(s.localA)
	pb := s.b.LocalToWorld(s.localB)
	d := pb.Sub(pa)
	l := d.Length()
	if l < 1e-12 {
		s.force = 0
		return
	}
	u := d.Scale(1 / l)
	ldot := s.b.PointVelocity(pb).Sub(s.a.PointVelocity(pa)).Dot(u)
	s.force = s.Stiffness*(l-s.RestLength) + s.Damping*ldot
	f := u.Scale(s.force)
	s.a.ApplyForceAt(f, pa)
	s.b.ApplyForceAt(f.Neg(), pb)
}

// RSDA is a rotational spring-damper acting on the rotation of A relative
// to B since construction. With a non-zero Axis it acts about that
// world-fixed axis only; with a zero Axis it resists relative rotation
// about every axis and RestAngle is ignored.
type RSDA struct {
	a, b      *Body
	Axis      geom.Vec3
	RestAngle float64
	Stiffness float64
	Damping   float64
	qa0, qb0  geom.Quat
	torque    geom.Vec3
}

func NewRSDA(a, b *Body, axis geom.Vec3, rest, k, c float64) *RSDA {
	return &RSDA{
		a:         a,
		b:         b,
		Axis:      axis.Normalize(),
		RestAngle: rest,
		Stiffness: k,
		Damping:   c,
		qa0:       a.rot,
		qb0:       b.rot,
	}
}

func (r *RSDA) BodyA() *Body { return r.a }
func (r *RSDA) BodyB() *Body { return r.b }

// Torque is the torque applied to body A during the last step.
func (r *RSDA) Torque() geom.Vec3 { return r.torque }

// RelativeRotation is the rotation vector of A relative to B since
// construction, in world coordinates.
func (r *RSDA) RelativeRotation() geom.Vec3 {
	da := r.a.rot.Mul(r.qa0.Conj())
	db := r.b.rot.Mul(r.qb0.Conj())
	return da.Mul(db.Conj()).RotationVector()
}

// Angle is the relative rotation about Axis.
func (r *RSDA) Angle() float64 {
	if r.Axis == geom.Zero {
		return r.RelativeRotation().Length()
	}
	return r.RelativeRotation().Dot(r.Axis)
}

func (r *RSDA) applyForces() {
	rel := r.RelativeRotation()
	dw := r.a.angVel.Sub(r.b.angVel)

	var tau geom.Vec3
	if r.Axis == geom.Zero {
		tau = rel.Scale(-r.Stiffness).Sub(dw.Scale(r.Damping))
	} else {
		angle := rel.Dot(r.Axis)
		m := -(r.Stiffness*(angle-r.RestAngle) + r.Damping*dw.Dot(r.Axis))
		tau = r.Axis.Scale(m)
	}
	if !tau.IsFinite() {
		tau = geom.Zero
	}
	r.torque = tau
	r.a.ApplyTorque(tau)
	r.b.ApplyTorque(tau.Neg())
}
