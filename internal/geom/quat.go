package geom

import "math"

// Quat is a rotation quaternion W + Xi + Yj + Zk.
type Quat struct {
	W, X, Y, Z float64
}

var Identity = Quat{W: 1}

// FromAxisAngle builds the rotation of angle radians about axis.
func FromAxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalize()
	s, c := math.Sincos(angle / 2)
	return Quat{W: c, X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

func (q Quat) Conj() Quat { return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z} }

func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return Identity
	}
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// Integrate advances q by angular velocity w (world frame) over dt.
func (q Quat) Integrate(w Vec3, dt float64) Quat {
	dq := Quat{X: w.X, Y: w.Y, Z: w.Z}.Mul(q)
	h := 0.5 * dt
	return Quat{
		W: q.W + h*dq.W,
		X: q.X + h*dq.X,
		Y: q.Y + h*dq.Y,
		Z: q.Z + h*dq.Z,
	}.Normalize()
}

// AxisAngle decomposes q into a unit axis and an angle in [0, pi].
func (q Quat) AxisAngle() (Vec3, float64) {
	if q.W < 0 {
		q = Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	s := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if s < 1e-12 {
		return UnitX, 0
	}
	return Vec3{q.X / s, q.Y / s, q.Z / s}, 2 * math.Atan2(s, q.W)
}

// RotationVector returns axis*angle for q.
func (q Quat) RotationVector() Vec3 {
	axis, angle := q.AxisAngle()
	return axis.Scale(angle)
}

// RotationFromTo returns the shortest rotation taking unit vector from onto
// unit vector to. Anti-parallel inputs rotate by pi about an axis
// perpendicular to from.
func RotationFromTo(from, to Vec3) Quat {
	f := from.Normalize()
	t := to.Normalize()
	dot := math.Max(-1, math.Min(1, f.Dot(t)))

	if dot > 1-1e-12 {
		return Identity
	}
	if dot < -1+1e-12 {
		axis, _ := Orthonormal(f)
		return FromAxisAngle(axis, math.Pi)
	}

	axis := f.Cross(t)
	if axis.Length() == 0 {
		return Identity
	}
	return FromAxisAngle(axis, math.Acos(dot))
}
