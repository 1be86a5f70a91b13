// Package geometry creates the rigid bodies the yarn scenes are built from.
package geometry

import (
	"math"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/material"
)

const minSegmentMass = 1e-6

// AddFloorBox adds a fixed box. A nil material leaves the floor visual only.
func AddFloorBox(sys *engine.System, halfSize, position geom.Vec3, mat *material.Surface) *engine.Body {
	b := engine.NewBody()
	b.Name = "floor"
	b.SetFixed(true)
	b.SetPos(position)
	b.SetShape(engine.Box{HalfSize: halfSize}, mat)
	sys.Add(b)
	return b
}

// CapsuleMass is the mass of a capsule with cylinder half length halfLen.
func CapsuleMass(halfLen, radius, density float64) float64 {
	cyl := math.Pi * radius * radius * 2 * halfLen
	caps := 4.0 / 3.0 * math.Pi * radius * radius * radius
	return math.Max(minSegmentMass, density*(cyl+caps))
}

// CapsuleInertia approximates the capsule as a rod of its full tip-to-tip
// length about the transverse axes and as a solid cylinder about its own
// (local Y) axis.
func CapsuleInertia(mass, halfLen, radius float64) geom.Vec3 {
	total := 2*halfLen + 2*radius
	ixz := mass*total*total/12 + 0.25*mass*radius*radius
	iy := 0.5 * mass * radius * radius
	return geom.V(ixz, iy, ixz)
}

// AddYarnSegmentCapsule adds one rigid yarn segment whose axis is local +Y.
// A nil material disables collision for the segment.
func AddYarnSegmentCapsule(sys *engine.System, halfLen, radius, density float64, mat *material.Surface) *engine.Body {
	m := CapsuleMass(halfLen, radius, density)
	b := engine.NewBody()
	b.SetMass(m)
	b.SetInertiaXX(CapsuleInertia(m, halfLen, radius))
	b.SetShape(engine.Capsule{HalfLength: halfLen, Radius: radius}, mat)
	sys.Add(b)
	return b
}

// AddGuideRing adds the fixed guide: a torus whose hole has the configured
// inner radius and whose symmetry axis follows cfg.Axis.
func AddGuideRing(sys *engine.System, cfg config.GuideConfig, mat *material.Surface) *engine.Body {
	b := engine.NewBody()
	b.Name = "guide"
	b.SetFixed(true)
	b.SetPos(cfg.Position)
	b.SetRot(geom.RotationFromTo(geom.UnitY, cfg.Axis.Normalize()))
	b.SetShape(engine.Torus{Radius: cfg.InnerRadius + cfg.WireRadius, Tube: cfg.WireRadius}, mat)
	sys.Add(b)
	return b
}

// AddPuller adds a kinematic, non-colliding body that drags whatever is
// jointed to it.
func AddPuller(sys *engine.System, position geom.Vec3, radius float64) *engine.Body {
	b := engine.NewBody()
	b.Name = "puller"
	b.SetKinematic(true)
	b.SetPos(position)
	b.SetShape(engine.Sphere{Radius: radius}, nil)
	sys.Add(b)
	return b
}

// AddBox adds a free solid box of uniform density.
func AddBox(sys *engine.System, halfSize geom.Vec3, density float64, mat *material.Surface) *engine.Body {
	w, h, d := 2*halfSize.X, 2*halfSize.Y, 2*halfSize.Z
	m := density * w * h * d
	b := engine.NewBody()
	b.SetMass(m)
	b.SetInertiaXX(geom.V(m*(h*h+d*d)/12, m*(w*w+d*d)/12, m*(w*w+h*h)/12))
	b.SetShape(engine.Box{HalfSize: halfSize}, mat)
	sys.Add(b)
	return b
}
