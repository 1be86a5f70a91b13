package engine

import (
	"math"

	"github.com/san-kum/yarnsim/internal/geom"
)

type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeCapsule
	ShapeTorus
	ShapeSphere
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeCapsule:
		return "capsule"
	case ShapeTorus:
		return "torus"
	case ShapeSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// Shape is a collision geometry expressed in body-local coordinates.
type Shape interface {
	Kind() ShapeKind
	// BoundingRadius bounds the shape around the body origin.
	BoundingRadius() float64
}

// Box is centred on the body origin.
type Box struct {
	HalfSize geom.Vec3
}

func (Box) Kind() ShapeKind           { return ShapeBox }
func (b Box) BoundingRadius() float64 { return b.HalfSize.Length() }

// Corners returns the eight local-frame corners.
func (b Box) Corners() [8]geom.Vec3 {
	h := b.HalfSize
	var out [8]geom.Vec3
	i := 0
	for _, sx := range [2]float64{-1, 1} {
		for _, sy := range [2]float64{-1, 1} {
			for _, sz := range [2]float64{-1, 1} {
				out[i] = geom.V(sx*h.X, sy*h.Y, sz*h.Z)
				i++
			}
		}
	}
	return out
}

// Capsule is a cylinder of length 2*HalfLength along local Y capped with
// hemispheres of Radius.
type Capsule struct {
	HalfLength float64
	Radius     float64
}

func (Capsule) Kind() ShapeKind           { return ShapeCapsule }
func (c Capsule) BoundingRadius() float64 { return c.HalfLength + c.Radius }

// Torus is a ring of major Radius and tube radius Tube whose axis is local Y.
type Torus struct {
	Radius float64
	Tube   float64
}

func (Torus) Kind() ShapeKind           { return ShapeTorus }
func (t Torus) BoundingRadius() float64 { return t.Radius + t.Tube }

type Sphere struct {
	Radius float64
}

func (Sphere) Kind() ShapeKind           { return ShapeSphere }
func (s Sphere) BoundingRadius() float64 { return s.Radius }

// capsuleSamples returns points along the capsule axis in world space,
// spaced no further apart than maxSpacing and always including both ends.
func capsuleSamples(b *Body, c Capsule, maxSpacing float64) []geom.Vec3 {
	n := 2
	if maxSpacing > 0 {
		n = int(math.Ceil(2*c.HalfLength/maxSpacing)) + 1
		if n < 2 {
			n = 2
		}
	}
	a := b.LocalToWorld(geom.V(0, -c.HalfLength, 0))
	e := b.LocalToWorld(geom.V(0, c.HalfLength, 0))
	pts := make([]geom.Vec3, n)
	for i := 0; i < n; i++ {
		pts[i] = geom.Lerp(a, e, float64(i)/float64(n-1))
	}
	return pts
}
