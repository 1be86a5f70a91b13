package engine

import (
	"fmt"
	"math"

	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/material"
)

// Contact is one contact point between A and B. Normal points from B to A
// and Point lies on the surface of A.
type Contact struct {
	A, B   *Body
	Point  geom.Vec3
	Normal geom.Vec3
	Gap    float64 // signed distance, negative when penetrating
	Radius float64 // effective curvature radius for Hertz contact
	Pair   material.Pair

	ra, rb     geom.Vec3
	t1, t2     geom.Vec3
	kn, k1, k2 float64
	target     float64
	jn, j1, j2 float64
}

// Impulse is the total contact impulse applied to A in the last solve.
func (c *Contact) Impulse() geom.Vec3 {
	return c.Normal.Scale(c.jn).Add(c.t1.Scale(c.j1)).Add(c.t2.Scale(c.j2))
}

type bodyPair struct{ a, b *Body }

// broadPhase lists body pairs whose bounding spheres overlap within the
// envelope. Pairs of non-dynamic bodies and pairs in the same non-zero
// collision family are skipped.
func broadPhase(bodies []*Body, envelope float64) []bodyPair {
	var pairs []bodyPair
	for i := 0; i < len(bodies); i++ {
		a := bodies[i]
		if !a.Collide() {
			continue
		}
		for j := i + 1; j < len(bodies); j++ {
			b := bodies[j]
			if !b.Collide() {
				continue
			}
			if !a.Dynamic() && !b.Dynamic() {
				continue
			}
			if a.family != 0 && a.family == b.family {
				continue
			}
			reach := a.shape.BoundingRadius() + b.shape.BoundingRadius() + envelope
			if a.pos.Sub(b.pos).LengthSq() > reach*reach {
				continue
			}
			pairs = append(pairs, bodyPair{a, b})
		}
	}
	return pairs
}

// narrowPhase generates the contacts of one pair.
func narrowPhase(p bodyPair, envelope float64) ([]*Contact, error) {
	a, b := p.a, p.b
	ka, kb := a.shape.Kind(), b.shape.Kind()

	// sphere is handled as a zero-length capsule
	sa, sb := asCapsule(a.shape), asCapsule(b.shape)

	switch {
	case sa != nil && kb == ShapeBox:
		return capsuleBox(a, *sa, b, b.shape.(Box), envelope), nil
	case sb != nil && ka == ShapeBox:
		return capsuleBox(b, *sb, a, a.shape.(Box), envelope), nil
	case sa != nil && kb == ShapeTorus:
		return capsuleTorus(a, *sa, b, b.shape.(Torus), envelope), nil
	case sb != nil && ka == ShapeTorus:
		return capsuleTorus(b, *sb, a, a.shape.(Torus), envelope), nil
	case ka == ShapeBox && kb == ShapeBox && !b.Dynamic():
		return boxOnBox(a, a.shape.(Box), b, b.shape.(Box), envelope), nil
	case ka == ShapeBox && kb == ShapeBox && !a.Dynamic():
		return boxOnBox(b, b.shape.(Box), a, a.shape.(Box), envelope), nil
	}
	return nil, fmt.Errorf("%w: collision between %s and %s", dynamo.ErrNotImplemented, ka, kb)
}

func asCapsule(s Shape) *Capsule {
	switch v := s.(type) {
	case Capsule:
		return &v
	case Sphere:
		return &Capsule{Radius: v.Radius}
	}
	return nil
}

// capsuleBox tests the capsule end spheres against the upper (+Y local)
// face of the box.
func capsuleBox(cb *Body, c Capsule, bb *Body, box Box, envelope float64) []*Contact {
	var out []*Contact
	up := bb.rot.Rotate(geom.UnitY)
	h := box.HalfSize
	for _, e := range capsuleSamples(cb, c, 0) {
		pl := bb.WorldToLocal(e)
		if math.Abs(pl.X) > h.X+c.Radius || math.Abs(pl.Z) > h.Z+c.Radius || pl.Y < -h.Y {
			continue
		}
		gap := pl.Y - h.Y - c.Radius
		if gap > envelope {
			continue
		}
		out = append(out, &Contact{
			A:      cb,
			B:      bb,
			Point:  e.Sub(up.Scale(c.Radius)),
			Normal: up,
			Gap:    gap,
			Radius: c.Radius,
			Pair:   material.Combine(cb.material, bb.material),
		})
	}
	return out
}

// capsuleTorus keeps the deepest point of the capsule axis against the
// torus tube.
func capsuleTorus(cb *Body, c Capsule, tb *Body, tor Torus, envelope float64) []*Contact {
	axis := tb.rot.Rotate(geom.UnitY)
	best := math.Inf(1)
	var bestP, bestN geom.Vec3
	for _, p := range capsuleSamples(cb, c, 0.5*(c.Radius+tor.Tube)) {
		d := p.Sub(tb.pos)
		radial := d.Sub(axis.Scale(d.Dot(axis)))
		if radial.Length() < 1e-12 {
			radial, _ = geom.Orthonormal(axis)
		}
		q := tb.pos.Add(radial.Normalize().Scale(tor.Radius))
		v := p.Sub(q)
		dist := v.Length()
		gap := dist - c.Radius - tor.Tube
		if gap < best && dist > 1e-12 {
			best = gap
			bestP = p
			bestN = v.Scale(1 / dist)
		}
	}
	if best > envelope {
		return nil
	}
	return []*Contact{{
		A:      cb,
		B:      tb,
		Point:  bestP.Sub(bestN.Scale(c.Radius)),
		Normal: bestN,
		Gap:    best,
		Radius: c.Radius * tor.Tube / (c.Radius + tor.Tube),
		Pair:   material.Combine(cb.material, tb.material),
	}}
}

// boxOnBox tests the corners of box a against the upper face of the
// non-dynamic box b.
func boxOnBox(ab *Body, a Box, bb *Body, b Box, envelope float64) []*Contact {
	var out []*Contact
	up := bb.rot.Rotate(geom.UnitY)
	h := b.HalfSize
	r := 0.25 * math.Min(a.HalfSize.X, math.Min(a.HalfSize.Y, a.HalfSize.Z))
	for _, corner := range a.Corners() {
		p := ab.LocalToWorld(corner)
		pl := bb.WorldToLocal(p)
		if math.Abs(pl.X) > h.X || math.Abs(pl.Z) > h.Z || pl.Y < -h.Y {
			continue
		}
		gap := pl.Y - h.Y
		if gap > envelope {
			continue
		}
		out = append(out, &Contact{
			A:      ab,
			B:      bb,
			Point:  p,
			Normal: up,
			Gap:    gap,
			Radius: r,
			Pair:   material.Combine(ab.material, bb.material),
		})
	}
	return out
}
