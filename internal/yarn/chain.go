// Package yarn assembles a yarn as a chain of rigid capsule segments joined
// by spherical joints and reads its state back out.
package yarn

import (
	"fmt"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/geometry"
	"github.com/san-kum/yarnsim/internal/material"
)

// Family is the collision family of yarn segments. Segments of one chain
// never collide with each other.
const Family = 1

// Chain references the bodies and links created for one yarn.
type Chain struct {
	Segments      []*engine.Body
	Joints        []*engine.SphericalJoint
	AuxLinks      []engine.Link
	SegmentLength float64
	Radius        float64

	start     geom.Vec3
	direction geom.Vec3
}

// Options tune chain assembly.
type Options struct {
	// FixedSegments pins every segment and skips the joints.
	FixedSegments bool
	// Lead, when set, is jointed to the right tip of the last segment.
	Lead *engine.Body
}

// BuildChain adds a straight chain of cfg.SegmentCount capsules starting at
// cfg.StartPosition and running along cfg.StartDirection. When anchor is
// non-nil it is jointed to the first segment at the start point.
func BuildChain(sys *engine.System, cfg config.YarnConfig, mat *material.Surface, anchor *engine.Body, opts Options) (*Chain, error) {
	if cfg.SegmentCount <= 0 {
		return nil, dynamo.Invalid("yarn.segment_count", "must be > 0, got %d", cfg.SegmentCount)
	}
	if cfg.Length <= 0 {
		return nil, dynamo.Invalid("yarn.length", "must be > 0, got %g", cfg.Length)
	}
	if cfg.StartDirection.Length() == 0 {
		return nil, dynamo.Invalid("yarn.start_direction", "must be non-zero")
	}

	dir := cfg.StartDirection.Normalize()
	q := RotationFromLocalY(dir)
	segLen := cfg.SegmentLength()
	half := 0.5 * segLen

	ch := &Chain{
		SegmentLength: segLen,
		Radius:        cfg.Radius,
		start:         cfg.StartPosition,
		direction:     dir,
	}

	for i := 0; i < cfg.SegmentCount; i++ {
		seg := geometry.AddYarnSegmentCapsule(sys, half, cfg.Radius, cfg.Density, mat)
		seg.Name = fmt.Sprintf("segment-%d", i)
		seg.SetFamily(Family)
		left := ch.jointPoint(i)
		seg.SetRot(q)
		seg.SetPos(left.Add(q.Rotate(geom.V(0, half, 0))))
		seg.SetFixed(opts.FixedSegments)
		ch.Segments = append(ch.Segments, seg)
	}

	if opts.FixedSegments {
		return ch, nil
	}

	for i := 1; i < cfg.SegmentCount; i++ {
		j := engine.NewSphericalJoint(ch.Segments[i], ch.Segments[i-1], ch.jointPoint(i))
		sys.AddLink(j)
		ch.Joints = append(ch.Joints, j)
	}
	if anchor != nil {
		j := engine.NewSphericalJoint(ch.Segments[0], anchor, ch.start)
		sys.AddLink(j)
		ch.Joints = append(ch.Joints, j)
	}
	if opts.Lead != nil {
		last := ch.Segments[len(ch.Segments)-1]
		j := engine.NewSphericalJoint(last, opts.Lead, ch.jointPoint(cfg.SegmentCount))
		sys.AddLink(j)
		ch.Joints = append(ch.Joints, j)
	}
	return ch, nil
}

// jointPoint is the build-time position of the left tip of segment i.
func (c *Chain) jointPoint(i int) geom.Vec3 {
	return c.start.Add(c.direction.Scale(float64(i) * c.SegmentLength))
}

// RotationFromLocalY returns the rotation taking local +Y onto dir.
func RotationFromLocalY(dir geom.Vec3) geom.Quat {
	return geom.RotationFromTo(geom.UnitY, dir)
}
