package yarn

import (
	"math"

	"github.com/san-kum/yarnsim/internal/geom"
)

// ExtractSegmentPositions copies the segment centres in chain order.
func ExtractSegmentPositions(c *Chain) []geom.Vec3 {
	out := make([]geom.Vec3, len(c.Segments))
	for i, s := range c.Segments {
		out[i] = s.Pos()
	}
	return out
}

// segmentTip is the world position of the segment tip at local (0, y, 0).
func segmentTip(c *Chain, i int, y float64) geom.Vec3 {
	return c.Segments[i].LocalToWorld(geom.V(0, y, 0))
}

// MaxNeighborJointGap is the largest distance between the right tip of a
// segment and the left tip of the next one. An ideal chain reports zero.
func MaxNeighborJointGap(c *Chain) float64 {
	if len(c.Segments) < 2 || c.SegmentLength <= 0 {
		return 0
	}
	half := 0.5 * c.SegmentLength
	gap := 0.0
	for i := 1; i < len(c.Segments); i++ {
		d := segmentTip(c, i-1, half).Dist(segmentTip(c, i, -half))
		gap = math.Max(gap, d)
	}
	return gap
}

// JointTensions reports the reaction force magnitude of every joint in
// chain order: neighbours first, then the anchor and lead joints if any.
func JointTensions(c *Chain) []float64 {
	out := make([]float64, len(c.Joints))
	for i, j := range c.Joints {
		out[i] = j.Tension()
	}
	return out
}

// TipPosition is the right tip of the last segment.
func TipPosition(c *Chain) geom.Vec3 {
	if len(c.Segments) == 0 {
		return geom.Zero
	}
	return segmentTip(c, len(c.Segments)-1, 0.5*c.SegmentLength)
}

// TailPosition is the left tip of the first segment.
func TailPosition(c *Chain) geom.Vec3 {
	if len(c.Segments) == 0 {
		return geom.Zero
	}
	return segmentTip(c, 0, -0.5*c.SegmentLength)
}

// CenterOfMass is the mass-weighted mean of the segment centres.
func CenterOfMass(c *Chain) geom.Vec3 {
	var sum geom.Vec3
	m := 0.0
	for _, s := range c.Segments {
		sum = sum.Add(s.Pos().Scale(s.Mass()))
		m += s.Mass()
	}
	if m == 0 {
		return geom.Zero
	}
	return sum.Scale(1 / m)
}
