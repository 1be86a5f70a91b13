package yarn

import (
	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geom"
)

// AddBendingProxyTSDAs links segment centres span segments apart with
// spring-dampers that resist folding. span must be at least 2.
func AddBendingProxyTSDAs(sys *engine.System, c *Chain, span int, k, damping float64) ([]*engine.TSDA, error) {
	if span < 2 {
		return nil, dynamo.Invalid("bending.tsda_span", "must be >= 2, got %d", span)
	}
	if len(c.Segments) <= span {
		return nil, nil
	}

	rest := c.SegmentLength * float64(span)
	var links []*engine.TSDA
	for i := 0; i+span < len(c.Segments); i++ {
		s := engine.NewTSDA(c.Segments[i], c.Segments[i+span], geom.Zero, geom.Zero, rest, k, damping)
		sys.AddLink(s)
		links = append(links, s)
		c.AuxLinks = append(c.AuxLinks, s)
	}
	return links, nil
}

// RSDAAxis is the world axis the bending springs act about. Chains built
// along X bend in the XY plane.
var RSDAAxis = geom.UnitZ

// AddBendingRSDAs adds one rotational spring-damper per neighbouring
// segment pair.
func AddBendingRSDAs(sys *engine.System, c *Chain, k, damping, restAngle float64) []*engine.RSDA {
	if len(c.Segments) < 2 {
		return nil
	}
	var links []*engine.RSDA
	for i := 1; i < len(c.Segments); i++ {
		r := engine.NewRSDA(c.Segments[i], c.Segments[i-1], RSDAAxis, restAngle, k, damping)
		sys.AddLink(r)
		links = append(links, r)
		c.AuxLinks = append(c.AuxLinks, r)
	}
	return links
}
