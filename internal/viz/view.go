package viz

import (
	"math"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/results"
)

// Layout holds the static parts of a side view (looking down -Z) and the
// world window it shows.
type Layout struct {
	MinX, MaxX float64
	MinY, MaxY float64

	Floor    bool
	FloorTop float64

	Guide       bool
	GuideCenter geom.Vec3
	GuideRadius float64
}

// LayoutForScenario frames the floor, the guide and the full travel of
// the yarn.
func LayoutForScenario(sc *config.Scenario) Layout {
	y := sc.Yarn
	dir := y.StartDirection.Normalize()
	end := y.StartPosition.Add(dir.Scale(y.Length))
	l := Layout{
		MinX:     math.Min(y.StartPosition.X, end.X) - 0.1,
		MaxX:     math.Max(y.StartPosition.X, end.X) + 0.1,
		MinY:     sc.Floor.Top() - 0.05,
		MaxY:     math.Max(y.StartPosition.Y, end.Y) + 0.1,
		Floor:    true,
		FloorTop: sc.Floor.Top(),
	}
	if sc.Scene == config.SceneGuidePull {
		travel := sc.Pull.Direction.Normalize().Scale(sc.Pull.Speed * sc.Simulation.TEnd)
		pulled := end.Add(travel)
		l.MinX = math.Min(l.MinX, pulled.X-0.1)
		l.MaxX = math.Max(l.MaxX, pulled.X+0.1)
		l.Guide = true
		l.GuideCenter = sc.Guide.Position
		l.GuideRadius = sc.Guide.InnerRadius + sc.Guide.WireRadius
	}
	return l
}

// LayoutForPoints frames a point set with a margin.
func LayoutForPoints(pts []geom.Vec3, margin float64) Layout {
	if len(pts) == 0 {
		return Layout{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}
	}
	l := Layout{MinX: pts[0].X, MaxX: pts[0].X, MinY: pts[0].Y, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		l.MinX, l.MaxX = math.Min(l.MinX, p.X), math.Max(l.MaxX, p.X)
		l.MinY, l.MaxY = math.Min(l.MinY, p.Y), math.Max(l.MaxY, p.Y)
	}
	l.MinX -= margin
	l.MaxX += margin
	l.MinY -= margin
	l.MaxY += margin
	return l
}

// Projection maps world X/Y onto canvas dots with equal scale on both axes.
type Projection struct {
	scale  float64
	ox, oy float64
	height int
}

func NewProjection(l Layout, c *Canvas) Projection {
	w, h := c.DotSize()
	spanX, spanY := l.MaxX-l.MinX, l.MaxY-l.MinY
	if spanX <= 0 || spanY <= 0 {
		// an empty layout still gets a 1 m window around the origin
		l = Layout{MinX: -0.5, MaxX: 0.5, MinY: -0.5, MaxY: 0.5}
		spanX, spanY = 1, 1
	}
	scale := math.Min(float64(w-1)/spanX, float64(h-1)/spanY)
	// centre the window on the canvas
	ox := l.MinX - (float64(w-1)/scale-spanX)/2
	oy := l.MinY - (float64(h-1)/scale-spanY)/2
	return Projection{scale: scale, ox: ox, oy: oy, height: h}
}

func (p Projection) Point(v geom.Vec3) (int, int) {
	x := int(math.Round((v.X - p.ox) * p.scale))
	y := p.height - 1 - int(math.Round((v.Y-p.oy)*p.scale))
	return x, y
}

// Length converts a world length to dots.
func (p Projection) Length(l float64) int { return int(math.Round(l * p.scale)) }

// DrawSample draws the layout and the yarn of one sample.
func DrawSample(c *Canvas, l Layout, s results.SimulationSample) {
	p := NewProjection(l, c)
	w, _ := c.DotSize()
	if l.Floor {
		_, fy := p.Point(geom.V(0, l.FloorTop, 0))
		c.DrawLine(0, fy, w-1, fy)
	}
	if l.Guide {
		gx, gy := p.Point(l.GuideCenter)
		c.DrawCircle(gx, gy, max(p.Length(l.GuideRadius), 1))
	}
	pts := s.Yarn.SegmentPositions
	for i := range pts {
		x, y := p.Point(pts[i])
		if i == 0 {
			c.Set(x, y)
			continue
		}
		px, py := p.Point(pts[i-1])
		c.DrawLine(px, py, x, y)
	}
}

// Render draws one sample onto a fresh canvas.
func Render(l Layout, s results.SimulationSample, w, h int) *Canvas {
	c := NewCanvas(w, h)
	DrawSample(c, l, s)
	return c
}
