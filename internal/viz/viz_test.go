package viz

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvasSetAndClear(t *testing.T) {
	c := NewCanvas(4, 2)
	w, h := c.DotSize()
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)

	c.Set(0, 0)
	c.Set(7, 7)
	c.Set(-1, 3)
	c.Set(8, 0)
	assert.True(t, c.IsSet(0, 0))
	assert.True(t, c.IsSet(7, 7))
	assert.Len(t, c.Dots(), 2)
	assert.Equal(t, rune(brailleBase|0x01), c.Grid[0][0])

	c.Clear()
	assert.Empty(t, c.Dots())
	assert.Equal(t, 2, strings.Count(c.String(), "\n"))
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 3)
	c.DrawLine(0, 0, 9, 0)
	assert.Len(t, c.Dots(), 10)

	c.Clear()
	c.DrawLine(3, 9, 3, 2)
	for y := 2; y <= 9; y++ {
		assert.True(t, c.IsSet(3, y), "y=%d", y)
	}
}

func TestCanvasDrawCircle(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawCircle(10, 10, 4)
	assert.True(t, c.IsSet(14, 10))
	assert.True(t, c.IsSet(6, 10))
	assert.True(t, c.IsSet(10, 14))
	assert.True(t, c.IsSet(10, 6))
	assert.False(t, c.IsSet(10, 10))
}

func TestProjectionKeepsAspectAndFlipsY(t *testing.T) {
	c := NewCanvas(20, 10) // 40 x 40 dots
	l := Layout{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	p := NewProjection(l, c)

	x0, y0 := p.Point(geom.V(0, 0, 0))
	x1, y1 := p.Point(geom.V(1, 1, 0))
	assert.Equal(t, 0, x0)
	assert.Equal(t, 39, y0)
	assert.Equal(t, 39, x1)
	assert.Equal(t, 0, y1)
	assert.Equal(t, 39, p.Length(1))
}

func TestLayoutForScenario(t *testing.T) {
	sc := config.DefaultScenario()
	sc.Scene = config.SceneGuidePull
	l := LayoutForScenario(sc)
	assert.True(t, l.Guide)
	assert.True(t, l.Floor)
	assert.InDelta(t, sc.Floor.Top(), l.FloorTop, 1e-12)
	assert.Less(t, l.MinX, sc.Yarn.StartPosition.X)
	assert.Greater(t, l.MaxY, sc.Yarn.StartPosition.Y)

	sc.Scene = config.SceneFallingYarn
	assert.False(t, LayoutForScenario(sc).Guide)
}

func TestLayoutForPoints(t *testing.T) {
	l := LayoutForPoints([]geom.Vec3{geom.V(0, 1, 0), geom.V(2, -1, 0)}, 0.5)
	assert.Equal(t, Layout{MinX: -0.5, MaxX: 2.5, MinY: -1.5, MaxY: 1.5}, l)
}

func TestDrawSample(t *testing.T) {
	l := Layout{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1, Floor: true, FloorTop: -0.9}
	s := results.SimulationSample{Yarn: results.SegmentKinematicsSample{
		SegmentPositions: []geom.Vec3{geom.V(-0.5, 0.5, 0), geom.V(0.5, 0.5, 0)},
	}}
	c := Render(l, s, 20, 10)
	p := NewProjection(l, c)
	x, y := p.Point(geom.V(0, 0.5, 0))
	assert.True(t, c.IsSet(x, y), "yarn midpoint")
	_, fy := p.Point(geom.V(0, -0.9, 0))
	assert.True(t, c.IsSet(0, fy), "floor line")
}

func TestSnapshotSVG(t *testing.T) {
	assert.Empty(t, SnapshotSVG(nil, 2))

	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := SnapshotSVG(c, 2)
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `width="8" height="8"`)
	assert.Equal(t, 2, strings.Count(svg, "<circle"))
	assert.Contains(t, svg, `<circle cx="1.0" cy="1.0" r="0.8"/>`)

	var b strings.Builder
	require.NoError(t, WriteSVG(&b, c, 2))
	assert.Equal(t, svg, b.String())
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "───", Sparkline(nil, 3))
	assert.Empty(t, Sparkline([]float64{1}, 0))
	// only the last four values (2..5) are kept
	out := Sparkline([]float64{0, 1, 2, 3, 4, 5}, 4)
	n := 0
	for _, r := range sparkRunes {
		n += strings.Count(out, string(r))
	}
	assert.Equal(t, 4, n)
	assert.Contains(t, out, "▃")
	assert.Contains(t, out, "▅")
	assert.Contains(t, out, "█")
}

type fakeScene struct {
	t     float64
	fail  bool
	steps int
}

func (f *fakeScene) Step(dt float64) error {
	if f.fail {
		return errors.New("boom")
	}
	f.t += dt
	f.steps++
	return nil
}

func (f *fakeScene) Sample(t float64) results.SimulationSample {
	return results.SimulationSample{
		Time:          t,
		JointTensions: []float64{t},
		Yarn: results.SegmentKinematicsSample{
			SegmentPositions: []geom.Vec3{geom.V(0, 0.5-t, 0), geom.V(0.2, 0.5-t, 0)},
		},
	}
}

func newLive(t *testing.T, scene *fakeScene) *LiveModel {
	t.Helper()
	m, err := NewLiveModel(func() (Scene, error) {
		*scene = fakeScene{fail: scene.fail}
		return scene, nil
	}, LiveOptions{Title: "test", Dt: 0.01, StepsPerFrame: 5, Layout: Layout{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}})
	require.NoError(t, err)
	return m
}

func TestLiveModelTickSteps(t *testing.T) {
	scene := &fakeScene{}
	m := newLive(t, scene)
	assert.True(t, m.Running())

	_, cmd := m.Update(tickMsg{})
	assert.NotNil(t, cmd)
	assert.Equal(t, 5, scene.steps)
	assert.InDelta(t, 0.05, m.Time(), 1e-12)
	assert.Contains(t, m.View(), "RUNNING")
}

func TestLiveModelKeys(t *testing.T) {
	scene := &fakeScene{}
	m := newLive(t, scene)

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, m.Running())
	m.Update(tickMsg{})
	assert.Zero(t, scene.steps, "paused model must not step")
	assert.Contains(t, m.View(), "PAUSED")
	assert.Contains(t, m.View(), "pause")

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m.Update(tickMsg{})
	assert.Equal(t, 5, scene.steps)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.Zero(t, m.Time())
	assert.Zero(t, scene.steps)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestLiveModelStopsOnError(t *testing.T) {
	scene := &fakeScene{fail: true}
	m := newLive(t, scene)
	m.Update(tickMsg{})
	assert.False(t, m.Running())
	assert.EqualError(t, m.Err(), "boom")
	assert.Contains(t, m.View(), "FAILED")
}

func TestLiveModelStopsAtEnd(t *testing.T) {
	scene := &fakeScene{}
	m, err := NewLiveModel(func() (Scene, error) { return scene, nil },
		LiveOptions{Dt: 0.01, StepsPerFrame: 10, TEnd: 0.03})
	require.NoError(t, err)
	m.Update(tickMsg{})
	assert.Equal(t, 3, scene.steps)
	assert.False(t, m.Running())
	assert.Contains(t, m.View(), "100%")
}

func TestLiveModelReload(t *testing.T) {
	scene := &fakeScene{}
	ch := make(chan LiveReload, 1)
	m, err := NewLiveModel(func() (Scene, error) { return scene, nil },
		LiveOptions{Title: "before", Dt: 0.01, StepsPerFrame: 2, Reload: ch})
	require.NoError(t, err)
	m.Update(tickMsg{})
	require.Equal(t, 2, scene.steps)

	_, cmd := m.Update(reloadMsg{LiveReload: LiveReload{Err: errors.New("bad yaml")}, ok: true})
	assert.NotNil(t, cmd, "model keeps listening after a failed reload")
	assert.False(t, m.Running())
	assert.Contains(t, m.View(), "bad yaml")

	fresh := &fakeScene{}
	m.Update(reloadMsg{LiveReload: LiveReload{
		Build:   func() (Scene, error) { return fresh, nil },
		Options: LiveOptions{Title: "after", Dt: 0.02, StepsPerFrame: 3},
	}, ok: true})
	assert.NoError(t, m.Err())
	assert.True(t, m.Running())
	assert.Contains(t, m.View(), "AFTER")

	m.Update(tickMsg{})
	assert.Equal(t, 3, fresh.steps)
	assert.InDelta(t, 0.06, m.Time(), 1e-12)

	_, cmd = m.Update(reloadMsg{ok: false})
	assert.Nil(t, cmd, "closed reload channel ends the subscription")
}

func TestCanvasDrawLineClips(t *testing.T) {
	c := NewCanvas(5, 2)
	c.DrawLine(-1_000_000_000, 3, 1_000_000_000, 3)
	for x := 0; x < 10; x++ {
		assert.True(t, c.IsSet(x, 3), "dot %d on the clipped line", x)
	}
	assert.False(t, c.IsSet(0, 2))

	c.Clear()
	c.DrawLine(-50, -50, -10, -1)
	assert.Equal(t, strings.Repeat(string(rune(brailleBase)), 5), strings.Split(c.String(), "\n")[0])
}
