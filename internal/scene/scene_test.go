package scene

import (
	"testing"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guideScenario() *config.Scenario {
	sc := config.DefaultScenario()
	sc.Scene = config.SceneGuidePull
	sc.Yarn.Radius = 0.005
	sc.Yarn.Length = 0.6
	sc.Yarn.SegmentCount = 20
	sc.Yarn.StartPosition = geom.V(-0.4, 0.5, 0)
	sc.Yarn.StartDirection = geom.UnitX
	return sc
}

func run(t *testing.T, h *Handles, dt float64, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		require.NoError(t, h.Step(dt))
	}
}

func TestBuildFallingYarn(t *testing.T) {
	sc := config.DefaultScenario()
	h, err := BuildFallingYarn(sc.Simulation, sc.Yarn, sc.Floor)
	require.NoError(t, err)

	assert.Equal(t, config.SceneFallingYarn, h.Name)
	assert.Nil(t, h.Guide)
	assert.Nil(t, h.Puller)
	assert.Len(t, h.Chain.Segments, sc.Yarn.SegmentCount)
	assert.Len(t, h.System.Bodies(), sc.Yarn.SegmentCount+1)
	assert.Len(t, h.System.Links(), sc.Yarn.SegmentCount-1)
}

func TestFallingYarnComesToRest(t *testing.T) {
	sc := config.DefaultScenario()
	h, err := BuildFallingYarn(sc.Simulation, sc.Yarn, sc.Floor)
	require.NoError(t, err)

	run(t, h, sc.Simulation.Dt, sc.Simulation.Steps())

	top := sc.Floor.Top()
	s := h.Sample(h.System.Time())
	for i, p := range s.Yarn.SegmentPositions {
		assert.GreaterOrEqual(t, p.Y, top, "segment %d sank into the floor", i)
		assert.LessOrEqual(t, p.Y, top+3*sc.Yarn.Radius, "segment %d is not resting", i)
	}
	assert.Less(t, s.MaxJointGap, 5e-3)
	assert.Zero(t, s.GuideForce)
}

func TestBuildFallingYarn_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Scenario)
		want   error
	}{
		{"contact model", func(s *config.Scenario) { s.Simulation.ContactModel = "DEM" }, dynamo.ErrUnsupportedContactModel},
		{"dt", func(s *config.Scenario) { s.Simulation.Dt = 0 }, dynamo.ErrInvalidConfig},
		{"segments", func(s *config.Scenario) { s.Yarn.SegmentCount = 0 }, dynamo.ErrInvalidConfig},
		{"radius", func(s *config.Scenario) { s.Yarn.Radius = -1 }, dynamo.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := config.DefaultScenario()
			tt.mutate(sc)
			_, err := BuildFallingYarn(sc.Simulation, sc.Yarn, sc.Floor)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildGuidePull(t *testing.T) {
	sc := guideScenario()
	h, err := BuildGuidePull(sc)
	require.NoError(t, err)

	require.NotNil(t, h.Guide)
	require.NotNil(t, h.Puller)
	assert.True(t, h.Puller.Kinematic())
	assert.Len(t, h.Chain.Joints, sc.Yarn.SegmentCount)
	assert.InDelta(t, 0, h.Puller.Pos().Dist(geom.V(0.2, 0.5, 0)), 1e-12)

	sc.Pull.AnchorTail = true
	anchored, err := BuildGuidePull(sc)
	require.NoError(t, err)
	assert.Len(t, anchored.Chain.Joints, sc.Yarn.SegmentCount+1)
}

func TestGuidePullLoadsTheGuide(t *testing.T) {
	sc := guideScenario()
	h, err := BuildGuidePull(sc)
	require.NoError(t, err)

	maxGuide := 0.0
	for i := 0; i < 500; i++ {
		require.NoError(t, h.Step(1e-3))
		if f := h.Sample(h.System.Time()).GuideForce; f > maxGuide {
			maxGuide = f
		}
	}

	assert.InDelta(t, 0.2+0.5*sc.Pull.Speed, h.Puller.Pos().X, 1e-6)
	s := h.Sample(h.System.Time())
	assert.InDelta(t, 0, s.Tip.Dist(h.Puller.Pos()), 0.01)
	assert.Greater(t, maxGuide, 0.0)
	assert.Greater(t, s.MaxTension(), 0.0)
}

func TestGuidePullStartDelay(t *testing.T) {
	sc := guideScenario()
	sc.Pull.StartDelay = 1
	h, err := BuildGuidePull(sc)
	require.NoError(t, err)

	run(t, h, 1e-3, 20)
	assert.Equal(t, geom.Zero, h.Puller.LinVel())
	assert.InDelta(t, 0.2, h.Puller.Pos().X, 1e-12)
}

func TestBuildGuidePull_RingTooSmall(t *testing.T) {
	sc := guideScenario()
	sc.Scene = config.SceneFallingYarn
	sc.Guide.InnerRadius = sc.Yarn.Radius / 2
	_, err := BuildGuidePull(sc)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestBendingLinks(t *testing.T) {
	sc := config.DefaultScenario()
	sc.Yarn.SegmentCount = 6
	sc.Bending = config.BendingConfig{RSDAStiffness: 0.01, TSDASpan: 2, TSDAStiffness: 5}

	h, err := NewRegistry().Build(config.SceneFallingYarn, sc)
	require.NoError(t, err)
	// 5 joints, 5 rotational springs, 4 proxy springs
	assert.Len(t, h.System.Links(), 14)
	assert.Len(t, h.Chain.AuxLinks, 9)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{config.SceneFallingYarn, config.SceneGuidePull}, r.Names())

	_, err := r.Build("spinning_mule", config.DefaultScenario())
	assert.ErrorIs(t, err, dynamo.ErrUnknownScene)

	r.Register("custom", func(sc *config.Scenario) (*Handles, error) {
		return BuildFallingYarn(sc.Simulation, sc.Yarn, sc.Floor)
	})
	h, err := r.Build("custom", config.DefaultScenario())
	require.NoError(t, err)
	assert.NotNil(t, h.Chain)
	assert.Len(t, r.Names(), 3)
}

func TestSample(t *testing.T) {
	h, err := BuildGuidePull(guideScenario())
	require.NoError(t, err)
	run(t, h, 1e-3, 3)

	s := h.Sample(0.003)
	assert.Equal(t, 3, s.Step)
	assert.Equal(t, 0.003, s.Time)
	assert.Len(t, s.Yarn.SegmentPositions, 20)
	assert.Len(t, s.JointTensions, 20)
}
