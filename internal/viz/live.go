package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/yarnsim/internal/results"
)

const (
	canvasWidth     = 64
	canvasHeight    = 22
	historyCapacity = 400
	frameInterval   = time.Second / 30
)

// Scene is anything the live view can step and sample.
type Scene interface {
	Step(dt float64) error
	Sample(t float64) results.SimulationSample
}

// SceneFactory builds a fresh scene; the live view calls it again on reset.
type SceneFactory func() (Scene, error)

type LiveOptions struct {
	Title string
	Dt    float64
	// StepsPerFrame physics steps run per rendered frame.
	StepsPerFrame int
	TEnd          float64
	Layout        Layout
	// Reload, when set, swaps in a new scene each time a value arrives.
	Reload <-chan LiveReload
}

// LiveReload replaces the running scene. A non-nil Err is shown instead and
// the current scene is paused.
type LiveReload struct {
	Build   SceneFactory
	Options LiveOptions
	Err     error
}

type reloadMsg struct {
	LiveReload
	ok bool
}

type tickMsg time.Time

type liveKeys struct {
	Pause key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func (k liveKeys) ShortHelp() []key.Binding { return []key.Binding{k.Pause, k.Reset, k.Quit} }

func (k liveKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var defaultKeys = liveKeys{
	Pause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// LiveModel is a bubbletea model that steps a scene and draws the yarn in
// side view with the guide load and a tension sparkline.
type LiveModel struct {
	opts    LiveOptions
	build   SceneFactory
	scene   Scene
	canvas  *Canvas
	sample  results.SimulationSample
	steps   int
	running bool
	err     error

	keys     liveKeys
	help     help.Model
	progress progress.Model

	tension    []float64
	guideForce []float64
}

func NewLiveModel(build SceneFactory, opts LiveOptions) (*LiveModel, error) {
	if opts.StepsPerFrame <= 0 {
		opts.StepsPerFrame = 1
	}
	m := &LiveModel{
		opts:     opts,
		build:    build,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		keys:     defaultKeys,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
	if err := m.reset(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LiveModel) Init() tea.Cmd { return tea.Batch(tick(), m.waitReload()) }

func (m *LiveModel) waitReload() tea.Cmd {
	if m.opts.Reload == nil {
		return nil
	}
	ch := m.opts.Reload
	return func() tea.Msg {
		r, ok := <-ch
		return reloadMsg{LiveReload: r, ok: ok}
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			if m.err == nil {
				m.running = !m.running
			}
		case key.Matches(msg, m.keys.Reset):
			if err := m.reset(); err != nil {
				m.err = err
				m.running = false
			}
		}
	case reloadMsg:
		if !msg.ok {
			return m, nil
		}
		m.applyReload(msg.LiveReload)
		return m, m.waitReload()
	case tickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// Time is the simulated time of the displayed sample.
func (m *LiveModel) Time() float64 { return float64(m.steps) * m.opts.Dt }

func (m *LiveModel) Running() bool { return m.running }
func (m *LiveModel) Err() error    { return m.err }

func (m *LiveModel) reset() error {
	s, err := m.build()
	if err != nil {
		return err
	}
	m.scene = s
	m.steps = 0
	m.err = nil
	m.running = true
	m.tension = m.tension[:0]
	m.guideForce = m.guideForce[:0]
	m.record(s.Sample(0))
	return nil
}

func (m *LiveModel) applyReload(r LiveReload) {
	if r.Err != nil {
		m.err = r.Err
		m.running = false
		return
	}
	reload := m.opts.Reload
	m.opts = r.Options
	m.opts.Reload = reload
	if m.opts.StepsPerFrame <= 0 {
		m.opts.StepsPerFrame = 1
	}
	m.build = r.Build
	if err := m.reset(); err != nil {
		m.err = err
		m.running = false
	}
}

func (m *LiveModel) advance() {
	for i := 0; i < m.opts.StepsPerFrame; i++ {
		if m.opts.TEnd > 0 && m.Time() >= m.opts.TEnd {
			m.running = false
			break
		}
		if err := m.scene.Step(m.opts.Dt); err != nil {
			m.err = err
			m.running = false
			break
		}
		m.steps++
	}
	m.record(m.scene.Sample(m.Time()))
}

func (m *LiveModel) record(s results.SimulationSample) {
	m.sample = s
	m.tension = appendCapped(m.tension, s.MaxTension())
	m.guideForce = appendCapped(m.guideForce, s.GuideForce)
	m.canvas.Clear()
	DrawSample(m.canvas, m.opts.Layout, s)
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m *LiveModel) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.opts.Title)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(statusFailed.Render("FAILED") + "\n")
		s.WriteString(valueStyle.Render(m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3fs", m.Time()))
	row("Tip y", fmt.Sprintf("%.4f m", m.sample.Tip.Y))
	row("Max tension", fmt.Sprintf("%.4f N", m.sample.MaxTension()))
	row("Guide force", fmt.Sprintf("%.4f N", m.sample.GuideForce))
	row("Joint gap", fmt.Sprintf("%.2e m", m.sample.MaxJointGap))

	s.WriteString("\n" + labelStyle.Render("Tension") + Sparkline(m.tension, 28) + "\n")
	if m.opts.Layout.Guide && len(m.guideForce) > 1 {
		chart := asciigraph.Plot(m.guideForce, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Guide force [N]"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if m.opts.TEnd > 0 {
		s.WriteString(m.progress.ViewAs(min(m.Time()/m.opts.TEnd, 1)) + "\n")
	}
	s.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(s.String()))
}

// RunLive opens the live view on the terminal's alternate screen.
func RunLive(build SceneFactory, opts LiveOptions) error {
	m, err := NewLiveModel(build, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
