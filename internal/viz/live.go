package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/astrosim/internal/metrics"
	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/stepper"
)

const (
	canvasWidth     = 80
	canvasHeight    = 24
	historyCapacity = 600
	minSpeed        = 1.0 / 1024
	maxSpeed        = 1024.0

	// relative distance to EndTime treated as arrived
	endSlack = 1e-9
)

type TickMsg time.Time

// Options configure the live viewer.
type Options struct {
	Title        string
	Scale        float64 // half width of the visible window
	FPS          int
	TimePerFrame float64 // simulated time per frame at speed 1
	EndTime      float64 // 0 runs until quit
	Theme        string
}

// Model drives a stepper from a tea.Tick loop and draws the particles.
type Model struct {
	s    *stepper.Stepper
	opts Options

	canvas *Canvas
	proj   Projection
	theme  Theme
	styles styles

	running  bool
	done     bool
	speed    float64
	showHelp bool
	err      error

	drift      *metrics.EnergyDrift
	dtHistory  []float64
	errHistory []float64
	energy     []float64
}

func NewModel(s *stepper.Stepper, opts Options) Model {
	if opts.Scale <= 0 {
		opts.Scale = 2
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.TimePerFrame <= 0 {
		opts.TimePerFrame = 0.01
	}
	canvas := NewCanvas(canvasWidth, canvasHeight)
	theme := GetTheme(opts.Theme)
	m := Model{
		s:          s,
		opts:       opts,
		canvas:     canvas,
		proj:       NewProjection(canvas, opts.Scale),
		theme:      theme,
		styles:     newStyles(theme),
		running:    true,
		speed:      1,
		drift:      metrics.NewEnergyDrift(),
		dtHistory:  make([]float64, 0, historyCapacity),
		errHistory: make([]float64, 0, historyCapacity),
		energy:     make([]float64, 0, historyCapacity),
	}
	m.drift.Observe(s)
	m.draw()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles keys and advances the simulation on every tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = max(m.speed/2, minSpeed)
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.done {
			m.err = m.advance(m.opts.TimePerFrame * m.speed)
			if m.err != nil {
				m.running = false
			}
			m.record()
		}
		m.draw()
		return m, m.tick()
	}
	return m, nil
}

// Err is the error that stopped the simulation, if any.
func (m Model) Err() error { return m.err }

// Stepper returns the stepper being shown.
func (m Model) Stepper() *stepper.Stepper { return m.s }

// advance moves the simulation forward by frame. A frame shorter than the
// current time step takes a single adjusted step instead, truncated so as
// not to pass EndTime.
func (m *Model) advance(frame float64) error {
	end := m.opts.EndTime
	if end > 0 {
		left := end - m.s.Time()
		if left <= endSlack*end {
			m.done = true
			return nil
		}
		frame = min(frame, left)
	}
	if frame >= m.s.Dt() {
		return m.s.Advance(frame)
	}

	if m.s.StepCount() > 0 {
		m.s.AdjustDt()
	}
	dt := m.s.Dt()
	if end > 0 {
		dt = min(dt, end-m.s.Time())
	}
	m.s.StepWithDt(dt)
	return nil
}

func (m *Model) record() {
	m.drift.Observe(m.s)
	m.dtHistory = appendCapped(m.dtHistory, m.s.Dt())
	m.errHistory = appendCapped(m.errHistory, m.s.RelativeError())
	m.energy = appendCapped(m.energy, m.drift.Current())
}

func appendCapped(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

func (m *Model) draw() {
	m.canvas.Clear()
	ps := m.s.Particles()
	cutoff := m.s.MassCutoff()
	for i := cutoff; i < len(ps); i++ {
		if x, y, ok := m.proj.Dot(ps[i].Pos.X, ps[i].Pos.Y); ok {
			m.canvas.Set(x, y)
		}
	}
	for i := 0; i < cutoff; i++ {
		if x, y, ok := m.proj.Dot(ps[i].Pos.X, ps[i].Pos.Y); ok {
			m.canvas.Disk(x, y, bodyRadius(ps[i], ps[0].Mass))
		}
	}
}

// bodyRadius is 2 dots for the heaviest body and 1 for the rest.
func bodyRadius(p particle.Particle, heaviest float64) int {
	if p.Mass >= heaviest {
		return 2
	}
	return 1
}

func (m Model) View() string {
	st := m.styles
	var b strings.Builder

	title := m.opts.Title
	if title == "" {
		title = "astrosim"
	}
	b.WriteString(st.header.Render(strings.ToUpper(title)) + "\n")

	switch {
	case m.err != nil:
		b.WriteString(st.bad.Render("STOPPED: "+m.err.Error()) + "\n\n")
	case m.done:
		b.WriteString(st.paused.Render("DONE") + "\n\n")
	case m.running:
		b.WriteString(st.running.Render(fmt.Sprintf("RUNNING ×%g", m.speed)) + "\n\n")
	default:
		b.WriteString(st.paused.Render("PAUSED") + "\n\n")
	}

	row := func(label, value string) {
		b.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.4f", m.s.Time()))
	if m.opts.EndTime > 0 {
		row("Progress", ProgressBar(m.s.Time()/m.opts.EndTime, 20))
	}
	row("Steps", fmt.Sprintf("%d", m.s.StepCount()))
	row("dt", fmt.Sprintf("%.3e", m.s.Dt()))
	relErr := m.s.RelativeError()
	b.WriteString(st.label.Render("Rel error") +
		st.errorStyle(relErr, m.s.TargetError()).Render(fmt.Sprintf("%.3e", relErr)) + "\n")
	row("Energy", fmt.Sprintf("%.6f", m.drift.Current()))
	row("Drift", fmt.Sprintf("%.3e", m.drift.Value()))
	row("Particles", fmt.Sprintf("%d (%d massive)", len(m.s.Particles()), m.s.MassCutoff()))
	row("dt hist", Sparkline(m.dtHistory, 30))

	if len(m.energy) > 1 {
		b.WriteString(st.graph.Render(PlotSeries(m.energy, "Energy", 30, 4)) + "\n")
	}

	b.WriteString(st.help.Render("SP:Pause +/-:Speed T:Theme ?:Help Q:Quit"))

	canvasView := st.canvas.Render(m.canvas.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(b.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space   pause / resume
  + / -   double / halve simulated time per frame
  T       cycle colour themes
  ?       toggle this help
  Q       quit
`

// Run shows the viewer until the user quits and returns the final model
// state.
func Run(s *stepper.Stepper, opts Options) (Model, error) {
	final, err := tea.NewProgram(NewModel(s, opts), tea.WithAltScreen()).Run()
	if err != nil {
		return Model{}, err
	}
	return final.(Model), nil
}
