package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cstrsim/internal/sim"
)

const (
	canvasWidth  = 30
	canvasHeight = 12
	frameRate    = 30
	maxSpeed     = 64
)

type TickMsg time.Time

// Range is the admissible interval of a series, used to draw gauges.
type Range struct {
	Lo, Hi float64
}

// Replay steps through a finished run.
type Replay struct {
	res      *sim.Result
	cols     []sim.Column
	limits   map[string]Range
	canvas   *Canvas
	theme    Theme
	styles   Styles
	maxLevel float64

	playHead int
	running  bool
	speed    int
	selected int
	showHelp bool
}

// NewReplay prepares a paused replay at the first sample. limits maps series
// names to the range their gauge is drawn against.
func NewReplay(res *sim.Result, limits map[string]Range) Replay {
	r := Replay{
		res:    res,
		cols:   res.Columns(),
		limits: limits,
		canvas: NewCanvas(canvasWidth, canvasHeight),
		theme:  Themes[0],
		speed:  1,
	}
	r.styles = NewStyles(r.theme)
	if len(r.cols) > 1 {
		r.selected = 1
	}

	for _, name := range []string{"h", "level_setpoint"} {
		if ys, ok := res.Column(name); ok {
			for _, v := range ys {
				if v > r.maxLevel {
					r.maxLevel = v
				}
			}
		}
	}
	r.maxLevel *= 1.2
	return r
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (r Replay) Init() tea.Cmd {
	return tick()
}

func (r Replay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case " ":
			if r.atEnd() {
				r.playHead = 0
			}
			r.running = !r.running
		case "r":
			r.playHead = 0
		case "[":
			r.running = false
			r.scrub(-1)
		case "]":
			r.running = false
			r.scrub(1)
		case "tab":
			if len(r.cols) > 1 {
				r.selected = 1 + r.selected%(len(r.cols)-1)
			}
		case "+", "=":
			r.speed = min(r.speed*2, maxSpeed)
		case "-", "_":
			r.speed = max(r.speed/2, 1)
		case "t":
			r.theme = r.theme.Next()
			r.styles = NewStyles(r.theme)
		case "?":
			r.showHelp = !r.showHelp
		}
	case TickMsg:
		if r.running {
			r.scrub(r.speed)
			if r.atEnd() {
				r.running = false
			}
		}
		return r, tick()
	}
	return r, nil
}

func (r *Replay) scrub(n int) {
	r.playHead = max(0, min(r.playHead+n, len(r.res.Times)-1))
}

func (r Replay) atEnd() bool {
	return r.playHead >= len(r.res.Times)-1
}

// PlayHead is the index of the sample on screen.
func (r Replay) PlayHead() int { return r.playHead }

func (r Replay) Running() bool { return r.running }

// Selected names the charted series.
func (r Replay) Selected() string {
	if r.selected >= len(r.cols) {
		return ""
	}
	return r.cols[r.selected].Name
}

func (r Replay) value(name string) (float64, bool) {
	for _, c := range r.cols {
		if c.Name == name {
			return c.Values[r.playHead], true
		}
	}
	return 0, false
}

func (r Replay) View() string {
	if len(r.res.Times) == 0 {
		return "no samples\n"
	}
	st := r.styles
	i := r.playHead

	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(r.res.Model)) + "\n")

	status := "PAUSED"
	if r.running {
		status = fmt.Sprintf("PLAYING x%d", r.speed)
	} else if r.atEnd() {
		status = "END"
	}
	s.WriteString(fmt.Sprintf("%s  sample %d/%d\n\n", status, i+1, len(r.res.Times)))

	if r.selected > 0 && i > 0 {
		chart := asciigraph.Plot(r.cols[r.selected].Values[:i+1],
			asciigraph.Height(6), asciigraph.Width(36), asciigraph.Caption(r.Selected()))
		s.WriteString(st.Graph.Render(chart) + "\n\n")
	}

	s.WriteString(st.Label.Render("t") + st.Value.Render(fmt.Sprintf("%.3f", r.res.Times[i])) + "\n")
	for k, name := range r.res.Labels {
		s.WriteString(st.Label.Render(name) + st.Value.Render(fmt.Sprintf("%.5g", r.res.States[i][k])) + "\n")
	}

	if len(r.res.AuxLabels) > 0 {
		s.WriteString("\n" + st.Active.Render("INPUTS") + "\n")
		for _, name := range r.res.AuxLabels {
			v, _ := r.value(name)
			line := st.Label.Render(name) + st.Value.Render(fmt.Sprintf("%-10.4g", v))
			if lim, ok := r.limits[name]; ok {
				line += " " + st.GaugeBar(v, lim.Lo, lim.Hi, 10)
			}
			s.WriteString(line + "\n")
		}
	}
	s.WriteString(st.Help.Render(Separator(24) + "\nSP:Play [ ]:Step R:Rewind Q:Quit\nTab:Series +/-:Speed T:Theme ?:Help"))

	panel := st.Panel.Render(s.String())
	view := panel
	if r.maxLevel > 0 {
		level, _ := r.value("h")
		sp, _ := r.value("level_setpoint")
		DrawTank(r.canvas, level, sp, r.maxLevel)
		view = lipgloss.JoinHorizontal(lipgloss.Top, st.Canvas.Render(r.canvas.String()), panel)
	}

	if r.showHelp {
		return `
  Space  play/pause       [ ]  step back/forward
  R      rewind           Tab  next charted series
  + -    faster/slower    T    next theme
  Q      quit             ?    toggle this help
` + "\n" + view
	}
	return view
}
