package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles is the set of lipgloss styles derived from a Theme.
type Styles struct {
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Active  lipgloss.Style
	Graph   lipgloss.Style
	Help    lipgloss.Style
	Panel   lipgloss.Style
	Canvas  lipgloss.Style
	Good    lipgloss.Style
	Warning lipgloss.Style
	Bad     lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Header: lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		Label:  lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		Value:  lipgloss.NewStyle().Foreground(t.Text),
		Active: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Graph:  lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0),
		Help:   lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(52),
		Canvas:  lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 2),
		Good:    lipgloss.NewStyle().Foreground(t.Good),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Bad:     lipgloss.NewStyle().Foreground(t.Bad).Bold(true),
	}
}

// GaugeBar renders v within [lo, hi] as a filled bar. A value on either
// limit is drawn in the Bad style to flag saturation.
func (s Styles) GaugeBar(v, lo, hi float64, width int) string {
	ratio := 0.0
	if hi > lo {
		ratio = (v - lo) / (hi - lo)
	}
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * float64(width)))
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"

	switch {
	case v <= lo || v >= hi:
		return s.Bad.Render(bar)
	case ratio > 0.8 || ratio < 0.2:
		return s.Warning.Render(bar)
	}
	return s.Good.Render(bar)
}

// Sparkline renders a mini chart of values, sampled to fit width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int((values[i*step] - lo) / rng * float64(len(chars)-1))
		b.WriteRune(chars[idx])
	}
	return b.String()
}

func Separator(width int) string {
	return strings.Repeat("─", width)
}
