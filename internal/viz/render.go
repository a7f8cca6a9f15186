package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cstrsim/internal/sim"
)

// PlotColumns charts the named series of res against sample index.
func PlotColumns(res *sim.Result, names []string, width, height int) (string, error) {
	if len(res.Times) < 2 {
		return "", fmt.Errorf("%s: need at least two samples to plot", res.Model)
	}

	series := make([][]float64, 0, len(names))
	for _, name := range names {
		ys, ok := res.Column(name)
		if !ok {
			return "", fmt.Errorf("no series %q in %s result", name, res.Model)
		}
		series = append(series, ys)
	}

	caption := fmt.Sprintf("%s over t = %.4g..%.4g", strings.Join(names, ", "), res.Times[0], res.Times[len(res.Times)-1])
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.Caption(caption),
	), nil
}

// SummaryTable lists the final state, metrics and solver work of a run.
func SummaryTable(res *sim.Result, st Styles) string {
	var s strings.Builder
	s.WriteString(st.Header.Render(fmt.Sprintf("%s (%s)", strings.ToUpper(res.Model), res.Integrator)) + "\n")

	if final := res.Final(); final != nil {
		for i, name := range res.Labels {
			s.WriteString(st.Label.Render(name) + st.Value.Render(fmt.Sprintf("%.6g", final[i])) + "\n")
		}
	}

	if len(res.Metrics) > 0 {
		s.WriteString("\n" + st.Active.Render("METRICS") + "\n")
		keys := make([]string, 0, len(res.Metrics))
		for k := range res.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.WriteString(st.Label.Render(k) + st.Value.Render(fmt.Sprintf("%.6g", res.Metrics[k])) + "\n")
		}
	}

	s.WriteString("\n" + st.Active.Render("SOLVER") + "\n")
	s.WriteString(st.Label.Render("evaluations") + st.Value.Render(fmt.Sprint(res.Stats.Evaluations)) + "\n")
	s.WriteString(st.Label.Render("steps") + st.Value.Render(fmt.Sprintf("%d accepted, %d rejected", res.Stats.Accepted, res.Stats.Rejected)) + "\n")
	s.WriteString(st.Label.Render("attempts") + st.Value.Render(fmt.Sprint(res.Attempts)) + "\n")
	s.WriteString(st.Label.Render("elapsed") + st.Value.Render(res.Elapsed.String()) + "\n")
	return s.String()
}

// DrawTank draws an open tank filled to level, with a dashed mark at
// setpoint when it is positive. Both are scaled against maxLevel.
func DrawTank(c *Canvas, level, setpoint, maxLevel float64) {
	c.Clear()
	w, h := c.PixelWidth(), c.PixelHeight()
	left, right := w/6, w-w/6
	top, bottom := 2, h-3

	c.DrawLine(left, top, left, bottom)
	c.DrawLine(right, top, right, bottom)
	c.DrawLine(left, bottom, right, bottom)
	// outlet pipe
	c.DrawLine(right, bottom-1, right+w/8, bottom-1)

	if maxLevel <= 0 {
		return
	}
	toY := func(v float64) int {
		frac := math.Max(0, math.Min(1, v/maxLevel))
		return bottom - int(math.Round(frac*float64(bottom-top)))
	}

	if level > 0 {
		c.FillRect(left+2, toY(level), right-2, bottom-1)
	}
	if setpoint > 0 {
		c.DashedLine(left-3, right+3, toY(setpoint))
	}
}
