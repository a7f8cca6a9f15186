// Package export renders simulation results as PNG charts.
package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/cstrsim/internal/sim"
)

const dpi = 96

// Panel is one chart: several named series of a result against time.
type Panel struct {
	File   string
	Title  string
	YLabel string
	Series []string
}

// setpoints pairs a state column with the auxiliary column it tracks.
var setpoints = map[string]string{
	"h": "level_setpoint",
	"T": "temp_setpoint",
}

var flows = []string{"inflow", "base_inflow", "outflow"}

// DefaultPanels lays out one panel per state (with its setpoint when the
// model reports one), a shared flow panel, and one panel per remaining
// auxiliary series.
func DefaultPanels(labels, auxLabels []string) []Panel {
	aux := make(map[string]bool, len(auxLabels))
	for _, a := range auxLabels {
		aux[a] = true
	}
	used := make(map[string]bool)

	var panels []Panel
	for _, l := range labels {
		p := Panel{File: "state_" + l + ".png", Title: l + "(t)", YLabel: l, Series: []string{l}}
		if sp, ok := setpoints[l]; ok && aux[sp] {
			p.Series = append(p.Series, sp)
			used[sp] = true
		}
		panels = append(panels, p)
	}

	flowPanel := Panel{File: "flows.png", Title: "Flows", YLabel: "m^3/min"}
	for _, f := range flows {
		if aux[f] {
			flowPanel.Series = append(flowPanel.Series, f)
			used[f] = true
		}
	}
	if len(flowPanel.Series) > 0 {
		panels = append(panels, flowPanel)
	}

	for _, a := range auxLabels {
		if used[a] {
			continue
		}
		panels = append(panels, Panel{File: "aux_" + a + ".png", Title: a + "(t)", YLabel: a, Series: []string{a}})
	}
	return panels
}

// NewPanelPlot builds the chart for one panel.
func NewPanelPlot(res *sim.Result, panel Panel) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.X.Label.Text = "t"
	p.Y.Label.Text = panel.YLabel
	p.Add(plotter.NewGrid())

	for i, name := range panel.Series {
		ys, ok := res.Column(name)
		if !ok {
			return nil, fmt.Errorf("no series %q in %s result", name, res.Model)
		}
		pts := make(plotter.XYs, len(res.Times))
		for k := range res.Times {
			pts[k].X = res.Times[k]
			pts[k].Y = ys[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		if i > 0 {
			line.LineStyle.Dashes = plotutil.Dashes(i)
		}
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// SavePanels writes one PNG per panel into dir and returns the paths written.
func SavePanels(res *sim.Result, dir string, panels []Panel) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}

	paths := make([]string, 0, len(panels))
	for _, panel := range panels {
		p, err := NewPanelPlot(res, panel)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, panel.File)
		if err := SavePNG(p, 8.0, 4.5, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SavePNG draws p onto a widthIn x heightIn inch raster and writes it.
func SavePNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
