package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/cstrsim/internal/sim"
)

type ExportData struct {
	Model      string               `json:"model"`
	Integrator string               `json:"integrator"`
	Samples    int                  `json:"samples"`
	Columns    map[string][]float64 `json:"columns"`
	Order      []string             `json:"order"`
	Metrics    map[string]float64   `json:"metrics"`
}

// ExportJSON writes the run as named columns plus their order.
func ExportJSON(w io.Writer, result *sim.Result) error {
	cols := result.Columns()
	data := ExportData{
		Model:      result.Model,
		Integrator: result.Integrator,
		Samples:    len(result.Times),
		Columns:    make(map[string][]float64, len(cols)),
		Order:      make([]string, len(cols)),
		Metrics:    result.Metrics,
	}
	for i, c := range cols {
		data.Columns[c.Name] = c.Values
		data.Order[i] = c.Name
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
