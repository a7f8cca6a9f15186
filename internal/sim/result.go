package sim

import (
	"time"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// Spec describes one run over an evenly spaced grid.
type Spec struct {
	X0      dynamo.State
	Horizon float64
	Samples int
}

// Column is one named series of a Result, one value per grid time.
type Column struct {
	Name   string
	Values []float64
}

type Result struct {
	Model      string
	Integrator string

	Times     []float64
	States    []dynamo.State
	Labels    []string
	AuxLabels []string
	Aux       [][]float64

	Metrics  map[string]float64
	Stats    dynamo.Stats
	Attempts int
	Elapsed  time.Duration
}

// Columns flattens the trajectory into time, state and auxiliary columns in
// that order.
func (r *Result) Columns() []Column {
	cols := make([]Column, 0, 1+len(r.Labels)+len(r.AuxLabels))
	cols = append(cols, Column{Name: "t", Values: append([]float64(nil), r.Times...)})

	for j, name := range r.Labels {
		vals := make([]float64, len(r.States))
		for i, x := range r.States {
			vals[i] = x[j]
		}
		cols = append(cols, Column{Name: name, Values: vals})
	}
	for j, name := range r.AuxLabels {
		vals := make([]float64, len(r.Aux))
		for i, a := range r.Aux {
			vals[i] = a[j]
		}
		cols = append(cols, Column{Name: name, Values: vals})
	}
	return cols
}

// Column returns the named series, or false if the result has none.
func (r *Result) Column(name string) ([]float64, bool) {
	for _, c := range r.Columns() {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
