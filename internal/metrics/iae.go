package metrics

import (
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// IAE is the integral of |setpoint - measurement| over time, using the
// trapezoidal rule between observed samples. The measurement is a state
// component and the setpoint an auxiliary series.
type IAE struct {
	name     string
	state    int
	setpoint int

	sum     float64
	prevErr float64
	prevT   float64
	started bool
}

func NewIAE(name string, stateIdx, setpointAuxIdx int) *IAE {
	return &IAE{name: name, state: stateIdx, setpoint: setpointAuxIdx}
}

func (m *IAE) Name() string { return m.name }

func (m *IAE) Observe(x dynamo.State, aux []float64, t float64) {
	if m.state < 0 || m.setpoint < 0 || m.state >= len(x) || m.setpoint >= len(aux) {
		return
	}
	e := math.Abs(aux[m.setpoint] - x[m.state])
	if m.started {
		m.sum += 0.5 * (e + m.prevErr) * (t - m.prevT)
	}
	m.prevErr, m.prevT, m.started = e, t, true
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() {
	m.sum, m.prevErr, m.prevT, m.started = 0, 0, 0, false
}

// IndexOf returns the position of name in labels, or -1.
func IndexOf(labels []string, name string) int {
	for i, l := range labels {
		if l == name {
			return i
		}
	}
	return -1
}
