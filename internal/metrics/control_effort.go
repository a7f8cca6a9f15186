package metrics

import (
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// ControlEffort is the mean absolute value of one auxiliary series,
// typically a manipulated variable.
type ControlEffort struct {
	name    string
	aux     int
	sum     float64
	samples int
}

func NewControlEffort(name string, auxIdx int) *ControlEffort {
	return &ControlEffort{
		name: name,
		aux:  auxIdx,
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x dynamo.State, aux []float64, t float64) {
	if c.aux < 0 || c.aux >= len(aux) {
		return
	}
	c.sum += math.Abs(aux[c.aux])
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
