package metrics

import "github.com/san-kum/cstrsim/internal/dynamo"

// Saturation is the fraction of samples at which an auxiliary series sits
// on one of its limits.
type Saturation struct {
	name      string
	aux       int
	lo, hi    float64
	saturated int
	samples   int
}

func NewSaturation(name string, auxIdx int, lo, hi float64) *Saturation {
	return &Saturation{
		name: name,
		aux:  auxIdx,
		lo:   lo,
		hi:   hi,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(x dynamo.State, aux []float64, t float64) {
	if s.aux < 0 || s.aux >= len(aux) {
		return
	}
	s.samples++
	if v := aux[s.aux]; v <= s.lo || v >= s.hi {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
