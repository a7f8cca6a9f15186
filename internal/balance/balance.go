// Package balance solves the steady-state mass balance of a mixer feeding
// a two-outlet separator.
//
// Streams 1 and 2 enter the mixer, stream 3 leaves it and feeds the
// separator, which splits it into streams 4 and 5 of known composition.
package balance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// ErrSingular is returned when the separator outlets have the same
// composition, leaving the split undetermined.
var ErrSingular = errors.New("balance: separator system is singular")

// Stream is a mass flow with the mass fraction of component A.
type Stream struct {
	Name  string  `json:"name"`
	Mass  float64 `json:"mass"`
	FracA float64 `json:"frac_a"`
}

type Inputs struct {
	Feed1 Stream
	Feed2 Stream
	// Outlet compositions of the separator.
	FracA4 float64
	FracA5 float64
}

// DefaultInputs is the reference network: 100 kg/h at 0.7 mixed with
// 50 kg/h at 0.2, separated into 0.95 and 0.1 product streams.
func DefaultInputs() Inputs {
	return Inputs{
		Feed1:  Stream{Name: "1", Mass: 100, FracA: 0.7},
		Feed2:  Stream{Name: "2", Mass: 50, FracA: 0.2},
		FracA4: 0.95,
		FracA5: 0.1,
	}
}

func (in Inputs) Validate() error {
	for _, s := range []Stream{in.Feed1, in.Feed2} {
		if !(s.Mass >= 0) || math.IsInf(s.Mass, 0) {
			return fmt.Errorf("stream %s mass=%v must be non-negative: %w", s.Name, s.Mass, dynamo.ErrParameterBounds)
		}
	}
	if in.Feed1.Mass+in.Feed2.Mass == 0 {
		return fmt.Errorf("total feed is zero: %w", dynamo.ErrParameterBounds)
	}
	for name, x := range map[string]float64{
		"xA1": in.Feed1.FracA, "xA2": in.Feed2.FracA, "xA4": in.FracA4, "xA5": in.FracA5,
	} {
		if !(x >= 0 && x <= 1) {
			return fmt.Errorf("%s=%v must be in [0, 1]: %w", name, x, dynamo.ErrParameterBounds)
		}
	}
	return nil
}

// Solution holds all five streams in network order.
type Solution struct {
	Streams [5]Stream
}

func (s Solution) Stream(i int) Stream { return s.Streams[i-1] }

// Solve closes the mixer balance directly and the separator balance as the
// 2x2 linear system
//
//	m4 + m5         = m3
//	xA4*m4 + xA5*m5 = m3*xA3
func Solve(in Inputs) (Solution, error) {
	if err := in.Validate(); err != nil {
		return Solution{}, err
	}

	m3 := in.Feed1.Mass + in.Feed2.Mass
	xA3 := (in.Feed1.Mass*in.Feed1.FracA + in.Feed2.Mass*in.Feed2.FracA) / m3

	if in.FracA4 == in.FracA5 {
		return Solution{}, fmt.Errorf("xA4 = xA5 = %v: %w", in.FracA4, ErrSingular)
	}

	a := mat.NewDense(2, 2, []float64{
		1, 1,
		in.FracA4, in.FracA5,
	})
	b := mat.NewVecDense(2, []float64{m3, m3 * xA3})

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return Solution{}, fmt.Errorf("condition number %.3g: %w", float64(cond), ErrSingular)
		}
		return Solution{}, err
	}

	return Solution{Streams: [5]Stream{
		{Name: "1", Mass: in.Feed1.Mass, FracA: in.Feed1.FracA},
		{Name: "2", Mass: in.Feed2.Mass, FracA: in.Feed2.FracA},
		{Name: "3", Mass: m3, FracA: xA3},
		{Name: "4", Mass: x.AtVec(0), FracA: in.FracA4},
		{Name: "5", Mass: x.AtVec(1), FracA: in.FracA5},
	}}, nil
}

// Residuals are the total and component imbalances of the mixer and the
// separator. All four are zero for an exact solution.
type Residuals struct {
	MixerTotal     float64
	MixerComponent float64
	SepTotal       float64
	SepComponent   float64
}

func (s Solution) Residuals() Residuals {
	s1, s2, s3, s4, s5 := s.Streams[0], s.Streams[1], s.Streams[2], s.Streams[3], s.Streams[4]
	return Residuals{
		MixerTotal:     s1.Mass + s2.Mass - s3.Mass,
		MixerComponent: s1.Mass*s1.FracA + s2.Mass*s2.FracA - s3.Mass*s3.FracA,
		SepTotal:       s3.Mass - s4.Mass - s5.Mass,
		SepComponent:   s3.Mass*s3.FracA - s4.Mass*s4.FracA - s5.Mass*s5.FracA,
	}
}

// Max returns the largest absolute residual.
func (r Residuals) Max() float64 {
	return math.Max(
		math.Max(math.Abs(r.MixerTotal), math.Abs(r.MixerComponent)),
		math.Max(math.Abs(r.SepTotal), math.Abs(r.SepComponent)),
	)
}
