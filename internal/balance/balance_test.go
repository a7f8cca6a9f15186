package balance

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

func TestSolveReferenceNetwork(t *testing.T) {
	g := NewWithT(t)

	sol, err := Solve(DefaultInputs())
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(sol.Stream(3).Mass).To(BeNumerically("~", 150, 1e-12))
	g.Expect(sol.Stream(3).FracA).To(BeNumerically("~", 0.53333, 1e-4))
	g.Expect(sol.Stream(4).Mass).To(BeNumerically("~", 76.4706, 1e-3))
	g.Expect(sol.Stream(5).Mass).To(BeNumerically("~", 73.5294, 1e-3))

	res := sol.Residuals()
	g.Expect(res.MixerTotal).To(BeNumerically("~", 0, 1e-9))
	g.Expect(res.MixerComponent).To(BeNumerically("~", 0, 1e-9))
	g.Expect(res.SepTotal).To(BeNumerically("~", 0, 1e-9))
	g.Expect(res.SepComponent).To(BeNumerically("~", 0, 1e-9))
}

func TestSolveBalancesHold(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
	}{
		{"equal feeds", Inputs{Feed1: Stream{Name: "1", Mass: 10, FracA: 0.5}, Feed2: Stream{Name: "2", Mass: 10, FracA: 0.5}, FracA4: 0.9, FracA5: 0.2}},
		{"one empty feed", Inputs{Feed1: Stream{Name: "1", Mass: 0, FracA: 0.5}, Feed2: Stream{Name: "2", Mass: 42, FracA: 0.3}, FracA4: 0.6, FracA5: 0.1}},
		{"swapped outlets", Inputs{Feed1: Stream{Name: "1", Mass: 100, FracA: 0.7}, Feed2: Stream{Name: "2", Mass: 50, FracA: 0.2}, FracA4: 0.1, FracA5: 0.95}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := Solve(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r := sol.Residuals().Max(); r > 1e-9 {
				t.Errorf("max residual %e", r)
			}
		})
	}
}

func TestSolveSingular(t *testing.T) {
	in := DefaultInputs()
	in.FracA5 = in.FracA4
	_, err := Solve(in)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

func TestSolveRejectsInvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"negative mass", func(in *Inputs) { in.Feed1.Mass = -1 }},
		{"zero feed", func(in *Inputs) { in.Feed1.Mass, in.Feed2.Mass = 0, 0 }},
		{"fraction above one", func(in *Inputs) { in.Feed2.FracA = 1.2 }},
		{"negative outlet fraction", func(in *Inputs) { in.FracA5 = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DefaultInputs()
			tt.mutate(&in)
			if _, err := Solve(in); !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}
