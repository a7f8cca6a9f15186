package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

func TestIAETrapezoid(t *testing.T) {
	m := NewIAE("iae", 0, 0)

	// error falls linearly from 2 to 0 over 4 time units
	for i := 0; i <= 4; i++ {
		tm := float64(i)
		m.Observe(dynamo.State{tm / 2}, []float64{2}, tm)
	}
	if math.Abs(m.Value()-4) > 1e-12 {
		t.Errorf("IAE = %v, want 4", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero IAE after reset")
	}
	m.Observe(dynamo.State{1}, []float64{3}, 10)
	if m.Value() != 0 {
		t.Error("a single sample must not contribute area")
	}
}

func TestIAEUsesAbsoluteError(t *testing.T) {
	m := NewIAE("iae", 0, 0)
	m.Observe(dynamo.State{3}, []float64{1}, 0)
	m.Observe(dynamo.State{3}, []float64{1}, 1)
	if math.Abs(m.Value()-2) > 1e-12 {
		t.Errorf("IAE = %v, want 2", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort("effort", 1)
	m.Observe(nil, []float64{0, -2}, 0)
	m.Observe(nil, []float64{0, 4}, 1)
	if m.Value() != 3 {
		t.Errorf("effort = %v, want 3", m.Value())
	}
	m.Observe(nil, []float64{0}, 2)
	if m.Value() != 3 {
		t.Error("short aux vector should be ignored")
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero effort after reset")
	}
}

func TestSaturation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"none", []float64{0.1, 0.2, 0.3}, 0},
		{"all", []float64{0, 0.5, 0.5, 0}, 1},
		{"half", []float64{0.5, 0.25, 0, 0.3}, 0.5},
		{"beyond limits", []float64{-1, 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSaturation("sat", 0, 0, 0.5)
			for i, v := range tt.values {
				m.Observe(nil, []float64{v}, float64(i))
			}
			if math.Abs(m.Value()-tt.want) > 1e-12 {
				t.Errorf("saturation = %v, want %v", m.Value(), tt.want)
			}
		})
	}
}

func TestIndexOf(t *testing.T) {
	labels := []string{"h", "T", "CA"}
	if IndexOf(labels, "T") != 1 || IndexOf(labels, "x") != -1 {
		t.Error("IndexOf returned wrong position")
	}
}
