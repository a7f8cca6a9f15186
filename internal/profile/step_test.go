package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

func TestStepValue(t *testing.T) {
	s := Must(50.0, At(20, 60.0), At(80, 55.0))

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 50},
		{19.999, 50},
		{20, 60},
		{50, 60},
		{80, 55},
		{1e6, 55},
		{-5, 50},
	}

	for _, tt := range tests {
		if got := s.Value(tt.t); got != tt.want {
			t.Errorf("Value(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestStepOrderIndependent(t *testing.T) {
	s := Must(1.0, At(50, 1.5))
	times := []float64{60, 10, 60, 49.9, 50, 0, 50}
	first := make([]float64, len(times))
	for i, tm := range times {
		first[i] = s.Value(tm)
	}
	for i := len(times) - 1; i >= 0; i-- {
		if got := s.Value(times[i]); got != first[i] {
			t.Errorf("Value(%v) changed between calls: %v vs %v", times[i], got, first[i])
		}
	}
}

func TestNewSortsBreakpoints(t *testing.T) {
	s, err := New(0, At(30, 3), At(10, 1), At(20, 2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	bps := s.Breakpoints()
	for i := 1; i < len(bps); i++ {
		if bps[i-1].At >= bps[i].At {
			t.Fatalf("breakpoints not sorted: %v", bps)
		}
	}
	if s.Value(15) != 1 || s.Value(25) != 2 {
		t.Errorf("unexpected values after sort: %v %v", s.Value(15), s.Value(25))
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		initial float64
		points  []Breakpoint
	}{
		{"nan initial", math.NaN(), nil},
		{"duplicate", 0, []Breakpoint{At(5, 1), At(5, 2)}},
		{"inf time", 0, []Breakpoint{At(math.Inf(1), 1)}},
		{"nan value", 0, []Breakpoint{At(1, math.NaN())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.initial, tt.points...)
			if !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	spec, err := Parse("0.1; 10:0.12, 60:0.1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if spec.Initial != 0.1 || len(spec.Steps) != 2 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.Steps[0] != At(10, 0.12) {
		t.Errorf("unexpected first step: %+v", spec.Steps[0])
	}

	s, err := spec.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.Value(30) != 0.12 {
		t.Errorf("expected 0.12 at t=30, got %v", s.Value(30))
	}

	again, err := Parse(spec.String())
	if err != nil {
		t.Fatalf("round trip parse failed: %v", err)
	}
	if again.String() != spec.String() {
		t.Errorf("round trip mismatch: %q vs %q", again.String(), spec.String())
	}
}

func TestParseConstant(t *testing.T) {
	spec, err := Parse("25")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if spec.Initial != 25 || len(spec.Steps) != 0 {
		t.Errorf("unexpected spec: %+v", spec)
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"", "abc", "1; 10", "1; x:2", "1; 2:y"} {
		if _, err := Parse(text); err == nil {
			t.Errorf("Parse(%q) expected error", text)
		}
	}
}

func TestScenario(t *testing.T) {
	sc := Scenario()

	if sc.LevelSetpoint.Value(49) != 1.0 || sc.LevelSetpoint.Value(50) != 1.5 {
		t.Error("level setpoint breakpoints wrong")
	}
	if sc.TempSetpoint.Value(10) != 50 || sc.TempSetpoint.Value(20) != 60 || sc.TempSetpoint.Value(100) != 55 {
		t.Error("temperature setpoint breakpoints wrong")
	}
	if math.Abs(sc.BaseInflow.Value(30)-0.12) > 1e-12 || sc.BaseInflow.Value(70) != 0.1 {
		t.Error("inflow disturbance wrong")
	}
	if sc.InletTemp.Value(50) != 35 || sc.InletTemp.Value(75) != 25 {
		t.Error("inlet temperature disturbance wrong")
	}
	if sc.InletConc.Value(1000) != 1.0 {
		t.Error("inlet concentration should be constant")
	}
}
