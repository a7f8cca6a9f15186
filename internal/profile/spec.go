package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// Spec is the config-file form of a Step.
type Spec struct {
	Initial float64      `yaml:"initial" json:"initial"`
	Steps   []Breakpoint `yaml:"steps,omitempty" json:"steps,omitempty"`
}

func (s Spec) Build() (Step, error) {
	return New(s.Initial, s.Steps...)
}

// Parse reads the compact "initial; at:value, at:value" form used by INI
// files and CLI flags, e.g. "0.1; 10:0.12, 60:0.1".
func Parse(text string) (Spec, error) {
	head, tail, _ := strings.Cut(text, ";")
	initial, err := strconv.ParseFloat(strings.TrimSpace(head), 64)
	if err != nil {
		return Spec{}, fmt.Errorf("profile %q: initial value: %w", text, dynamo.ErrParameterBounds)
	}
	spec := Spec{Initial: initial}

	tail = strings.TrimSpace(tail)
	if tail == "" {
		return spec, nil
	}
	for _, field := range strings.Split(tail, ",") {
		at, val, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok {
			return Spec{}, fmt.Errorf("profile %q: breakpoint %q missing ':': %w", text, field, dynamo.ErrParameterBounds)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(at), 64)
		if err != nil {
			return Spec{}, fmt.Errorf("profile %q: breakpoint time %q: %w", text, at, dynamo.ErrParameterBounds)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return Spec{}, fmt.Errorf("profile %q: breakpoint value %q: %w", text, val, dynamo.ErrParameterBounds)
		}
		spec.Steps = append(spec.Steps, Breakpoint{At: t, Value: v})
	}
	return spec, nil
}

func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(s.Initial, 'g', -1, 64))
	for i, p := range s.Steps {
		if i == 0 {
			b.WriteString("; ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(p.At, 'g', -1, 64))
		b.WriteString(":")
		b.WriteString(strconv.FormatFloat(p.Value, 'g', -1, 64))
	}
	return b.String()
}
