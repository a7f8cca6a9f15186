package experiment

import (
	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/integrators"
	"github.com/san-kum/cstrsim/internal/metrics"
	"github.com/san-kum/cstrsim/internal/physics"
)

// Registry resolves integrators and the default KPIs for a model. Names
// and aliases come from integrators.New; the solver section is applied on
// top of the integrator defaults.
type Registry struct{}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) GetIntegrator(name string, solver config.SolverConfig) (dynamo.Integrator, error) {
	if name == "" {
		name = config.DefaultIntegrator
	}
	integ, err := integrators.New(name)
	if err != nil {
		return nil, err
	}

	switch it := integ.(type) {
	case *integrators.Euler:
		if solver.MaxStep > 0 {
			it.MaxStep = solver.MaxStep
		}
	case *integrators.RK4:
		if solver.MaxStep > 0 {
			it.MaxStep = solver.MaxStep
		}
	case *integrators.RK45:
		if solver.Rtol > 0 {
			it.Rtol = solver.Rtol
		}
		if solver.Atol > 0 {
			it.Atol = solver.Atol
		}
		if solver.MaxStep > 0 {
			it.MaxStep = solver.MaxStep
		}
	}
	return integ, nil
}

func (r *Registry) ListIntegrators() []string {
	return integrators.Names()
}

func (r *Registry) ListModels() []string {
	return config.Models()
}

// DefaultMetrics returns the process KPIs that apply to sys.
func (r *Registry) DefaultMetrics(sys dynamo.System) []dynamo.Metric {
	aux, ok := sys.(dynamo.Auxiliary)
	if !ok {
		return nil
	}
	labels := sys.Labels()
	auxLabels := aux.AuxLabels()
	st := func(name string) int { return metrics.IndexOf(labels, name) }
	ax := func(name string) int { return metrics.IndexOf(auxLabels, name) }

	var out []dynamo.Metric
	switch m := sys.(type) {
	case *physics.Reactor:
		out = append(out,
			metrics.NewIAE("iae_level", st("h"), ax("level_setpoint")),
			metrics.NewIAE("iae_temp", st("T"), ax("temp_setpoint")),
			metrics.NewControlEffort("effort_inflow", ax("inflow")),
			metrics.NewControlEffort("effort_heater", ax("heater_power")),
			metrics.NewSaturation("saturation_inflow", ax("inflow"), 0, m.P.MaxInflow),
			metrics.NewSaturation("saturation_heater", ax("heater_power"), m.P.MinPower, m.P.MaxPower),
		)
	case *physics.OpenLoopReactor:
		out = append(out,
			metrics.NewControlEffort("effort_inflow", ax("inflow")),
			metrics.NewControlEffort("effort_heater", ax("heater_power")),
		)
	case *physics.Tank:
		out = append(out, metrics.NewControlEffort("mean_outflow", ax("outflow")))
	}
	return out
}
