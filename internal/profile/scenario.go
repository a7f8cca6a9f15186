package profile

// Set bundles the exogenous inputs of the reactor.
type Set struct {
	LevelSetpoint Step
	TempSetpoint  Step
	BaseInflow    Step
	InletTemp     Step
	InletConc     Step
}

const (
	baseInflow = 0.1  // m^3/min
	inletTemp  = 25.0 // °C
	inletConc  = 1.0  // mol/L
)

// Scenario returns the setpoint-tracking scenario: level and temperature
// setpoint changes plus inflow and inlet-temperature disturbances, in
// minutes.
func Scenario() Set {
	return Set{
		LevelSetpoint: Must(1.0, At(50, 1.5)),
		TempSetpoint:  Must(50.0, At(20, 60.0), At(80, 55.0)),
		BaseInflow:    Must(baseInflow, At(10, baseInflow*1.2), At(60, baseInflow)),
		InletTemp:     Must(inletTemp, At(40, inletTemp+10), At(70, inletTemp)),
		InletConc:     Constant(inletConc),
	}
}

// Steady returns a Set with fixed setpoints (1.0 m, 60 °C) and no
// disturbances.
func Steady() Set {
	return Set{
		LevelSetpoint: Constant(1.0),
		TempSetpoint:  Constant(60.0),
		BaseInflow:    Constant(baseInflow),
		InletTemp:     Constant(inletTemp),
		InletConc:     Constant(inletConc),
	}
}
