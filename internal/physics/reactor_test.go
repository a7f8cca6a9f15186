package physics_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/physics"
	"github.com/san-kum/cstrsim/internal/profile"
)

var _ = Describe("Reactor", func() {
	var (
		params  physics.ReactorParams
		reactor *physics.Reactor
	)

	BeforeEach(func() {
		params = physics.DefaultReactorParams()
		reactor = physics.NewReactor(params)
	})

	It("validates the default parameters", func() {
		Expect(reactor.Validate()).To(Succeed())
	})

	Describe("freeze policy", func() {
		DescribeTable("empty or negative level",
			func(h float64) {
				x := dynamo.State{h, 40, 0.7}
				in := reactor.Inputs(x, 5)
				Expect(in.Outflow).To(Equal(0.0))

				dx := reactor.Derive(x, 5)
				Expect(dx[physics.IdxConc]).To(Equal(0.0))
				Expect(dx[physics.IdxTemp]).To(Equal(0.0))
				Expect(dx[physics.IdxLevel]).To(BeNumerically("~", in.Inflow/params.Area, 1e-15))
			},
			Entry("h = 0", 0.0),
			Entry("h slightly negative", -1e-9),
			Entry("h very negative", -10.0),
		)

		It("does not produce NaN or Inf for an initially empty tank", func() {
			dx := reactor.Derive(dynamo.State{0, 25, 0}, 0)
			Expect(dx.IsValid()).To(BeTrue())
			Expect(dx[physics.IdxLevel]).To(BeNumerically(">", 0))
		})
	})

	It("is deterministic for identical inputs", func() {
		x := dynamo.State{0.8, 47.3, 0.42}
		first := reactor.Derive(x, 33.3)
		reactor.Derive(dynamo.State{1.2, 60, 0.1}, 90)
		reactor.Derive(x, 10)
		second := reactor.Derive(x, 33.3)
		for i := range first {
			Expect(math.Float64bits(second[i])).To(Equal(math.Float64bits(first[i])))
		}
	})

	It("does not modify the input state", func() {
		x := dynamo.State{0.8, 47.3, 0.42}
		before := x.Clone()
		reactor.Derive(x, 12)
		Expect(x).To(Equal(before))
	})

	Describe("controllers at zero error", func() {
		It("reduces to base inflow and zero heater power", func() {
			for _, t := range []float64{0, 15, 30, 55, 75, 120} {
				x := dynamo.State{params.LevelSetpoint.Value(t), params.TempSetpoint.Value(t), 0.5}
				in := reactor.Inputs(x, t)
				Expect(in.Inflow).To(Equal(in.BaseInflow))
				Expect(in.HeaterPower).To(Equal(0.0))
			}
		})

		It("clamps the base inflow when it exceeds the pump limit", func() {
			p := params
			p.BaseInflow = profile.Constant(2 * p.MaxInflow)
			r := physics.NewReactor(p)
			in := r.Inputs(dynamo.State{p.LevelSetpoint.Value(0), p.TempSetpoint.Value(0), 0}, 0)
			Expect(in.Inflow).To(Equal(p.MaxInflow))
		})
	})

	It("keeps controller outputs inside their limits", func() {
		for _, h := range []float64{-5, 0, 0.3, 1, 100} {
			for _, temp := range []float64{-100, 0, 55, 1000} {
				in := reactor.Inputs(dynamo.State{h, temp, 0.5}, 42)
				Expect(in.Inflow).To(BeNumerically(">=", 0))
				Expect(in.Inflow).To(BeNumerically("<=", params.MaxInflow))
				Expect(in.HeaterPower).To(BeNumerically(">=", params.MinPower))
				Expect(in.HeaterPower).To(BeNumerically("<=", params.MaxPower))
			}
		}
	})

	It("matches the balance equations at a hand-computed point", func() {
		p := params.WithProfiles(profile.Steady())
		r := physics.NewReactor(p)
		x := dynamo.State{1.0, 50.0, 0.5}

		qin := 0.1 // zero level error
		qheat := p.TempGain * (60.0 - 50.0)
		qout := p.DischargeCoeff * p.OrificeArea * math.Sqrt(2*p.Gravity*1.0)
		v := p.Area * 1.0
		k := p.PreExp * math.Exp(-p.EaOverR/(50.0+273.15))
		rate := k * 0.5
		thermal := v * p.Density * p.HeatCapacity

		dx := r.Derive(x, 0)
		Expect(dx[physics.IdxLevel]).To(BeNumerically("~", (qin-qout)/p.Area, 1e-12))
		Expect(dx[physics.IdxConc]).To(BeNumerically("~", (qin*1.0-qout*0.5-v*rate)/v, 1e-12))
		Expect(dx[physics.IdxTemp]).To(BeNumerically("~",
			qin*(25.0-50.0)/v+(-p.ReactionEnthalpy*rate*v)/thermal+qheat/thermal, 1e-12))
	})

	It("floors the volume for a vanishing positive level", func() {
		p := params.WithProfiles(profile.Steady())
		r := physics.NewReactor(p)
		dx := r.Derive(dynamo.State{1e-12, 25, 0}, 0)
		Expect(dx.IsValid()).To(BeTrue())
		// V = 1e-6 floor, Qin = 0.5 (saturated), CAin = 1
		Expect(dx[physics.IdxConc]).To(BeNumerically("~", 0.5/1e-6, 1))
	})

	Describe("kinetics temperature", func() {
		It("uses the reactor temperature by default", func() {
			p := params.WithProfiles(profile.Steady())
			hot := physics.NewReactor(p).Derive(dynamo.State{1, 80, 0.5}, 0)
			cold := physics.NewReactor(p).Derive(dynamo.State{1, 30, 0.5}, 0)
			// faster consumption at higher temperature
			Expect(hot[physics.IdxConc]).To(BeNumerically("<", cold[physics.IdxConc]))
		})

		It("uses the inlet temperature when configured", func() {
			p := params.WithProfiles(profile.Steady())
			p.Kinetics = physics.KineticsInlet
			hot := physics.NewReactor(p).Derive(dynamo.State{1, 80, 0.5}, 0)
			cold := physics.NewReactor(p).Derive(dynamo.State{1, 30, 0.5}, 0)
			Expect(hot[physics.IdxConc]).To(Equal(cold[physics.IdxConc]))

			k := physics.RateConstant(p.PreExp, p.EaOverR, 25.0)
			qout := physics.OutletFlow(p.DischargeCoeff, p.OrificeArea, p.Gravity, 1)
			Expect(hot[physics.IdxConc]).To(BeNumerically("~", (0.1-qout*0.5-5*k*0.5)/5, 1e-12))
		})

		It("parses kinetics names", func() {
			k, err := physics.ParseKinetics("INLET")
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(physics.KineticsInlet))
			Expect(k.String()).To(Equal("inlet"))

			k, err = physics.ParseKinetics("")
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(physics.KineticsReactor))

			_, err = physics.ParseKinetics("outlet")
			Expect(errors.Is(err, dynamo.ErrParameterBounds)).To(BeTrue())
		})
	})

	It("reconstructs auxiliary series in label order", func() {
		x := dynamo.State{0.9, 52, 0.3}
		aux := reactor.Aux(x, 25)
		in := reactor.Inputs(x, 25)
		Expect(aux).To(HaveLen(len(reactor.AuxLabels())))
		Expect(aux).To(Equal([]float64{
			in.LevelSetpoint, in.TempSetpoint, in.Inflow, in.HeaterPower,
			in.BaseInflow, in.InletTemp, in.InletConc, in.Outflow,
		}))
	})

	DescribeTable("rejects invalid parameters",
		func(mutate func(*physics.ReactorParams)) {
			p := physics.DefaultReactorParams()
			mutate(&p)
			Expect(errors.Is(physics.NewReactor(p).Validate(), dynamo.ErrParameterBounds)).To(BeTrue())
		},
		Entry("negative area", func(p *physics.ReactorParams) { p.Area = -1 }),
		Entry("zero area", func(p *physics.ReactorParams) { p.Area = 0 }),
		Entry("negative orifice", func(p *physics.ReactorParams) { p.OrificeArea = -0.01 }),
		Entry("NaN density", func(p *physics.ReactorParams) { p.Density = math.NaN() }),
		Entry("inverted power limits", func(p *physics.ReactorParams) { p.MinPower, p.MaxPower = 10, -10 }),
		Entry("negative pump limit", func(p *physics.ReactorParams) { p.MaxInflow = -1 }),
		Entry("missing setpoint", func(p *physics.ReactorParams) { p.LevelSetpoint = nil }),
		Entry("zero volume floor", func(p *physics.ReactorParams) { p.VolumeFloor = 0 }),
		Entry("unknown kinetics", func(p *physics.ReactorParams) { p.Kinetics = physics.Kinetics(7) }),
	)

	It("reports the first non-finite parameter every time", func() {
		p := physics.DefaultReactorParams()
		p.EaOverR = math.NaN()
		p.ReactionEnthalpy = math.Inf(1)
		for i := 0; i < 20; i++ {
			err := physics.NewReactor(p).Validate()
			Expect(err).To(MatchError(ContainSubstring("ea_over_r=NaN")))
			Expect(err.Error()).NotTo(ContainSubstring("reaction_enthalpy"))
		}
	})
})

var _ = Describe("OpenLoopReactor", func() {
	It("drives the balances from prescribed inputs", func() {
		p := physics.DefaultReactorParams()
		ol := physics.NewOpenLoopReactor(p, profile.Constant(0.1), profile.Constant(0))
		Expect(ol.Validate()).To(Succeed())

		x := dynamo.State{1.0, 50.0, 0.5}
		in := ol.Inputs(x, 0)
		Expect(in.Inflow).To(Equal(0.1))
		Expect(in.HeaterPower).To(Equal(0.0))

		dx := ol.Derive(x, 0)
		Expect(dx[physics.IdxLevel]).To(BeNumerically("~", (0.1-in.Outflow)/p.Area, 1e-12))
		Expect(dx.IsValid()).To(BeTrue())
	})

	It("does not saturate prescribed inputs", func() {
		p := physics.DefaultReactorParams()
		ol := physics.NewOpenLoopReactor(p, profile.Constant(5), profile.Constant(1e6))
		in := ol.Inputs(dynamo.State{1, 50, 0}, 0)
		Expect(in.Inflow).To(Equal(5.0))
		Expect(in.HeaterPower).To(Equal(1e6))
	})

	It("freezes temperature and concentration when empty", func() {
		ol := physics.NewOpenLoopReactor(physics.DefaultReactorParams(), profile.Constant(0.1), profile.Constant(5000))
		dx := ol.Derive(dynamo.State{0, 25, 0.3}, 0)
		Expect(dx[physics.IdxTemp]).To(Equal(0.0))
		Expect(dx[physics.IdxConc]).To(Equal(0.0))
	})

	It("requires its input profiles", func() {
		ol := physics.NewOpenLoopReactor(physics.DefaultReactorParams(), nil, profile.Constant(0))
		Expect(errors.Is(ol.Validate(), dynamo.ErrParameterBounds)).To(BeTrue())
	})
})

var _ = Describe("Tank", func() {
	It("has zero outflow for a non-positive head", func() {
		tk := physics.NewTank(profile.Constant(0.1))
		for _, h := range []float64{0, -0.5} {
			aux := tk.Aux(dynamo.State{h}, 0)
			Expect(aux[1]).To(Equal(0.0))
			Expect(tk.Derive(dynamo.State{h}, 0)[0]).To(BeNumerically("~", 0.1/tk.Area, 1e-15))
		}
	})

	It("balances inflow at the steady-state level", func() {
		tk := physics.NewTank(profile.Constant(0.1))
		hss := tk.SteadyStateLevel(0.1)
		Expect(hss).To(BeNumerically("~", 3.01588, 1e-4))
		Expect(tk.Derive(dynamo.State{hss}, 0)[0]).To(BeNumerically("~", 0, 1e-12))
	})

	It("follows a step change in inflow", func() {
		tk := physics.NewTank(profile.Must(0.1, profile.At(50, 0.05)))
		before := tk.Derive(dynamo.State{1}, 49)
		after := tk.Derive(dynamo.State{1}, 50)
		Expect(after[0]).To(BeNumerically("~", before[0]-0.05/tk.Area, 1e-12))
	})

	It("rejects a non-positive area", func() {
		tk := physics.NewTank(profile.Constant(0.1))
		tk.Area = 0
		Expect(errors.Is(tk.Validate(), dynamo.ErrParameterBounds)).To(BeTrue())
	})
})
