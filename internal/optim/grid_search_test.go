package optim

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/sim"
)

func gainExperiment(params map[string]float64) (*experiment.Experiment, error) {
	cfg := config.GetPreset("reactor", "setpoint_tracking")
	cfg.Duration = 40
	cfg.Samples = 81
	cfg.Control.TempGain = params["temp_gain"]
	cfg.Control.LevelGain = params["level_gain"]

	logger, _ := test.NewNullLogger()
	exp := experiment.New(cfg)
	if err := exp.Setup(experiment.NewRegistry(), sim.WithLogger(logrus.NewEntry(logger))); err != nil {
		return nil, err
	}
	return exp, nil
}

func TestGridSearchPicksSmallestMetric(t *testing.T) {
	g := NewWithT(t)
	gs := NewGridSearch(
		[]string{"level_gain", "temp_gain"},
		[][]float64{{0.5}, {10, 100, 1000}},
	)

	best, value, trials, err := gs.Search(context.Background(), gainExperiment, "iae_temp")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(trials).To(HaveLen(3))

	g.Expect(best["level_gain"]).To(Equal(0.5))
	g.Expect(best).To(HaveKey("temp_gain"))
	found := false
	for _, tr := range trials {
		g.Expect(tr.Err).NotTo(HaveOccurred())
		g.Expect(tr.Value).To(BeNumerically(">=", 0))
		g.Expect(value).To(BeNumerically("<=", tr.Value))
		if tr.Params["temp_gain"] == best["temp_gain"] {
			g.Expect(tr.Value).To(Equal(value))
			found = true
		}
	}
	g.Expect(found).To(BeTrue())
}

func TestGridSearchRecordsFailures(t *testing.T) {
	g := NewWithT(t)
	gs := NewGridSearch([]string{"k"}, [][]float64{{1, 2, 3}})

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		if params["k"] == 2 {
			return nil, errors.New("bad gain")
		}
		return gainExperiment(map[string]float64{"temp_gain": 100 * params["k"], "level_gain": 0.5})
	}

	best, _, trials, err := gs.Search(context.Background(), build, "iae_temp")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(trials).To(HaveLen(3))
	g.Expect(trials[1].Err).To(MatchError("bad gain"))
	g.Expect(best["k"]).To(BeElementOf(1.0, 3.0))

	_, _, _, err = gs.Search(context.Background(), build, "no_such_metric")
	g.Expect(err).To(MatchError(ContainSubstring("no grid point")))
}

func TestGridSearchErrors(t *testing.T) {
	g := NewWithT(t)

	_, _, _, err := NewGridSearch([]string{"a", "b"}, [][]float64{{1}}).Search(context.Background(), gainExperiment, "iae_temp")
	g.Expect(err).To(HaveOccurred())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, trials, err := NewGridSearch([]string{"temp_gain"}, [][]float64{{10, 20}}).Search(ctx, gainExperiment, "iae_temp")
	g.Expect(err).To(MatchError(context.Canceled))
	g.Expect(trials).To(BeEmpty())
}
