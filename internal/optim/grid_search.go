// Package optim tunes configuration parameters against a run metric.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/cstrsim/internal/experiment"
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search evaluates every combination and returns the one with the smallest
// metric, along with all trials in evaluation order. Points whose experiment
// fails are kept as trials with their error.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, metricName, &trials); err != nil {
		return nil, 0, trials, err
	}

	for _, tr := range trials {
		if tr.Err == nil && tr.Value < best {
			best = tr.Value
			bestParams = tr.Params
		}
	}
	if bestParams == nil {
		return nil, 0, trials, fmt.Errorf("no grid point produced metric %s", metricName)
	}

	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		trial := Trial{Params: current, Value: math.NaN()}
		*trials = append(*trials, trial)
		last := &(*trials)[len(*trials)-1]

		exp, err := buildExperiment(current)
		if err != nil {
			last.Err = err
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil {
			last.Err = err
			return nil
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			last.Err = fmt.Errorf("metric %s not reported", metricName)
			return nil
		}
		last.Value = val
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, metricName, trials); err != nil {
			return err
		}
	}
	return nil
}
