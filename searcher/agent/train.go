package agent

import (
	"math"
	"time"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

type trainingAgent[A any] struct {
	mcts        *searcher.MCTS[A]
	budget      time.Duration
	temperature float64
	rng         *rand.Rand
}

// NewTrainingAgent returns a new agent for self-play. It samples root actions
// in proportion to visits^(1/temperature); a temperature of 0 or less plays
// the most visited action.
func NewTrainingAgent[A any](mcts *searcher.MCTS[A], budget time.Duration, temperature float64, rng *rand.Rand) Agent[A] {
	return trainingAgent[A]{mcts: mcts, budget: budget, temperature: temperature, rng: rng}
}

func (a trainingAgent[A]) FindMove(state game.State[A]) (A, metrics.SearchMetric, error) {
	result, err := a.mcts.Search(state, a.budget)
	if err != nil {
		var zero A
		return zero, metrics.SearchMetric{}, err
	}
	if a.temperature <= 0 {
		return result.Action, result.Metric, nil
	}

	visits := make([]float64, len(result.Children))
	for i, child := range result.Children {
		visits[i] = float64(child.Visits)
	}
	policy := adjustTemperature(visits, a.temperature)
	return result.Children[sample(policy, a.rng.Float64())].Action, result.Metric, nil
}

// adjustTemperature turns visit counts into move probabilities. Visits are
// scaled by their maximum first so that small temperatures cannot overflow.
func adjustTemperature(visits []float64, temperature float64) []float64 {
	adjusted := make([]float64, len(visits))
	most := floats.Max(visits)
	if most <= 0 {
		floats.AddConst(1.0/float64(len(adjusted)), adjusted)
		return adjusted
	}

	exponent := 1.0 / temperature
	for i, visit := range visits {
		adjusted[i] = math.Pow(visit/most, exponent)
	}
	// Normalize
	floats.Scale(1/floats.Sum(adjusted), adjusted)
	return adjusted
}

// sample returns the index whose cumulative probability first exceeds u.
func sample(policy []float64, u float64) int {
	cumulative := 0.0
	for i, prob := range policy {
		cumulative += prob
		if u < cumulative {
			return i
		}
	}
	return len(policy) - 1 // Fallback in case of rounding errors
}
