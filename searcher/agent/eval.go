package agent

import (
	"time"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher"
)

type evaluationAgent[A any] struct {
	mcts   *searcher.MCTS[A]
	budget time.Duration
}

// NewEvaluationAgent returns a new agent for actual game play during evaluation.
// It always plays the most visited root action.
func NewEvaluationAgent[A any](mcts *searcher.MCTS[A], budget time.Duration) Agent[A] {
	return evaluationAgent[A]{mcts: mcts, budget: budget}
}

func (a evaluationAgent[A]) FindMove(state game.State[A]) (A, metrics.SearchMetric, error) {
	result, err := a.mcts.Search(state, a.budget)
	if err != nil {
		var zero A
		return zero, metrics.SearchMetric{}, err
	}
	return result.Action, result.Metric, nil
}
