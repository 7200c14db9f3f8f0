package agent

import (
	"fmt"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher"

	"golang.org/x/exp/rand"
)

type randomAgent[A any] struct {
	rng *rand.Rand
}

// NewRandomAgent returns a baseline agent that plays uniformly at random.
func NewRandomAgent[A any](rng *rand.Rand) Agent[A] {
	return randomAgent[A]{rng: rng}
}

func (a randomAgent[A]) FindMove(state game.State[A]) (A, metrics.SearchMetric, error) {
	var zero A
	if state.IsTerminal() {
		return zero, metrics.SearchMetric{}, fmt.Errorf("%w: terminal state, no action to choose", searcher.ErrInvalidState)
	}
	actions := state.ValidActions()
	if len(actions) == 0 {
		return zero, metrics.SearchMetric{}, fmt.Errorf("%w: non-terminal state has no valid actions", game.ErrContractViolation)
	}
	return actions[a.rng.Intn(len(actions))], metrics.SearchMetric{}, nil
}
