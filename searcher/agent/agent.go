package agent

import (
	"mcts/experiments/metrics"
	"mcts/game"
)

type Agent[A any] interface {
	// FindMove returns a move and performance metrics (if collected) from the search process
	FindMove(state game.State[A]) (A, metrics.SearchMetric, error)
}
