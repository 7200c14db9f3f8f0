package searcher

import (
	"fmt"

	"mcts/game"

	"golang.org/x/exp/rand"
)

// RolloutPolicy picks the next action of a playout among the valid actions of state.
type RolloutPolicy[A any] func(state game.State[A], actions []A) A

// RandomRollout picks uniformly at random using r.
func RandomRollout[A any](r *rand.Rand) RolloutPolicy[A] {
	return func(_ game.State[A], actions []A) A {
		return actions[r.Intn(len(actions))]
	}
}

// simulate plays from state until the game ends. The tree is left untouched.
func simulate[A any](state game.State[A], policy RolloutPolicy[A]) (game.State[A], error) {
	for !state.IsTerminal() {
		actions := state.ValidActions()
		if len(actions) == 0 {
			return nil, fmt.Errorf("%w: non-terminal state has no valid actions", game.ErrContractViolation)
		}
		state = state.Play(policy(state, actions))
	}
	return state, nil
}
