package engine

import (
	"errors"
	"maps"
	"slices"

	"mcts/experiments/metrics"
	"mcts/game"
)

const MaxMoves = 10000

var ErrNoAgent = errors.New("no agent for player")

type Engine interface {
	// Run plays a game till it is over or a max number of moves is reached
	Run() (winner game.Player, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}

// Scores returns the final result of every player on a terminal state.
func Scores[A any](state game.State[A], players []game.Player) map[game.Player]float64 {
	scores := make(map[game.Player]float64, len(players))
	for _, player := range players {
		scores[player] = state.FinalResult(player)
	}
	return scores
}

// Winner returns the player with the strictly highest final result, NoPlayer
// on a tie or when the game is not over.
func Winner[A any](state game.State[A], players []game.Player) game.Player {
	if !state.IsTerminal() || len(players) == 0 {
		return game.NoPlayer
	}

	scores := Scores(state, players)
	winner := game.NoPlayer
	best := 0.0
	tie := false
	for i, player := range players {
		switch score := scores[player]; {
		case i == 0 || score > best:
			winner, best, tie = player, score, false
		case score == best:
			tie = true
		}
	}
	if tie {
		return game.NoPlayer
	}
	return winner
}

func sortedPlayers[V any](agents map[game.Player]V) []game.Player {
	return slices.Sorted(maps.Keys(agents))
}
