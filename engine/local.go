package engine

import (
	"fmt"
	"time"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher/agent"

	"github.com/rs/zerolog/log"
)

type Update[A any] struct {
	Step   int
	Player game.Player
	Action A
	State  game.State[A]
}

type Local[A any] struct {
	State    game.State[A]
	Agents   map[game.Player]agent.Agent[A]
	MaxMoves int
	// OnMove is called after every move, e.g. to print the board
	OnMove func(Update[A])
}

var _ Engine = (*Local[int])(nil)

// LocalEngine returns an engine that plays initial to the end in process,
// asking the agent of the player to move for every action.
func LocalEngine[A any](initial game.State[A], agents map[game.Player]agent.Agent[A]) *Local[A] {
	if len(agents) == 0 {
		panic("need at least one agent")
	}
	return &Local[A]{
		State:    initial,
		Agents:   agents,
		MaxMoves: MaxMoves,
	}
}

// Run executes the entire game loop until the game is over.
func (e *Local[A]) Run() (game.Player, metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: e.State.Player(),
		StartTime:      time.Now(),
	}
	log.Info().Msgf("player %s is starting", gameMetric.StartingPlayer)

	// Loop until the game is over
	moveMetrics := []metrics.MoveMetric{}
	step := 1
	for !e.State.IsTerminal() && step <= e.MaxMoves {
		player := e.State.Player()
		a, ok := e.Agents[player]
		if !ok {
			return game.NoPlayer, gameMetric, moveMetrics, fmt.Errorf("%w %q", ErrNoAgent, player)
		}

		action, searchMetric, err := a.FindMove(e.State)
		if err != nil {
			return game.NoPlayer, gameMetric, moveMetrics, fmt.Errorf("player %s failed to move at step %d: %w", player, step, err)
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       player,
			Action:       fmt.Sprint(action),
			SearchMetric: searchMetric,
		})
		log.Debug().Msgf("player %s chose move %v", player, action)

		e.State = e.State.Play(action)
		if e.OnMove != nil {
			e.OnMove(Update[A]{Step: step, Player: player, Action: action, State: e.State})
		}
		step++
	}

	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = len(moveMetrics)

	if !e.State.IsTerminal() {
		log.Warn().Msgf("stopped after %d moves (no winner yet)", e.MaxMoves)
		return game.NoPlayer, gameMetric, moveMetrics, nil
	}

	gameMetric.Winner = Winner(e.State, sortedPlayers(e.Agents))
	return gameMetric.Winner, gameMetric, moveMetrics, nil
}
