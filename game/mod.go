package game

import "errors"

// Player identifies the actor whose turn it is. Any comparable label works,
// a game picks its own (e.g. "X" and "O").
type Player string

// NoPlayer is reported by terminal states, where nobody is to move.
const NoPlayer Player = ""

// ErrContractViolation is wrapped by State implementations that are used
// outside their contract, e.g. scoring a state that is not terminal.
var ErrContractViolation = errors.New("state contract violation")

// State should be immutable - operations on State always return a new copy.
//
// A is the action type of the decision process. The searcher never inspects
// actions, it only hands them back to Play.
type State[A any] interface {
	// Player returns the actor to move, NoPlayer once the state is terminal.
	Player() Player
	// ValidActions returns the legal actions in a stable order. Empty iff terminal.
	ValidActions() []A
	IsTerminal() bool
	// FinalResult scores a terminal state from the perspective of player.
	// Higher is better. Calling it on a non-terminal state is a contract violation.
	FinalResult(player Player) float64
	// Play returns the successor state reached by applying action.
	Play(action A) State[A]
}
