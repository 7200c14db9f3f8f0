package searcher

import (
	"errors"
	"math"
	"time"
)

// Hyperparameters for MCTS

const DefaultExplorationConstant = math.Sqrt2

var (
	// ErrInvalidState is returned when a search starts from a terminal state.
	ErrInvalidState = errors.New("invalid state")
	// ErrExhaustedOptions is raised when a node without untried actions is expanded.
	ErrExhaustedOptions = errors.New("no untried actions left")
)

// Clock reads the current time. Searches measure their budget against it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
