package agent

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher"

	"github.com/rs/zerolog/log"
)

// StateDecoder reads the "state" field of a find move request.
type StateDecoder[A any] func(raw json.RawMessage) (game.State[A], error)

type FindMoveResponse[A any] struct {
	Action     A     `json:"action"`
	Iterations int   `json:"iterations"`
	Nodes      int   `json:"nodes"`
	DurationMs int64 `json:"duration_ms"`
}

// Server answers find move requests over HTTP. Requests are served one at a
// time since a searcher owns a single random source.
type Server[A any] struct {
	mu     sync.Mutex
	agent  Agent[A]
	decode StateDecoder[A]
}

func NewServer[A any](agent Agent[A], decode StateDecoder[A]) *Server[A] {
	return &Server[A]{agent: agent, decode: decode}
}

// ServeHTTP handles POST {"state": ...} and replies with the chosen action.
func (s *Server[A]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		State json.RawMessage `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	state, err := s.decode(payload.State)
	if err != nil {
		http.Error(w, "bad state: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	action, metric, err := s.agent.FindMove(state)
	s.mu.Unlock()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, searcher.ErrInvalidState) {
			status = http.StatusUnprocessableEntity
		}
		log.Warn().Err(err).Msg("failed to find move")
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newFindMoveResponse(action, metric)); err != nil {
		log.Warn().Err(err).Msg("failed to encode move")
	}
}

func newFindMoveResponse[A any](action A, metric metrics.SearchMetric) FindMoveResponse[A] {
	return FindMoveResponse[A]{
		Action:     action,
		Iterations: metric.Iterations,
		Nodes:      metric.Nodes,
		DurationMs: metric.Duration.Milliseconds(),
	}
}
