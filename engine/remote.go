package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher/agent"

	"github.com/rs/zerolog/log"
)

// RemoteAgent asks a move server for every move. States are sent as their
// JSON encoding, so the server must decode the same representation.
type RemoteAgent[A comparable] struct {
	URL    string
	Client *http.Client
}

var _ agent.Agent[int] = (*RemoteAgent[int])(nil)

// NewRemoteAgent returns an agent posting find move requests to url,
// e.g. "http://localhost:8080/move".
func NewRemoteAgent[A comparable](url string, timeout time.Duration) *RemoteAgent[A] {
	return &RemoteAgent[A]{
		URL:    strings.TrimSuffix(url, "/"),
		Client: &http.Client{Timeout: timeout},
	}
}

// RemoteEngine plays initial with every player backed by a move server.
func RemoteEngine[A comparable](initial game.State[A], urls map[game.Player]string, timeout time.Duration) *Local[A] {
	agents := make(map[game.Player]agent.Agent[A], len(urls))
	for player, url := range urls {
		agents[player] = NewRemoteAgent[A](url, timeout)
	}
	return LocalEngine(initial, agents)
}

// FindMove encodes the state, posts it and checks the answer is a legal action.
func (a *RemoteAgent[A]) FindMove(state game.State[A]) (A, metrics.SearchMetric, error) {
	var zero A

	body, err := json.Marshal(struct {
		State game.State[A] `json:"state"`
	}{State: state})
	if err != nil {
		return zero, metrics.SearchMetric{}, fmt.Errorf("failed to encode state: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return zero, metrics.SearchMetric{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return zero, metrics.SearchMetric{}, fmt.Errorf("failed to request move from %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return zero, metrics.SearchMetric{}, fmt.Errorf("agent at %s returned status %d: %s", a.URL, resp.StatusCode, bytes.TrimSpace(out))
	}

	var move agent.FindMoveResponse[A]
	if err := json.NewDecoder(resp.Body).Decode(&move); err != nil {
		return zero, metrics.SearchMetric{}, fmt.Errorf("failed to decode move: %w", err)
	}
	if !slices.Contains(state.ValidActions(), move.Action) {
		return zero, metrics.SearchMetric{}, fmt.Errorf("%w: agent at %s returned illegal action %v", game.ErrContractViolation, a.URL, move.Action)
	}
	log.Debug().Msgf("agent at %s chose move %v after %d iterations", a.URL, move.Action, move.Iterations)

	return move.Action, metrics.SearchMetric{
		Duration:   time.Duration(move.DurationMs) * time.Millisecond,
		Iterations: move.Iterations,
		Nodes:      move.Nodes,
	}, nil
}
