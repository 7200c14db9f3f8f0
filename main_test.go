package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mcts/config"
	"mcts/experiments/metrics"
	"mcts/game/tictactoe"
	"mcts/searcher"
	"mcts/searcher/agent"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "disabled"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// everyCell lists all moves in order, repeated so that each turn finds a free cell.
func everyCell(times int) string {
	var sb strings.Builder
	for range times {
		for row := 1; row <= 3; row++ {
			for col := 1; col <= 3; col++ {
				fmt.Fprintf(&sb, "%d %d\n", row, col)
			}
		}
	}
	return sb.String()
}

func TestBestCommand(t *testing.T) {
	t.Run("finding the winning move", func(t *testing.T) {
		t.Setenv("MCTS_SEED", "3")
		t.Setenv("MCTS_MAX_ITERATIONS", "5000")

		out, err := execute(t, "", "best", "--budget", "1m", "XX.|OO.|...")
		require.NoError(t, err)
		require.Contains(t, out, "Best move X to play: 1 3")
		require.Contains(t, out, "MOVE")
		require.Contains(t, out, "5000 iterations")
	})

	t.Run("rejecting a malformed board", func(t *testing.T) {
		_, err := execute(t, "", "best", "XX?|...|...")
		require.ErrorIs(t, err, tictactoe.ErrInvalidBoard)
	})

	t.Run("rejecting a finished game", func(t *testing.T) {
		_, err := execute(t, "", "best", "XXX|OO.|...")
		require.ErrorIs(t, err, searcher.ErrInvalidState)
	})

	t.Run("requiring a board", func(t *testing.T) {
		_, err := execute(t, "", "best")
		require.Error(t, err)
	})
}

func TestPlayCommand(t *testing.T) {
	t.Setenv("MCTS_MAX_ITERATIONS", "200")
	t.Setenv("MCTS_SEED", "11")

	t.Run("playing a full game as O", func(t *testing.T) {
		out, err := execute(t, "n\n"+everyCell(5), "play", "--budget", "1m")
		require.NoError(t, err)
		require.Contains(t, out, "You play with O")
		require.Contains(t, out, "MCTS plays")
		require.Contains(t, out, "Final score:")
		require.Contains(t, out, "-> X :")
		require.True(t,
			strings.Contains(out, "You are the winner, playing with O!") ||
				strings.Contains(out, "MCTS is the winner, playing with X!") ||
				strings.Contains(out, "It's a draw!"),
			"Should announce the outcome")
	})

	t.Run("asking again after an invalid move", func(t *testing.T) {
		out, err := execute(t, "y\nfoo\n9 9\n"+everyCell(5), "play", "--budget", "1m")
		require.NoError(t, err)
		require.Contains(t, out, "You play with X (starting piece)")
		require.GreaterOrEqual(t, strings.Count(out, "Invalid move!"), 2)
	})

	t.Run("playing against a move server", func(t *testing.T) {
		server := httptest.NewServer(agent.NewServer(agent.NewRandomAgent[int](rand.New(rand.NewSource(4))), tictactoe.DecodeState))
		defer server.Close()

		out, err := execute(t, "y\n"+everyCell(5), "play", "--opponent", server.URL)
		require.NoError(t, err)
		require.Contains(t, out, "Final score:")
	})

	t.Run("failing when input runs out", func(t *testing.T) {
		_, err := execute(t, "y\n", "play", "--budget", "1m")
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestArenaCommand(t *testing.T) {
	t.Run("running the random baseline", func(t *testing.T) {
		t.Setenv("MCTS_SEED", "5")
		dir := t.TempDir()

		out, err := execute(t, "", "arena", "random", "--games", "2", "--out", dir, "--budget", "1ms")
		require.NoError(t, err)
		require.Contains(t, out, "random_baseline: 2 games")
		require.Contains(t, out, "draws")

		runs, err := filepath.Glob(filepath.Join(dir, "random_baseline", "*", "game_records.csv"))
		require.NoError(t, err)
		require.Len(t, runs, 1)
	})

	t.Run("running self-play", func(t *testing.T) {
		t.Setenv("MCTS_SEED", "6")
		dir := t.TempDir()

		out, err := execute(t, "", "arena", "selfplay", "--games", "1", "--out", dir, "--budget", "1ms", "--temperature", "0.5")
		require.NoError(t, err)
		require.Contains(t, out, "selfplay: 1 games")

		runs, err := filepath.Glob(filepath.Join(dir, "selfplay", "*", "agent_configs.csv"))
		require.NoError(t, err)
		require.Len(t, runs, 1)
		configs, err := os.ReadFile(runs[0])
		require.NoError(t, err)
		require.Contains(t, string(configs), "training")
		require.Contains(t, string(configs), ",0.5\n")
	})

	t.Run("rejecting a negative temperature", func(t *testing.T) {
		_, err := execute(t, "", "arena", "selfplay", "--temperature", "-1", "--out", t.TempDir())
		require.ErrorContains(t, err, "temperature")
	})

	t.Run("rejecting an unknown experiment", func(t *testing.T) {
		_, err := execute(t, "", "arena", "tournament")
		require.Error(t, err)
	})
}

func TestServeRouter(t *testing.T) {
	a := &app{cfg: config.Default(), registry: prometheus.NewRegistry()}
	a.cfg.Search.MaxIterations = 2000
	a.cfg.Search.Seed = 3
	a.metrics = metrics.NewPromMetrics(a.registry)
	router := a.newRouter(time.Minute)

	t.Run("finding a move", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/move", strings.NewReader(`{"state": "XX.|OO.|..."}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var got agent.FindMoveResponse[int]
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Equal(t, 2, got.Action)
		require.Equal(t, 2000, got.Iterations)
	})

	t.Run("rejecting other methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/move", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("exposing metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `mcts_search_searches_total{agent="server"} 1`)
	})
}

func TestRootCommand(t *testing.T) {
	t.Run("rejecting an invalid log level", func(t *testing.T) {
		_, err := execute(t, "", "best", "--log-level", "loud", "XX.|OO.|...")
		require.ErrorContains(t, err, "invalid flags")
	})

	t.Run("reading a config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mcts.yaml")
		require.NoError(t, os.WriteFile(path, []byte("search:\n  max_iterations: 300\n  seed: 9\n"), 0o644))

		out, err := execute(t, "", "best", "--config", path, "--budget", "1m", "X........")
		require.NoError(t, err)
		require.Contains(t, out, "300 iterations")
	})

	t.Run("exporting traces", func(t *testing.T) {
		t.Setenv("MCTS_MAX_ITERATIONS", "10")
		cmd := newRootCmd()
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs([]string{"--log-level", "disabled", "--trace", "best", "--budget", "1m", "X........"})
		require.NoError(t, cmd.Execute())
		require.Contains(t, errOut.String(), "mcts.search")
	})
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		in   string
		cell int
		ok   bool
	}{
		{"1 1", 0, true},
		{" 2 3 ", 5, true},
		{"3 3", 8, true},
		{"0 1", 0, false},
		{"1 4", 0, false},
		{"one two", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cell, err := parseMove(tt.in)
			if !tt.ok {
				require.ErrorIs(t, err, tictactoe.ErrInvalidBoard)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.cell, cell)
		})
	}
}
