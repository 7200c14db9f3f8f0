package searcher

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/game/tictactoe"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/exp/rand"
)

// fakeClock moves forward by step every time it is read.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Millisecond}
}

// countingCollector counts how often searches start and complete.
type countingCollector struct {
	metrics.Collector
	started, completed int
}

func (c *countingCollector) Start(budget time.Duration, explorationConstant float64) {
	c.started++
	c.Collector.Start(budget, explorationConstant)
}

func (c *countingCollector) Complete() metrics.SearchMetric {
	c.completed++
	return c.Collector.Complete()
}

func parseBoard(t *testing.T, s string) tictactoe.Board {
	t.Helper()
	b, err := tictactoe.Parse(s)
	require.NoError(t, err)
	return b
}

// runIterations drives the search loop by hand and returns how often each
// node was the anchor of an iteration.
func runIterations(t *testing.T, root *node[int], iterations int, policy RolloutPolicy[int]) map[*node[int]]int {
	t.Helper()
	anchors := map[*node[int]]int{}
	for i := 0; i < iterations; i++ {
		leaf, err := selectThenExpand(root, DefaultExplorationConstant)
		require.NoError(t, err)
		terminal, err := simulate(leaf.state, policy)
		require.NoError(t, err)
		backup(leaf, terminal)
		anchors[leaf]++
	}
	return anchors
}

func walk(n *node[int], visit func(*node[int])) {
	visit(n)
	for _, child := range n.children {
		walk(child, visit)
	}
}

func TestSearchInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	root := newNode[int](nil, 0, strictState{tictactoe.NewBoard()})
	anchors := runIterations(t, root, 500, RandomRollout[int](rng))

	t.Run("root visits equal iterations", func(t *testing.T) {
		require.Equal(t, 500, root.visits)
	})

	t.Run("visits are conserved", func(t *testing.T) {
		walk(root, func(n *node[int]) {
			sum := 0
			for _, child := range n.children {
				sum += child.visits
			}
			require.Equal(t, n.visits, sum+anchors[n], "Visits should split between children and anchored iterations")
		})
	})

	t.Run("expansion is monotonic", func(t *testing.T) {
		walk(root, func(n *node[int]) {
			if n.terminal {
				require.Empty(t, n.children, "Terminal node should never expand")
				return
			}
			require.Equal(t, len(n.state.ValidActions()), len(n.children)+len(n.untried),
				"Every valid action should be either tried or untried")
			seen := map[int]bool{}
			for _, child := range n.children {
				require.False(t, seen[child.action], "Action should be expanded once")
				seen[child.action] = true
				require.NotContains(t, n.untried, child.action)
				require.Same(t, n, child.parent)
			}
		})
	})

	t.Run("rewards are attributed to the mover", func(t *testing.T) {
		// Replay a few iterations on a fresh tree and track the expected sums
		rng := rand.New(rand.NewSource(11))
		root := newNode[int](nil, 0, tictactoe.NewBoard())
		expected := map[*node[int]]float64{}
		policy := RandomRollout[int](rng)
		for i := 0; i < 200; i++ {
			leaf, err := selectThenExpand(root, DefaultExplorationConstant)
			require.NoError(t, err)
			terminal, err := simulate(leaf.state, policy)
			require.NoError(t, err)
			for n := leaf; n.parent != nil; n = n.parent {
				expected[n] += terminal.FinalResult(n.parent.state.Player())
			}
			backup(leaf, terminal)
		}

		walk(root, func(n *node[int]) {
			require.InDelta(t, expected[n], n.rewards, 1e-9)
		})
		require.Zero(t, root.rewards)
	})
}

func TestChooseAction(t *testing.T) {
	t.Run("terminal state", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(1))
		_, err := m.ChooseAction(parseBoard(t, "XXXOO...."), time.Second)
		require.ErrorIs(t, err, ErrInvalidState, "Should refuse to search a finished game")
	})

	t.Run("zero budget still completes an iteration", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(1))
		result, err := m.Search(tictactoe.NewBoard(), 0)
		require.NoError(t, err)
		require.Equal(t, 1, result.Iterations, "Should run exactly one iteration")
		require.Len(t, result.Children, 1)
		require.Equal(t, 8, result.Action, "Should return the only expanded action")
	})

	t.Run("finding the winning move", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(3), WithMaxIterations(2000))
		action, err := m.ChooseAction(parseBoard(t, "XX.OO...."), 500*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, 2, action, "X should complete the top row")
	})

	t.Run("blocking the opponent", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(5), WithMaxIterations(5000))
		action, err := m.ChooseAction(parseBoard(t, "XX..O...."), 10*time.Second)
		require.NoError(t, err)
		require.Equal(t, 2, action, "O should block the top row")
	})

	t.Run("returned action is valid", func(t *testing.T) {
		rng := rand.New(rand.NewSource(21))
		for g := 0; g < 5; g++ {
			board := tictactoe.NewBoard()
			for !board.IsTerminal() {
				m := NewMCTS[int](WithRand(rng), WithMaxIterations(50))
				action, err := m.ChooseAction(board, time.Second)
				require.NoError(t, err)
				require.Contains(t, board.ValidActions(), action)
				board = board.Place(action)
			}
		}
	})

	t.Run("stuck state", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(1))
		_, err := m.ChooseAction(stuckState{}, time.Second)
		require.True(t, errors.Is(err, game.ErrContractViolation), "Should report a state without actions")
	})
}

func TestSearchBudget(t *testing.T) {
	t.Run("stopping at the deadline", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(1), WithClock(newFakeClock()))
		result, err := m.Search(tictactoe.NewBoard(), 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, 100, result.Iterations, "Each iteration should take one tick")
	})

	t.Run("stopping at the iteration cap", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(1), WithClock(newFakeClock()), WithMaxIterations(40))
		result, err := m.Search(tictactoe.NewBoard(), time.Hour)
		require.NoError(t, err)
		require.Equal(t, 40, result.Iterations)

		visits := 0
		for _, child := range result.Children {
			visits += child.Visits
		}
		require.Equal(t, 40, visits, "Root children should share every iteration")
	})
}

func TestSearchDeterminism(t *testing.T) {
	search := func() Result[int] {
		m := NewMCTS[int](WithSeed(42), WithClock(newFakeClock()))
		result, err := m.Search(tictactoe.NewBoard(), 300*time.Millisecond)
		require.NoError(t, err)
		result.Metric = metrics.SearchMetric{}
		return result
	}

	first := search()
	second := search()
	require.Equal(t, first, second, "Same seed and clock should build the same tree")
	require.Equal(t, 300, first.Iterations)
}

func TestRolloutPolicy(t *testing.T) {
	t.Run("custom policy", func(t *testing.T) {
		calls := 0
		var firstAction RolloutPolicy[int] = func(_ game.State[int], actions []int) int {
			calls++
			return actions[0]
		}
		m := NewMCTS[int](WithRolloutPolicy(firstAction), WithMaxIterations(10))
		_, err := m.ChooseAction(tictactoe.NewBoard(), time.Second)
		require.NoError(t, err)
		require.Positive(t, calls, "Should use the given policy")
	})

	t.Run("mismatched action type", func(t *testing.T) {
		var byName RolloutPolicy[string] = func(_ game.State[string], actions []string) string {
			return actions[0]
		}
		require.Panics(t, func() {
			NewMCTS[int](WithRolloutPolicy(byName))
		}, "Should reject a policy for another action type")
	})

	t.Run("simulating from a terminal state", func(t *testing.T) {
		board := parseBoard(t, "XXXOO....")
		got, err := simulate[int](strictState{board}, nil)
		require.NoError(t, err)
		require.True(t, got.IsTerminal(), "Should return the terminal state unchanged")
	})
}

func TestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m := NewMCTS[int]()
		require.Equal(t, DefaultExplorationConstant, m.ExplorationConstant())
	})

	t.Run("ignoring invalid exploration constants", func(t *testing.T) {
		m := NewMCTS[int](WithExplorationConstant(-1))
		require.Equal(t, DefaultExplorationConstant, m.ExplorationConstant())

		m = NewMCTS[int](WithExplorationConstant(0.5))
		require.Equal(t, 0.5, m.ExplorationConstant())
	})
}

func TestSearchObservability(t *testing.T) {
	t.Run("collecting metrics", func(t *testing.T) {
		collector := metrics.NewCollector()
		m := NewMCTS[int](WithSeed(1), WithMetrics(collector), WithMaxIterations(30))
		result, err := m.Search(tictactoe.NewBoard(), time.Second)
		require.NoError(t, err)

		require.Equal(t, 30, result.Metric.Iterations)
		require.Equal(t, result.Nodes-1, result.Metric.Nodes, "Root should not count as expanded")
		require.Equal(t, result.MaxDepth, result.Metric.MaxDepth)
	})

	t.Run("reporting statistics without a collector", func(t *testing.T) {
		m := NewMCTS[int](WithSeed(1), WithClock(newFakeClock()))
		result, err := m.Search(tictactoe.NewBoard(), 100*time.Millisecond)
		require.NoError(t, err)

		require.Equal(t, 100, result.Metric.Iterations)
		require.Equal(t, result.Nodes-1, result.Metric.Nodes)
		require.Equal(t, result.MaxDepth, result.Metric.MaxDepth)
		require.Equal(t, 100*time.Millisecond, result.Metric.Budget)
		require.Equal(t, DefaultExplorationConstant, result.Metric.ExplorationConstant)
		require.GreaterOrEqual(t, result.Metric.Duration, 100*time.Millisecond)
	})

	t.Run("completing the collector after a failed search", func(t *testing.T) {
		collector := &countingCollector{Collector: metrics.NewCollector()}
		m := NewMCTS[int](WithSeed(1), WithMetrics(collector))
		_, err := m.Search(stuckState{}, time.Second)
		require.ErrorIs(t, err, game.ErrContractViolation)
		require.Equal(t, 1, collector.started)
		require.Equal(t, 1, collector.completed, "Every started search should complete")
	})

	t.Run("tracing the search", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		m := NewMCTS[int](WithSeed(1), WithTracer(provider.Tracer("test")), WithMaxIterations(5))

		_, err := m.Search(tictactoe.NewBoard(), time.Second)
		require.NoError(t, err)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		require.Equal(t, "mcts.search", spans[0].Name())
	})

	t.Run("logging the summary", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
		m := NewMCTS[int](WithSeed(1), WithLogger(logger), WithMaxIterations(5))

		_, err := m.Search(tictactoe.NewBoard(), time.Second)
		require.NoError(t, err)
		require.Contains(t, buf.String(), `"iterations":5`)
		require.Contains(t, buf.String(), "search chose action")
	})
}
