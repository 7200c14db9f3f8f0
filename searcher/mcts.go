package searcher

import (
	"fmt"
	"math"
	"time"

	"mcts/experiments/metrics"
	"mcts/game"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/rand"
)

type Option func(o *options)

type options struct {
	explorationConstant float64
	rollout             any // RolloutPolicy[A], checked by NewMCTS
	rng                 *rand.Rand
	clock               Clock
	maxIterations       int
	metrics             metrics.Collector
	tracer              trace.Tracer
	logger              *zerolog.Logger
}

// WithExplorationConstant sets c in the UCT formula. Negative values are ignored.
func WithExplorationConstant(c float64) Option {
	return func(o *options) {
		if c >= 0 && !math.IsInf(c, 0) {
			o.explorationConstant = c
		}
	}
}

// WithRolloutPolicy replaces the uniform random playout. The action type must
// match the searcher's, NewMCTS panics otherwise.
func WithRolloutPolicy[A any](policy RolloutPolicy[A]) Option {
	return func(o *options) {
		if policy != nil {
			o.rollout = policy
		}
	}
}

// WithSeed seeds the random source used by the default rollout policy.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}

func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		if r != nil {
			o.rng = r
		}
	}
}

func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMaxIterations stops a search after the given number of iterations even
// if the time budget is not spent yet.
func WithMaxIterations(iterations int) Option {
	return func(o *options) {
		if iterations > 0 {
			o.maxIterations = iterations
		}
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(o *options) {
		if collector != nil {
			o.metrics = collector
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// MCTS chooses actions by Monte-Carlo tree search under a time budget.
// Every search builds a fresh tree. An MCTS must not be used by several
// goroutines at once; create one per goroutine instead.
type MCTS[A any] struct {
	explorationConstant float64
	rollout             RolloutPolicy[A]
	clock               Clock
	maxIterations       int
	metrics             metrics.Collector
	tracer              trace.Tracer
	logger              zerolog.Logger
}

// ChildStat summarises one action available at the root after a search.
type ChildStat[A any] struct {
	Action  A
	Visits  int
	Rewards float64
}

// Mean is the average reward of the action, 0 when it was never visited.
func (c ChildStat[A]) Mean() float64 {
	if c.Visits == 0 {
		return 0
	}
	return c.Rewards / float64(c.Visits)
}

type Result[A any] struct {
	Action     A
	Iterations int
	Nodes      int // Tree size, root included
	MaxDepth   int
	Children   []ChildStat[A] // In expansion order
	Metric     metrics.SearchMetric
}

func NewMCTS[A any](opts ...Option) *MCTS[A] {
	o := &options{ // Default values
		explorationConstant: DefaultExplorationConstant,
		clock:               systemClock{},
		metrics:             metrics.NewDummyCollector(),
	}
	for _, option := range opts {
		option(o)
	}

	m := &MCTS[A]{
		explorationConstant: o.explorationConstant,
		clock:               o.clock,
		maxIterations:       o.maxIterations,
		metrics:             o.metrics,
		tracer:              o.tracer,
	}
	if m.tracer == nil {
		m.tracer = defaultTracer()
	}
	if o.logger != nil {
		m.logger = *o.logger
	} else {
		m.logger = log.Logger
	}

	switch policy := o.rollout.(type) {
	case nil:
		rng := o.rng
		if rng == nil {
			rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
		}
		m.rollout = RandomRollout[A](rng)
	case RolloutPolicy[A]:
		m.rollout = policy
	default:
		panic(fmt.Sprintf("rollout policy %T does not match action type %T", o.rollout, *new(A)))
	}
	return m
}

func (m *MCTS[A]) ExplorationConstant() float64 {
	return m.explorationConstant
}

// ChooseAction searches from state for the given budget and returns the most
// visited root action. It fails with ErrInvalidState on a terminal state.
func (m *MCTS[A]) ChooseAction(state game.State[A], budget time.Duration) (A, error) {
	result, err := m.Search(state, budget)
	if err != nil {
		var zero A
		return zero, err
	}
	return result.Action, nil
}

// Search is ChooseAction with the statistics of the root's children.
// The first iteration always completes, however small the budget.
func (m *MCTS[A]) Search(state game.State[A], budget time.Duration) (result Result[A], err error) {
	if state.IsTerminal() {
		return result, fmt.Errorf("%w: terminal state, no action to choose", ErrInvalidState)
	}

	root := newNode(nil, *new(A), state)
	span := startSearchSpan(m.tracer, budget, m.explorationConstant, len(root.untried))
	defer func() { endSearchSpan(span, result, err) }()

	m.metrics.Start(budget, m.explorationConstant)
	start := m.clock.Now()
	deadline := start.Add(budget)
	nodes, maxDepth := 1, 0
	for {
		leaf, err := selectThenExpand(root, m.explorationConstant)
		if err != nil {
			m.metrics.Complete()
			return Result[A]{}, err
		}
		if leaf.visits == 0 { // Freshly expanded
			nodes++
			m.metrics.AddNode()
		}

		terminal, err := simulate(leaf.state, m.rollout)
		if err != nil {
			m.metrics.Complete()
			return Result[A]{}, err
		}
		backup(leaf, terminal)

		m.metrics.AddIteration(leaf.depth)
		maxDepth = max(maxDepth, leaf.depth)
		if m.maxIterations > 0 && root.visits >= m.maxIterations {
			break
		}
		if !m.clock.Now().Before(deadline) {
			break
		}
	}
	m.metrics.Complete()

	// Expanded nodes only, the root is not counted
	metric := metrics.SearchMetric{
		Budget:              budget,
		Duration:            m.clock.Now().Sub(start),
		ExplorationConstant: m.explorationConstant,
		Iterations:          root.visits,
		Nodes:               nodes - 1,
		MaxDepth:            maxDepth,
	}

	best := root.robustChild()
	result = Result[A]{
		Action:     best.action,
		Iterations: root.visits,
		Nodes:      nodes,
		MaxDepth:   maxDepth,
		Children:   make([]ChildStat[A], len(root.children)),
		Metric:     metric,
	}
	for i, child := range root.children {
		result.Children[i] = ChildStat[A]{Action: child.action, Visits: child.visits, Rewards: child.rewards}
	}

	m.logger.Debug().
		Int("iterations", result.Iterations).
		Int("nodes", result.Nodes).
		Int("max_depth", result.MaxDepth).
		Int("visits", best.visits).
		Float64("rewards", best.rewards).
		Msgf("search chose action %v", best.action)

	return result, nil
}

// selectThenExpand walks down from root along UCT choices and expands the
// first node that still has untried actions. Terminal nodes are returned as is.
func selectThenExpand[A any](root *node[A], c float64) (*node[A], error) {
	n := root
	for !n.terminal {
		if !n.isFullyExpanded() {
			return n.expand(), nil
		}
		if len(n.children) == 0 {
			return nil, fmt.Errorf("%w: non-terminal state has no valid actions", game.ErrContractViolation)
		}
		n = n.selectChild(c)
	}
	return n, nil
}

func backup[A any](n *node[A], terminal game.State[A]) {
	for n != nil {
		parent := n.update(terminal)
		n = parent
	}
}
