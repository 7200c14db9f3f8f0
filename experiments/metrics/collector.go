package metrics

import (
	"sync/atomic"
	"time"

	"mcts/game"
)

type SearchMetric struct {
	Budget              time.Duration
	Duration            time.Duration
	ExplorationConstant float64
	Iterations          int
	Nodes               int // Nodes added by expansion, the root excluded
	MaxDepth            int
}

type MoveMetric struct {
	Step   int
	Player game.Player
	Action string
	SearchMetric
}

type GameMetric struct {
	StartingPlayer game.Player
	Winner         game.Player // NoPlayer on a draw
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

// Collector receives search events. One collector serves one searcher at a time.
type Collector interface {
	Start(budget time.Duration, explorationConstant float64)
	AddNode()
	AddIteration(depth int)
	Complete() SearchMetric
}

type collector struct {
	budget              time.Duration
	explorationConstant float64
	startTime           time.Time
	iterations          atomic.Int64
	nodes               atomic.Int64
	maxDepth            atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(budget time.Duration, explorationConstant float64) {
	m.startTime = time.Now()
	m.budget = budget
	m.explorationConstant = explorationConstant
	m.iterations.Store(0)
	m.nodes.Store(0)
	m.maxDepth.Store(0)
}

func (m *collector) AddNode() {
	m.nodes.Add(1)
}

func (m *collector) AddIteration(depth int) {
	m.iterations.Add(1)
	d := int64(depth)
	for {
		current := m.maxDepth.Load()
		if d <= current || m.maxDepth.CompareAndSwap(current, d) {
			return
		}
	}
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Budget:              m.budget,
		Duration:            time.Since(m.startTime),
		ExplorationConstant: m.explorationConstant,
		Iterations:          int(m.iterations.Load()),
		Nodes:               int(m.nodes.Load()),
		MaxDepth:            int(m.maxDepth.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(budget time.Duration, explorationConstant float64) {}
func (m *dummyCollector) AddNode()                                                {}
func (m *dummyCollector) AddIteration(depth int)                                  {}
func (m *dummyCollector) Complete() SearchMetric                                  { return SearchMetric{} }
