package experiments

import (
	"time"

	"mcts/experiments/metrics"
	"mcts/searcher"
)

// ThroughputBudgets are the time budgets compared by RunThroughputExperiment.
var ThroughputBudgets = []time.Duration{
	1 * time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
}

// RunThroughputExperiment records how many iterations each time budget buys.
func (r Runner) RunThroughputExperiment() (Summary, error) {
	configs := make([]metrics.AgentConfig, 0, len(ThroughputBudgets))
	for i, budget := range ThroughputBudgets {
		configs = append(configs, metrics.AgentConfig{
			ID:                  i + 1,
			Kind:                KindMCTS,
			Budget:              budget,
			ExplorationConstant: searcher.DefaultExplorationConstant,
		})
	}

	// Same config for both players in each game
	// for the same playing strength and similar game length
	matchUps := [][]metrics.AgentConfig{}
	for _, config := range configs {
		matchUps = append(matchUps, []metrics.AgentConfig{config, config})
	}

	return r.runExperiment("throughput", configs, matchUps)
}
