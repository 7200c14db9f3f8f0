package experiments

import (
	"mcts/experiments/metrics"
	"mcts/searcher"
)

// RunSelfPlayExperiment plays two training agents against each other. Both
// sample their moves from the root visits at the runner's temperature, so
// the games differ even between identical agents.
func (r Runner) RunSelfPlayExperiment() (Summary, error) {
	configs := make([]metrics.AgentConfig, 0, 2)
	for id := 1; id <= 2; id++ {
		configs = append(configs, metrics.AgentConfig{
			ID:                  id,
			Kind:                KindTraining,
			Budget:              r.TimeBudget,
			ExplorationConstant: searcher.DefaultExplorationConstant,
			Temperature:         r.Temperature,
		})
	}

	return r.runExperiment("selfplay", configs, [][]metrics.AgentConfig{configs})
}
