package experiments

import (
	"fmt"
	"math"
	"time"

	"mcts/engine"
	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/game/tictactoe"
	"mcts/searcher"
	"mcts/searcher/agent"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

const (
	KindMCTS     = "mcts"
	KindTraining = "training"
	KindRandom   = "random"
)

// Runner plays tic-tac-toe matchups and stores their records as CSV.
type Runner struct {
	Games      int // Per match up
	MaxMoves   int
	OutputDir  string
	TimeBudget time.Duration
	// Seed makes a run reproducible together with MaxIterations caps. 0 seeds from the clock.
	Seed uint64
	// Temperature of the training agents in self-play
	Temperature float64
	// Metrics exports every search to Prometheus when set
	Metrics *metrics.PromMetrics
}

// Summary counts the outcomes of an experiment by agent ID.
type Summary struct {
	Name  string
	Dir   string
	Games int
	Wins  map[int]int
	Draws int
}

// RunExplorationExperiment pairs agents with different exploration constants
// against a baseline using the default constant.
func (r Runner) RunExplorationExperiment() (Summary, error) {
	baseline := metrics.AgentConfig{ID: 0, Kind: KindMCTS, Budget: r.TimeBudget, ExplorationConstant: searcher.DefaultExplorationConstant}
	configs := []metrics.AgentConfig{}
	for i, c := range []float64{0.25, 0.5, 1.0, math.Sqrt2, 2.0, 4.0} {
		configs = append(configs, metrics.AgentConfig{ID: i + 1, Kind: KindMCTS, Budget: r.TimeBudget, ExplorationConstant: c})
	}

	// Each matchup pairs the baseline agent against an exploration agent
	matchUps := [][]metrics.AgentConfig{}
	for _, config := range configs {
		matchUps = append(matchUps, []metrics.AgentConfig{baseline, config})
	}

	return r.runExperiment("exploration", append(configs, baseline), matchUps)
}

// RunRandomBaseline pairs the default searcher against uniformly random play.
func (r Runner) RunRandomBaseline() (Summary, error) {
	random := metrics.AgentConfig{ID: 0, Kind: KindRandom}
	searching := metrics.AgentConfig{ID: 1, Kind: KindMCTS, Budget: r.TimeBudget, ExplorationConstant: searcher.DefaultExplorationConstant}

	return r.runExperiment("random_baseline", []metrics.AgentConfig{random, searching},
		[][]metrics.AgentConfig{{random, searching}})
}

func (r Runner) runExperiment(name string, configs []metrics.AgentConfig, matchUps [][]metrics.AgentConfig) (Summary, error) {
	// Run a number of games for each matchup
	count := 0
	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}
	summary := Summary{Name: name, Wins: map[int]int{}}

	log.Info().Msgf("starting %s experiment...", name)

	for mi, matchup := range matchUps {
		log.Info().Msgf("starting matchup %d of %d between agent1=%+v and agent2=%+v...", mi+1, len(matchUps), matchup[0], matchup[1])

		for i := 0; i < r.Games; i++ {
			// Alternate the starting agent
			x, o := matchup[0], matchup[1]
			if i%2 == 1 {
				x, o = o, x
			}
			log.Info().Msgf("starting matchup %d of %d game %d of %d...", mi+1, len(matchUps), i+1, r.Games)

			count++
			winner, gameMetric, moveMetrics, err := r.runGame(x, o, count)
			if err != nil {
				return summary, fmt.Errorf("failed to play game %d of %s: %w", count, name, err)
			}
			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Agent1:     x.ID,
				Agent2:     o.ID,
				GameMetric: gameMetric,
			})
			for _, mm := range moveMetrics {
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Game:       count,
					MoveMetric: mm,
				})
			}

			switch winner {
			case tictactoe.X:
				summary.Wins[x.ID]++
			case tictactoe.O:
				summary.Wins[o.ID]++
			default:
				summary.Draws++
			}
			log.Info().Msgf("completed matchup %d of %d game %d with winner: %q", mi+1, len(matchUps), i+1, winner)
		}
		log.Info().Msgf("completed matchup %d of %d", mi+1, len(matchUps))
	}
	summary.Games = count

	log.Info().Msgf("completed %s experiment", name)

	dir, err := r.store(name, configs, gameRecords, moveRecords)
	summary.Dir = dir
	return summary, err
}

func (r Runner) store(name string, configs []metrics.AgentConfig, gameRecords []metrics.GameRecord, moveRecords []metrics.MoveRecord) (string, error) {
	// Store experiment metadata
	writer, err := metrics.NewWriter(r.OutputDir, name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}

	if err := writer.WriteAgentConfigs(configs); err != nil {
		return writer.Dir(), fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	// Store experiment results
	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return writer.Dir(), fmt.Errorf("failed to write game records: %w", err)
	}
	log.Info().Msg("stored game records")

	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return writer.Dir(), fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msg("stored move records")

	return writer.Dir(), nil
}

// runGame plays a single game, x moving first, and returns the winner
func (r Runner) runGame(x, o metrics.AgentConfig, gameID int) (game.Player, metrics.GameMetric, []metrics.MoveMetric, error) {
	agents := map[game.Player]agent.Agent[int]{
		tictactoe.X: r.createAgent(x, r.seed(gameID, 0)),
		tictactoe.O: r.createAgent(o, r.seed(gameID, 1)),
	}
	e := engine.LocalEngine[int](tictactoe.NewBoard(), agents)
	if r.MaxMoves > 0 {
		e.MaxMoves = r.MaxMoves
	}

	return e.Run()
}

func (r Runner) seed(gameID, side int) uint64 {
	if r.Seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return r.Seed + uint64(2*gameID+side)
}

func (r Runner) createAgent(config metrics.AgentConfig, seed uint64) agent.Agent[int] {
	switch config.Kind {
	case KindRandom:
		return agent.NewRandomAgent[int](rand.New(rand.NewSource(seed)))
	case KindTraining:
		// Sampling draws from its own source, apart from the rollouts
		return agent.NewTrainingAgent(r.createMCTS(config, seed), config.Budget, config.Temperature, rand.New(rand.NewSource(^seed)))
	default:
		return agent.NewEvaluationAgent(r.createMCTS(config, seed), config.Budget)
	}
}

func (r Runner) createMCTS(config metrics.AgentConfig, seed uint64) *searcher.MCTS[int] {
	options := []searcher.Option{}

	if config.ExplorationConstant > 0 {
		options = append(options, searcher.WithExplorationConstant(config.ExplorationConstant))
	}
	if config.MaxIterations > 0 {
		options = append(options, searcher.WithMaxIterations(config.MaxIterations))
	}
	options = append(options, searcher.WithSeed(seed))

	if r.Metrics != nil {
		options = append(options, searcher.WithMetrics(metrics.NewPromCollector(r.Metrics, fmt.Sprintf("agent-%d", config.ID))))
	} else {
		options = append(options, searcher.WithMetrics(metrics.NewCollector()))
	}
	return searcher.NewMCTS[int](options...)
}
