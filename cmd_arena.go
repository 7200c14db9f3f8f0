package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"mcts/experiments"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var experimentNames = []string{"random", "exploration", "throughput", "selfplay"}

func newArenaCmd(a *app) *cobra.Command {
	var (
		games       int
		maxMoves    int
		out         string
		budget      time.Duration
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "arena EXPERIMENT",
		Short: "Run an agent-vs-agent experiment and store its records as CSV",
		Long: `Run an agent-vs-agent experiment and store its records as CSV.

Experiments:
  random       the searcher against uniformly random play
  exploration  exploration constants from 0.25 to 4 against the default
  throughput   self-play at budgets from 1ms to 50ms
  selfplay     two agents sampling moves at --temperature`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: experimentNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("games") {
				games = a.cfg.Arena.Games
			}
			if !flags.Changed("max-moves") {
				maxMoves = a.cfg.Arena.MaxMoves
			}
			if !flags.Changed("out") {
				out = a.cfg.Arena.OutputDir
			}
			if !flags.Changed("budget") {
				budget = a.cfg.Search.TimeBudget
			}
			if !flags.Changed("temperature") {
				temperature = a.cfg.Search.Temperature
			}
			if temperature < 0 {
				return fmt.Errorf("temperature must not be negative, got %v", temperature)
			}
			if games < 1 {
				return fmt.Errorf("need at least one game per matchup, got %d", games)
			}

			r := experiments.Runner{
				Games:       games,
				MaxMoves:    maxMoves,
				OutputDir:   out,
				TimeBudget:  budget,
				Seed:        a.cfg.Search.Seed,
				Temperature: temperature,
				Metrics:     a.metrics,
			}
			return runArena(cmd.OutOrStdout(), r, args[0])
		},
	}
	cmd.Flags().IntVarP(&games, "games", "n", 0, "games per matchup (default from config)")
	cmd.Flags().IntVar(&maxMoves, "max-moves", 0, "move limit per game (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory for the CSV records (default from config)")
	cmd.Flags().DurationVarP(&budget, "budget", "b", 0, "thinking time per move (default from config)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "move sampling temperature in self-play, 0 plays greedily (default from config)")
	return cmd
}

func runArena(out io.Writer, r experiments.Runner, name string) error {
	var (
		summary experiments.Summary
		err     error
	)
	switch name {
	case "random":
		summary, err = r.RunRandomBaseline()
	case "exploration":
		summary, err = r.RunExplorationExperiment()
	case "throughput":
		summary, err = r.RunThroughputExperiment()
	case "selfplay":
		summary, err = r.RunSelfPlayExperiment()
	default:
		return fmt.Errorf("unknown experiment %q, want one of %v", name, experimentNames)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderSummary(summary))
	return nil
}

func renderSummary(s experiments.Summary) string {
	ids := make([]int, 0, len(s.Wins))
	for id := range s.Wins {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rows := make([][]string, 0, len(ids)+1)
	for _, id := range ids {
		rows = append(rows, []string{fmt.Sprintf("agent %d", id), fmt.Sprint(s.Wins[id])})
	}
	rows = append(rows, []string{"draws", fmt.Sprint(s.Draws)})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(headerStyle).
		Headers("OUTCOME", "GAMES").
		Rows(rows...)

	return fmt.Sprintf("%s: %d games, records in %s\n%s",
		titleStyle.Render(s.Name), s.Games, s.Dir, t.String())
}
