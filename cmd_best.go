package main

import (
	"fmt"
	"io"
	"time"

	"mcts/game/tictactoe"

	"github.com/spf13/cobra"
)

func newBestCmd(a *app) *cobra.Command {
	var budget time.Duration

	cmd := &cobra.Command{
		Use:   "best BOARD",
		Short: "Search a position and print the best move",
		Long: `Search a position and print the best move along with the visit
statistics of every root move.

BOARD lists the nine cells row by row: X and O for marks, '.' for empty
cells, and optional '|' or '/' between rows, e.g. "XX.|OO.|...".`,
		Example: `  mcts best "XX.|OO.|..."
  mcts best --budget 1s "X../.O./..."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("budget") {
				budget = a.cfg.Search.TimeBudget
			}
			return a.best(cmd.OutOrStdout(), args[0], budget)
		},
	}
	cmd.Flags().DurationVarP(&budget, "budget", "b", 0, "search time (default from config)")
	return cmd
}

func (a *app) best(out io.Writer, position string, budget time.Duration) error {
	board, err := tictactoe.Parse(position)
	if err != nil {
		return err
	}

	result, err := a.newSearcher("best").Search(board, budget)
	if err != nil {
		return fmt.Errorf("failed to search %s: %w", board.Compact(), err)
	}

	fmt.Fprintln(out, renderBoard(board))
	fmt.Fprintf(out, "%s %s to play: %s\n", titleStyle.Render("Best move"), board.Player(), formatCell(result.Action))
	fmt.Fprintf(out, "%d iterations, %d nodes, depth %d in %s\n",
		result.Iterations, result.Nodes, result.MaxDepth, result.Metric.Duration.Round(time.Millisecond))
	fmt.Fprintln(out, renderChildren(result.Children))
	return nil
}
