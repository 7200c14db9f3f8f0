// Command mcts plays and benchmarks tic-tac-toe with Monte Carlo tree search.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
