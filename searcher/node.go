package searcher

import (
	"fmt"
	"slices"

	"mcts/game"

	"gonum.org/v1/gonum/floats"
)

// node is a vertex of the search tree. Its statistics describe the action that
// led to it, so rewards are scored for the player who moved in the parent.
type node[A any] struct {
	state    game.State[A]
	parent   *node[A]
	action   A // Zero value for the root
	children []*node[A]
	untried  []A
	terminal bool
	depth    int
	visits   int
	rewards  float64
}

func newNode[A any](parent *node[A], action A, state game.State[A]) *node[A] {
	n := &node[A]{
		state:    state,
		parent:   parent,
		action:   action,
		terminal: state.IsTerminal(),
	}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	if !n.terminal {
		// Own copy, expansion consumes it
		n.untried = slices.Clone(state.ValidActions())
		n.children = make([]*node[A], 0, len(n.untried))
	}
	return n
}

func (n *node[A]) isFullyExpanded() bool {
	return len(n.untried) == 0
}

// expand consumes the last untried action and attaches the resulting child.
func (n *node[A]) expand() *node[A] {
	if len(n.untried) == 0 {
		panic(fmt.Errorf("%w: node at depth %d has %d children", ErrExhaustedOptions, n.depth, len(n.children)))
	}

	last := len(n.untried) - 1
	action := n.untried[last]
	n.untried = n.untried[:last]

	child := newNode(n, action, n.state.Play(action))
	n.children = append(n.children, child)
	return child
}

// selectChild returns the child with the highest UCT score, the first one on ties.
func (n *node[A]) selectChild(c float64) *node[A] {
	if len(n.children) == 0 {
		panic("node has no children")
	}
	if n.visits == 0 {
		panic("node has children but no visits")
	}

	policy := newUCT(c, n.visits)
	scores := make([]float64, len(n.children))
	for i, child := range n.children {
		scores[i] = policy.score(child.rewards, child.visits)
	}
	return n.children[floats.MaxIdx(scores)]
}

// robustChild returns the most visited child, the first one on ties.
func (n *node[A]) robustChild() *node[A] {
	if len(n.children) == 0 {
		panic("node has no children")
	}

	best := n.children[0]
	for _, child := range n.children[1:] {
		if child.visits > best.visits {
			best = child
		}
	}
	return best
}

// update records one playout ending in terminal and returns the parent.
func (n *node[A]) update(terminal game.State[A]) *node[A] {
	n.visits++
	if n.parent != nil {
		n.rewards += terminal.FinalResult(n.parent.state.Player())
	}
	return n.parent
}

// size counts the nodes of the subtree rooted at n.
func (n *node[A]) size() int {
	count := 1
	for _, child := range n.children {
		count += child.size()
	}
	return count
}
