package solver

import (
	"fmt"
	"math/rand/v2"

	"github.com/lox/purecfr/internal/game"
)

// OverflowError is raised when an average-strategy increment wraps to a
// nonpositive value. It is always fatal: the process must stop rather than
// keep training against a corrupted counter.
type OverflowError struct {
	Round   int
	Bucket  int
	SolnIdx int64
	Choice  int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("solver: average-strategy counter overflowed at round %d bucket %d soln_idx %d choice %d; "+
		"widen that round's AVG_STRATEGY_TYPES entry and rebuild from the last valid dump", e.Round, e.Bucket, e.SolnIdx, e.Choice)
}

// Engine holds the long-lived, read-mostly structures every worker shares:
// the tree, the entry stores, and the card abstraction. Workers mutate
// Regrets and AvgStrategy without locks.
type Engine struct {
	Game      *game.Game
	Root      *Node
	RoundSizes TreeRoundSizes
	CardAbs   CardAbstraction
	Rank      game.RankFunc

	Regrets     []*RegretEntries
	AvgStrategy []AvgEntryStore // nil when average-strategy tracking is disabled
}

// Walk recurses from the root for one position, sampling the purified
// current strategy at every decision node it enters. It returns position's
// utility for this hand and may return an *OverflowError if
// average-strategy tracking wraps a counter.
func (e *Engine) Walk(position int, n *Node, h *Hand, rng *rand.Rand) (int64, error) {
	if n.IsLeaf(position) {
		return n.Evaluate(h, position), nil
	}

	k := n.NumChoices
	bucket := e.bucket(n, h)

	posValues, sum := e.Regrets[n.Round].GetPositiveValues(bucket, n.SolnIdx, k)
	if sum == 0 {
		for c := range posValues {
			posValues[c] = 1
		}
		sum = uint64(k)
	}

	choice := sampleChoice(posValues, sum, rng)

	if n.Player != position {
		child := n.Children[choice]
		retval, err := e.Walk(position, child, h, rng)
		if err != nil {
			return 0, err
		}
		if e.AvgStrategy != nil {
			store := e.AvgStrategy[n.Round]
			if store.IncrementEntry(bucket, n.SolnIdx, choice) {
				return 0, &OverflowError{Round: n.Round, Bucket: bucket, SolnIdx: n.SolnIdx, Choice: choice}
			}
		}
		return retval, nil
	}

	values := make([]int64, k)
	for c, child := range n.Children {
		v, err := e.Walk(position, child, h, rng)
		if err != nil {
			return 0, err
		}
		values[c] = v
	}
	retval := values[choice]
	e.Regrets[n.Round].UpdateRegret(bucket, n.SolnIdx, k, values, retval)
	return retval, nil
}

// sampleChoice draws dart ~ Uniform{0..sum-1} and returns the smallest c
// whose cumulative positive-value bucket contains it; a zero-weight child
// can never be picked while sum > 0.
func sampleChoice(posValues []int64, sum uint64, rng *rand.Rand) int {
	dart := rng.Uint64() % sum
	var cumulative uint64
	for c, v := range posValues {
		cumulative += uint64(v)
		if cumulative > dart {
			return c
		}
	}
	return len(posValues) - 1
}

func (e *Engine) bucket(n *Node, h *Hand) int {
	if h.PrecomputedBuckets[n.Player] != nil {
		return h.PrecomputedBuckets[n.Player][n.Round]
	}
	return e.CardAbs.GetBucket(e.Game, n.Round, h.Hole[n.Player], h.Board[:e.Game.TotalBoardCards(n.Round)])
}
