package solver

import "github.com/lox/purecfr/internal/game"

// CardAbstraction maps a dealt hand to a small integer bucket per
// (player, round).
type CardAbstraction interface {
	NumBuckets(g *game.Game, round int) int
	GetBucket(g *game.Game, round int, hole, board []game.Card) int
	CanPrecompute() bool
}

func NewCardAbstraction(t CardAbsType) CardAbstraction {
	if t == CardAbsBlind {
		return blindAbstraction{}
	}
	return nullCardAbstraction{}
}

// blindAbstraction ignores cards entirely: one bucket per round.
type blindAbstraction struct{}

func (blindAbstraction) NumBuckets(g *game.Game, round int) int { return 1 }
func (blindAbstraction) GetBucket(g *game.Game, round int, hole, board []game.Card) int {
	return 0
}
func (blindAbstraction) CanPrecompute() bool { return true }

// nullCardAbstraction encodes the dealt cards as a base-deckSize integer:
// private cards first, then board cards in deal order. This allocates more
// buckets than strictly needed (it ignores card removal and suit/rank
// equivalence) but is exact and trivially precomputable.
type nullCardAbstraction struct{}

func (nullCardAbstraction) NumBuckets(g *game.Game, round int) int {
	deck := g.DeckSize()
	n := g.NumHoleCards + g.TotalBoardCards(round)
	total := 1
	for i := 0; i < n; i++ {
		total *= deck
	}
	return total
}

func (nullCardAbstraction) GetBucket(g *game.Game, round int, hole, board []game.Card) int {
	deck := g.DeckSize()
	bucket := 0
	for _, c := range hole {
		bucket = bucket*deck + int(c)
	}
	for i := 0; i < g.TotalBoardCards(round) && i < len(board); i++ {
		bucket = bucket*deck + int(board[i])
	}
	return bucket
}

func (nullCardAbstraction) CanPrecompute() bool { return true }
