package solver

import (
	"math/rand/v2"

	"github.com/lox/purecfr/internal/game"
)

// intMaxRecip is the pot-fraction-reciprocal sentinel for "no share of the
// pot". The classic trick is a divisor larger than any possible pot so
// integer division yields zero; here 0 is the in-memory sentinel and
// Node.Evaluate special-cases it, avoiding an overflow-prone
// int64(MaxInt32) divisor.
const intMaxRecip = 0

// Hand is the per-iteration record: dealt hole and board cards, optional
// precomputed buckets, and the baked terminal-evaluation tables. It is
// transient, one value per iteration per thread.
type Hand struct {
	Hole  [game.MaxPlayers][]game.Card
	Board []game.Card

	// PrecomputedBuckets[player][round], populated when the configured
	// card abstraction can precompute (CanPrecompute() == true).
	PrecomputedBuckets [game.MaxPlayers][]int

	// Two-player terminal evaluation: +1/0/-1 by showdown comparison.
	ShowdownValue2p [2]int8

	// Three-player terminal evaluation: pot-fraction reciprocal per
	// (player, leaf_type), filled by evaluate3p.
	PotFracRecip [game.MaxPlayers][maxLeafTypes]int
}

// DealHand deals fresh hole and board cards, then (if the abstraction
// allows) precomputes every (player, round) bucket and the terminal
// evaluation tables, populating rank via the supplied RankFunc.
func DealHand(g *game.Game, cardAbs CardAbstraction, rank game.RankFunc, rng *rand.Rand) *Hand {
	deck := game.NewDeck(g.NumRanks, g.NumSuits, rng)
	h := &Hand{}
	for p := 0; p < g.NumPlayers; p++ {
		h.Hole[p] = deck.Deal(g.NumHoleCards)
	}
	h.Board = deck.Deal(g.TotalBoardCards(g.NumRounds - 1))

	if cardAbs.CanPrecompute() {
		for p := 0; p < g.NumPlayers; p++ {
			h.PrecomputedBuckets[p] = make([]int, g.NumRounds)
			for r := 0; r < g.NumRounds; r++ {
				board := h.Board[:min(g.TotalBoardCards(r), len(h.Board))]
				h.PrecomputedBuckets[p][r] = cardAbs.GetBucket(g, r, h.Hole[p], board)
			}
		}
	}

	ranks := make([]int, g.NumPlayers)
	for p := 0; p < g.NumPlayers; p++ {
		ranks[p] = rank(h.Hole[p], h.Board, g.NumSuits)
	}

	if g.NumPlayers == 2 {
		h.evaluate2p(ranks)
	} else {
		h.evaluate3p(ranks)
	}
	return h
}

func (h *Hand) evaluate2p(ranks []int) {
	switch {
	case ranks[0] > ranks[1]:
		h.ShowdownValue2p[0], h.ShowdownValue2p[1] = 1, -1
	case ranks[0] < ranks[1]:
		h.ShowdownValue2p[0], h.ShowdownValue2p[1] = -1, 1
	default:
		h.ShowdownValue2p[0], h.ShowdownValue2p[1] = 0, 0
	}
}

// evaluate3p fills PotFracRecip for every leaf_type:
//   - solo-survivor leaves: recip=1 for the survivor, intMaxRecip otherwise.
//   - two-survivor leaves: the folded player gets intMaxRecip; between the
//     two survivors the higher rank gets 1 and the other intMaxRecip, ties
//     give both 2.
//   - the full leaf: every top-ranked surviving player gets num_ties,
//     everyone else gets intMaxRecip.
func (h *Hand) evaluate3p(ranks []int) {
	for p := 0; p < 3; p++ {
		for lt := 0; lt < maxLeafTypes; lt++ {
			h.PotFracRecip[p][lt] = intMaxRecip
		}
	}

	solo := [3]int8{0, 1, 3} // leaf indices for {P0}, {P1}, {P2}
	for p, lt := range solo {
		h.PotFracRecip[p][lt] = 1
	}

	pairs := []struct {
		i, j int
		lt   int8
	}{
		{0, 1, 2}, // {P0,P1}
		{0, 2, 4}, // {P0,P2}
		{1, 2, 5}, // {P1,P2}
	}
	for _, pr := range pairs {
		switch {
		case ranks[pr.i] > ranks[pr.j]:
			h.PotFracRecip[pr.i][pr.lt] = 1
		case ranks[pr.i] < ranks[pr.j]:
			h.PotFracRecip[pr.j][pr.lt] = 1
		default:
			h.PotFracRecip[pr.i][pr.lt] = 2
			h.PotFracRecip[pr.j][pr.lt] = 2
		}
	}

	const full = int8(6)
	best := ranks[0]
	for p := 1; p < 3; p++ {
		if ranks[p] > best {
			best = ranks[p]
		}
	}
	numTies := 0
	for p := 0; p < 3; p++ {
		if ranks[p] == best {
			numTies++
		}
	}
	for p := 0; p < 3; p++ {
		if ranks[p] == best {
			h.PotFracRecip[p][full] = numTies
		}
	}
}
