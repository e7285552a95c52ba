package solver

import (
	"fmt"
	"math/rand/v2"

	"github.com/lox/purecfr/internal/game"
)

// AvgWidths lets a caller override the per-round average-strategy element
// width; nil means DefaultAvgWidth.
type AvgWidths []EntryType

// NewEngine builds the betting tree with the configured abstractions, then
// allocates zeroed regret and (if enabled) average-strategy arrays sized by
// buckets x entries-per-bucket per round.
func NewEngine(g *game.Game, abs AbstractionConfig, doAverage bool, widths AvgWidths, rank game.RankFunc) (*Engine, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := abs.Validate(); err != nil {
		return nil, err
	}
	if doAverage && g.NumPlayers != 2 {
		return nil, fmt.Errorf("solver: average-strategy tracking is only defined for two-player games")
	}

	actionAbs := NewActionAbstraction(abs.ActionAbs)
	cardAbs := NewCardAbstraction(abs.CardAbs)

	root, sizes, err := BuildTree(g, actionAbs)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Game:       g,
		Root:       root,
		RoundSizes: sizes,
		CardAbs:    cardAbs,
		Rank:       rank,
		Regrets:    make([]*RegretEntries, g.NumRounds),
	}

	for r := 0; r < g.NumRounds; r++ {
		buckets := cardAbs.NumBuckets(g, r)
		n := int(sizes[r])
		e.Regrets[r] = NewRegretEntries(n, buckets*n)
	}

	if doAverage {
		e.AvgStrategy = make([]AvgEntryStore, g.NumRounds)
		for r := 0; r < g.NumRounds; r++ {
			width := DefaultAvgWidth(r)
			if widths != nil && r < len(widths) {
				width = widths[r]
			}
			buckets := cardAbs.NumBuckets(g, r)
			n := int(sizes[r])
			store, err := NewAvgEntryStore(width, n, buckets*n)
			if err != nil {
				return nil, err
			}
			e.AvgStrategy[r] = store
		}
	}

	return e, nil
}

// RunIteration deals one hand and walks the tree once per player, updating
// the shared entry stores. It is the unit of work the worker coordinator
// batches into blocks.
func (e *Engine) RunIteration(rng *rand.Rand) error {
	h := DealHand(e.Game, e.CardAbs, e.Rank, rng)
	for position := 0; position < e.Game.NumPlayers; position++ {
		if _, err := e.Walk(position, e.Root, h, rng); err != nil {
			return err
		}
	}
	return nil
}
