package solver

import (
	"errors"
	"io"
	"math/rand/v2"

	"github.com/lox/purecfr/internal/game"
)

// Player loads a finished strategy and translates concrete game states into
// the abstract tree to pick actions. It rebuilds the same tree
// construction path used at training time, which is the bit-for-bit
// compatibility contract a translation depends on.
type Player struct {
	Game      *game.Game
	Root      *Node
	CardAbs   CardAbstraction
	ActionAbs ActionAbstraction
	DoAverage bool

	Regrets     []*RegretEntries
	AvgStrategy []AvgEntryStore

	closers []io.Closer
}

// AddCloser registers a resource (typically a memory-mapped dump) to be
// released when the Player is closed. Callers building a borrowed Player
// from LoadBorrowedRegrets/LoadBorrowedAvgStrategy should pass the returned
// mapping here.
func (p *Player) AddCloser(c io.Closer) {
	if c != nil {
		p.closers = append(p.closers, c)
	}
}

// Close releases any memory-mapped dumps backing a borrowed Player.
func (p *Player) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var errTranslation = errors.New("solver: could not translate real action to an abstract one")

// Resolve walks history, the real actions played so far this hand, from
// the root, translating each to an abstract child. It returns the
// information-set node reached and the abstract betting state at that
// node, so the caller can re-enumerate actions and buckets consistently.
func (p *Player) Resolve(history []game.Action) (*Node, game.State, error) {
	n := p.Root
	s := game.NewState(p.Game)
	for _, real := range history {
		actions, err := p.ActionAbs.GetActions(p.Game, s)
		if err != nil {
			return nil, s, err
		}
		idx, err := translate(p.Game, actions, real)
		if err != nil {
			return nil, s, err
		}
		n = n.Children[idx]
		s = s.Do(p.Game, actions[idx])
	}
	return n, s, nil
}

// translate maps a real action onto one abstract action's index, applying
// soft geometric translation for no-limit raises.
func translate(g *game.Game, abstract []game.Action, real game.Action) (int, error) {
	if real.Type != game.Raise || g.Betting == game.Limit {
		for i, a := range abstract {
			if a.Type == real.Type {
				return i, nil
			}
		}
		return 0, errTranslation
	}

	type candidate struct {
		idx  int
		size int
	}
	var below, above *candidate
	for i, a := range abstract {
		if a.Type != game.Raise {
			continue
		}
		if a.Size <= real.Size && (below == nil || a.Size > below.size) {
			below = &candidate{i, a.Size}
		}
		if a.Size >= real.Size && (above == nil || a.Size < above.size) {
			above = &candidate{i, a.Size}
		}
	}

	switch {
	case below != nil && above != nil && below.size == above.size:
		return below.idx, nil
	case below == nil && above != nil:
		return above.idx, nil
	case above == nil && below != nil:
		return below.idx, nil
	case below == nil && above == nil:
		return 0, errTranslation
	}

	l, u, real64 := float64(below.size), float64(above.size), float64(real.Size)
	lu := l / u
	simL := (l/real64 - lu) / (1 - lu)
	simU := (real64/u - lu) / (1 - lu)
	probL := simL / (simL + simU)
	if rand.Float64() < probL {
		return below.idx, nil
	}
	return above.idx, nil
}

// ActionProbabilities resolves the information set reached by history and
// returns, for each abstract action at that node, the probability the
// strategy assigns it; hole/board give the bucket when the configured card
// abstraction cannot precompute blind of node history. Translation
// failure or an all-zero sum falls back to the default distribution
// (deterministic call, else the first action); on translation failure the
// fallback is returned together with the translation error.
func (p *Player) ActionProbabilities(history []game.Action, hole, board []game.Card) ([]game.Action, []float64, error) {
	n, s, err := p.Resolve(history)
	if err != nil {
		actions, probs, derr := p.defaultDistribution(s)
		if derr != nil {
			return nil, nil, derr
		}
		return actions, probs, err
	}

	bucket := p.CardAbs.GetBucket(p.Game, n.Round, hole, board)

	var values []int64
	var sum uint64
	if p.DoAverage {
		values, sum = p.AvgStrategy[n.Round].GetPositiveValues(bucket, n.SolnIdx, n.NumChoices)
	} else {
		values, sum = p.Regrets[n.Round].GetPositiveValues(bucket, n.SolnIdx, n.NumChoices)
	}
	if sum == 0 {
		return p.defaultDistribution(s)
	}

	actions, err := p.ActionAbs.GetActions(p.Game, s)
	if err != nil {
		return p.defaultDistribution(s)
	}
	probs := make([]float64, len(values))
	for c, v := range values {
		probs[c] = float64(v) / float64(sum)
	}
	return actions, probs, nil
}

// defaultDistribution is the fallback when translation fails or the
// strategy sum is zero: deterministic call when one exists, else the first
// action.
func (p *Player) defaultDistribution(s game.State) ([]game.Action, []float64, error) {
	actions, err := p.ActionAbs.GetActions(p.Game, s)
	if err != nil || len(actions) == 0 {
		return nil, nil, err
	}
	probs := make([]float64, len(actions))
	for i, a := range actions {
		if a.Type == game.Call {
			probs[i] = 1
			return actions, probs, nil
		}
	}
	probs[0] = 1
	return actions, probs, nil
}

// PickAction samples a concrete action from the resolved distribution and
// verifies its legality in the real game; an illegal sample falls back to
// call.
func PickAction(actions []game.Action, probs []float64, legal []game.ActionType, rng *rand.Rand) game.Action {
	dart := rng.Float64()
	var cumulative float64
	chosen := actions[0]
	for i, p := range probs {
		cumulative += p
		if dart < cumulative {
			chosen = actions[i]
			break
		}
	}
	for _, t := range legal {
		if t == chosen.Type {
			return chosen
		}
	}
	for _, a := range actions {
		if a.Type == game.Call {
			return a
		}
	}
	return game.Action{Type: game.Fold}
}
