package solver

import (
	"fmt"

	"github.com/lox/purecfr/internal/game"
)

// MaxAbstractActions is the compiled-in ceiling on how many abstract
// actions a decision node may expose. Overflow is a fatal configuration
// error, not a runtime one.
const MaxAbstractActions = 4

// ActionAbstraction enumerates the abstract actions legal at a state. The
// returned order is the action-index order used by the betting tree's
// child slice and by purification sampling.
type ActionAbstraction interface {
	GetActions(g *game.Game, s game.State) ([]game.Action, error)
}

// NewActionAbstraction constructs the configured variant.
func NewActionAbstraction(t ActionAbsType) ActionAbstraction {
	switch t {
	case ActionAbsFCPA:
		return fcpaAbstraction{}
	default:
		return nullActionAbstraction{}
	}
}

// nullActionAbstraction enumerates every legal action; for raises, one action per
// valid raise size in [min_raise, max_raise]. Intended for limit games,
// where that range contains exactly one size.
type nullActionAbstraction struct{}

func (nullActionAbstraction) GetActions(g *game.Game, s game.State) ([]game.Action, error) {
	var actions []game.Action
	for _, t := range s.LegalActions(g) {
		switch t {
		case game.Fold:
			actions = append(actions, game.Action{Type: game.Fold})
		case game.Call:
			actions = append(actions, game.Action{Type: game.Call})
		case game.Raise:
			min, max := s.MinRaiseTotal(g), s.MaxRaiseTotal(g)
			if g.Betting == game.Limit {
				actions = append(actions, game.Action{Type: game.Raise, Size: min})
			} else {
				for size := min; size <= max; size++ {
					actions = append(actions, game.Action{Type: game.Raise, Size: size})
					if len(actions) > MaxAbstractActions {
						break
					}
				}
			}
		}
	}
	if len(actions) > MaxAbstractActions {
		return nil, fmt.Errorf("solver: action abstraction produced %d actions, exceeds A_max=%d; coarsen the abstraction or raise MaxAbstractActions", len(actions), MaxAbstractActions)
	}
	return actions, nil
}

// fcpaAbstraction emits at most {fold, call, pot-raise, all-in}.
type fcpaAbstraction struct{}

func (fcpaAbstraction) GetActions(g *game.Game, s game.State) ([]game.Action, error) {
	var actions []game.Action
	legal := s.LegalActions(g)

	hasFold, hasCall, hasRaise := false, false, false
	for _, t := range legal {
		switch t {
		case game.Fold:
			hasFold = true
		case game.Call:
			hasCall = true
		case game.Raise:
			hasRaise = true
		}
	}
	if hasFold {
		actions = append(actions, game.Action{Type: game.Fold})
	}
	if hasCall {
		actions = append(actions, game.Action{Type: game.Call})
	}
	if hasRaise {
		maxRaise := s.MaxRaiseTotal(g)
		toCall := s.ToCall()
		pot := 0
		for p := 0; p < game.MaxPlayers; p++ {
			pot += s.Spent[p]
		}
		potRaise := pot + toCall + (s.Spent[s.Acting] + toCall)
		if potRaise < maxRaise {
			actions = append(actions, game.Action{Type: game.Raise, Size: potRaise})
		}
		actions = append(actions, game.Action{Type: game.Raise, Size: maxRaise})
	}
	if len(actions) > MaxAbstractActions {
		return nil, fmt.Errorf("solver: FCPA abstraction produced %d actions, exceeds A_max=%d", len(actions), MaxAbstractActions)
	}
	return actions, nil
}
