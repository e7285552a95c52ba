package game

// MaxPlayers bounds every fixed-size array the core keeps per seat. The
// solver only supports heads-up and three-player games.
const MaxPlayers = 3

// State is a pure betting-sequence position: it knows nothing about cards.
// The betting tree (sdk/solver's tree.go) walks States depth-first using
// only the action abstraction, independent of any dealt hand; card buckets
// are looked up separately once a terminal or decision node is reached
// during an iteration. This split mirrors the original engine's separation
// between tree construction and per-hand dealing.
type State struct {
	Round     int
	Acting    int // seat to act next, -1 once the hand is over
	Folded    [MaxPlayers]bool
	RoundBet  [MaxPlayers]int // chips committed this round
	Spent     [MaxPlayers]int // chips committed across the whole hand
	NumActed  int             // actions taken since the last bet/raise this round
	NumRaises int             // raises made this round
}

// NewState returns the initial betting state: blinds posted, first-to-act
// seated per the game definition.
func NewState(g *Game) State {
	var s State
	s.Round = 0
	for p := 0; p < g.NumPlayers; p++ {
		s.RoundBet[p] = g.BlindSize[p]
		s.Spent[p] = g.BlindSize[p]
	}
	s.Acting = g.FirstPlayer[0]
	return s
}

// numActive counts players still in the hand.
func (s State) numActive(g *Game) int {
	n := 0
	for p := 0; p < g.NumPlayers; p++ {
		if !s.Folded[p] {
			n++
		}
	}
	return n
}

func (s State) currentBet() int {
	max := 0
	for p := 0; p < MaxPlayers; p++ {
		if s.RoundBet[p] > max {
			max = s.RoundBet[p]
		}
	}
	return max
}

// ToCall is the amount the acting player still owes to match the round's
// current bet.
func (s State) ToCall() int {
	return s.currentBet() - s.RoundBet[s.Acting]
}

// IsTerminal reports whether the hand has ended, either by fold or by both
// players having seen a showdown after the last round's betting closed.
func (s State) IsTerminal(g *Game) bool {
	return s.Acting < 0
}

// raisesAllowed reports whether another raise may still be made this round.
func (s State) raisesAllowed(g *Game) bool {
	if g.Betting == Limit {
		max := g.MaxRaises[s.Round]
		return max == 0 || s.NumRaises < max
	}
	// No-limit: a raise is legal as long as the acting player has more
	// chips than a call would cost.
	return g.StackSize-s.Spent[s.Acting] > s.ToCall()
}

// MinRaiseTotal and MaxRaiseTotal bound the total-chips-after-raise an
// action abstraction may propose for a Raise action in the current state.
func (s State) MinRaiseTotal(g *Game) int {
	if g.Betting == Limit {
		return s.currentBet() + g.RaiseSize[s.Round]
	}
	minIncrement := g.BlindSize[1]
	if len(g.BlindSize) > 1 && g.BlindSize[0] > minIncrement {
		minIncrement = g.BlindSize[0]
	}
	total := s.currentBet() + minIncrement
	if max := s.MaxRaiseTotal(g); total > max {
		total = max
	}
	return total
}

func (s State) MaxRaiseTotal(g *Game) int {
	return g.StackSize
}

// LegalActions enumerates the action types available to the acting player;
// it does not itself pick raise sizes; that is the action abstraction's
// job (sdk/solver's actionabs.go), constrained to [MinRaiseTotal,
// MaxRaiseTotal].
func (s State) LegalActions(g *Game) []ActionType {
	if s.IsTerminal(g) {
		return nil
	}
	actions := make([]ActionType, 0, 3)
	if s.ToCall() > 0 {
		actions = append(actions, Fold, Call)
	} else {
		actions = append(actions, Call) // check
	}
	if s.raisesAllowed(g) {
		actions = append(actions, Raise)
	}
	return actions
}

// Do applies an action and returns the resulting state. The caller must
// have validated a applies the action abstraction's legal choice for s.
func (s State) Do(g *Game, a Action) State {
	next := s
	switch a.Type {
	case Fold:
		next.Folded[s.Acting] = true
	case Call:
		toCall := s.ToCall()
		next.RoundBet[s.Acting] += toCall
		next.Spent[s.Acting] += toCall
	case Raise:
		add := a.Size - s.RoundBet[s.Acting]
		next.RoundBet[s.Acting] = a.Size
		next.Spent[s.Acting] += add
		next.NumRaises++
		next.NumActed = 0
	}
	next.NumActed++

	if next.numActive(g) == 1 {
		next.Acting = -1
		return next
	}

	if roundDone(g, next) {
		if next.Round == g.NumRounds-1 {
			next.Acting = -1
			return next
		}
		next.Round++
		next.NumActed = 0
		next.NumRaises = 0
		for p := 0; p < MaxPlayers; p++ {
			next.RoundBet[p] = 0
		}
		next.Acting = firstActiveFrom(g, next, g.FirstPlayer[next.Round])
		return next
	}

	next.Acting = nextActive(g, next, s.Acting)
	return next
}

// roundDone reports whether every player still in the hand has matched the
// current bet and acted at least once since the last raise.
func roundDone(g *Game, s State) bool {
	bet := s.currentBet()
	acted := 0
	for p := 0; p < g.NumPlayers; p++ {
		if s.Folded[p] {
			continue
		}
		if s.RoundBet[p] != bet {
			return false
		}
		acted++
	}
	return s.NumActed >= acted
}

func nextActive(g *Game, s State, from int) int {
	for i := 1; i <= g.NumPlayers; i++ {
		p := (from + i) % g.NumPlayers
		if !s.Folded[p] {
			return p
		}
	}
	return -1
}

func firstActiveFrom(g *Game, s State, first int) int {
	if !s.Folded[first] {
		return first
	}
	return nextActive(g, s, first)
}
