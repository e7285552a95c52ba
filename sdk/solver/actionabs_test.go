package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/purecfr/internal/game"
)

func limitToyGame() *game.Game {
	return &game.Game{
		NumPlayers:    2,
		NumRounds:     1,
		NumSuits:      1,
		NumRanks:      4,
		NumHoleCards:  1,
		NumBoardCards: []int{0},
		Betting:       game.Limit,
		StackSize:     100,
		BlindSize:     []int{1, 2},
		FirstPlayer:   []int{0},
		RaiseSize:     []int{2},
		MaxRaises:     []int{2},
	}
}

func noLimitToyGame() *game.Game {
	g := limitToyGame()
	g.Betting = game.NoLimit
	g.StackSize = 200
	return g
}

func TestNullActionAbstractionLimitEmitsOneRaisePerLegalSize(t *testing.T) {
	g := limitToyGame()
	s := game.NewState(g)
	abs := nullActionAbstraction{}
	actions, err := abs.GetActions(g, s)
	require.NoError(t, err)

	var raises int
	for _, a := range actions {
		if a.Type == game.Raise {
			raises++
		}
	}
	require.Equal(t, 1, raises, "limit games have exactly one legal raise size")
}

func TestFCPAEmitsAtMostFourActions(t *testing.T) {
	g := noLimitToyGame()
	s := game.NewState(g)
	abs := fcpaAbstraction{}
	actions, err := abs.GetActions(g, s)
	require.NoError(t, err)
	require.LessOrEqual(t, len(actions), MaxAbstractActions)

	var hasAllIn bool
	for _, a := range actions {
		if a.Type == game.Raise && a.Size == s.MaxRaiseTotal(g) {
			hasAllIn = true
		}
	}
	require.True(t, hasAllIn, "FCPA must always include all-in when a raise is legal")
}

func TestFCPAOmitsPotRaiseWhenNotStrictlyBelowMax(t *testing.T) {
	g := noLimitToyGame()
	g.StackSize = 3 // pot-raise formula will exceed this tiny stack
	s := game.NewState(g)
	abs := fcpaAbstraction{}
	actions, err := abs.GetActions(g, s)
	require.NoError(t, err)

	maxRaise := s.MaxRaiseTotal(g)
	var raiseSizes []int
	for _, a := range actions {
		if a.Type == game.Raise {
			raiseSizes = append(raiseSizes, a.Size)
		}
	}
	require.Contains(t, raiseSizes, maxRaise)
	for _, size := range raiseSizes {
		require.LessOrEqual(t, size, maxRaise)
	}
}

func TestNullActionAbstractionOverflowsPastAMax(t *testing.T) {
	g := noLimitToyGame()
	g.StackSize = 10_000 // wide enough no-limit range to blow past A_max
	s := game.NewState(g)
	abs := nullActionAbstraction{}
	_, err := abs.GetActions(g, s)
	require.Error(t, err, "expected a fatal A_max overflow for a wide-open no-limit range")
}
