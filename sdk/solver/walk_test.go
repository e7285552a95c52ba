package solver

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/purecfr/internal/game"
)

// TestSampleChoiceRespectsCumulativeBuckets checks that the dart always
// lands in the bucket whose cumulative positive-value range contains it,
// never past the end.
func TestSampleChoiceRespectsCumulativeBuckets(t *testing.T) {
	posValues := []int64{2, 0, 3} // cumulative: [0,2) -> 0, [2,2) empty, [2,5) -> 2
	sum := uint64(5)

	seen := map[int]bool{}
	for seed := uint64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed^1))
		c := sampleChoice(posValues, sum, rng)
		require.Contains(t, []int{0, 2}, c, "a zero-weight bucket must never be sampled")
		seen[c] = true
	}
	require.Len(t, seen, 2, "both positive-weight buckets should appear across many draws")
}

func TestSampleChoiceSingleChoiceAlwaysPicksIt(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 9))
	c := sampleChoice([]int64{4}, 4, rng)
	require.Equal(t, 0, c)
}

func TestOverflowErrorMessageNamesCoordinates(t *testing.T) {
	err := &OverflowError{Round: 1, Bucket: 2, SolnIdx: 3, Choice: 4}
	msg := err.Error()
	require.Contains(t, msg, "round 1")
	require.Contains(t, msg, "bucket 2")
}

func TestEngineWalkUpdatesRegretsForActingPlayer(t *testing.T) {
	e := newTestEngine(t, limitToyGame(), false)
	rng := rand.New(rand.NewPCG(6, 12))

	err := e.RunIteration(rng)
	require.NoError(t, err)

	var touched bool
	for _, v := range e.Regrets[0].data {
		if v != 0 {
			touched = true
			break
		}
	}
	require.True(t, touched, "at least one regret entry should move after an iteration")
}

func TestEngineWalkIncrementsAverageStrategyForOpponentChoices(t *testing.T) {
	e := newTestEngine(t, limitToyGame(), true)
	rng := rand.New(rand.NewPCG(6, 12))

	for i := 0; i < 50; i++ {
		require.NoError(t, e.RunIteration(rng))
	}

	store := e.AvgStrategy[0]
	numBuckets := nullCardAbstraction{}.NumBuckets(limitToyGame(), 0)
	var total uint64
	for b := 0; b < numBuckets; b++ {
		_, sum := store.GetPositiveValues(b, e.Root.SolnIdx, e.Root.NumChoices)
		total += sum
	}
	require.Greater(t, total, uint64(0), "average strategy counters should accumulate over many iterations")
}

// newTestEngine builds an Engine for the toy games using the Null
// abstractions, with average-strategy tracking optionally enabled.
func newTestEngine(t *testing.T, g *game.Game, doAverage bool) *Engine {
	t.Helper()
	abs := AbstractionConfig{CardAbs: CardAbsNull, ActionAbs: ActionAbsNull}
	e, err := NewEngine(g, abs, doAverage, nil, game.HighCard)
	require.NoError(t, err)
	return e
}
