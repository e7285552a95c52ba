package solver

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/purecfr/internal/game"
)

func TestFormatCountAppliesUnitSuffixes(t *testing.T) {
	require.Equal(t, "p.iter-1k.secs-5", DumpFilename("p", 1_000, 5))
	require.Equal(t, "p.iter-2m.secs-5", DumpFilename("p", 2_000_000, 5))
	require.Equal(t, "p.iter-3b.secs-5", DumpFilename("p", 3_000_000_000, 5))
	require.Equal(t, "p.iter-7.secs-5", DumpFilename("p", 7, 5))
}

func TestDumpTimerNextFollowsScheduleFormula(t *testing.T) {
	d := DumpTimer{SecondsStart: 60, SecondsMult: 2, SecondsAdd: 0}
	next := d.Next(60, 10)
	require.Equal(t, 120, next)

	// A burst of elapsed work time must still push the schedule forward.
	next = d.Next(60, 500)
	require.Equal(t, 501, next)
}

func TestWriteDumpLoadDumpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run1")

	g := limitToyGame()
	abs := AbstractionConfig{CardAbs: CardAbsNull, ActionAbs: ActionAbsNull}
	e, err := NewEngine(g, abs, true, nil, game.HighCard)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(6, 12))
	for i := 0; i < 20; i++ {
		require.NoError(t, e.RunIteration(rng))
	}

	cfg := TrainingConfig{
		GameFile:           "toy.game",
		OutputPrefix:       prefix,
		RNGSeeds:           [4]uint32{6, 12, 1983, 28},
		Abstraction:        abs,
		NumThreads:         1,
		StatusFreqSeconds:  60,
		DumpTimer:          DumpTimer{SecondsStart: 60, SecondsMult: 2, SecondsAdd: 0},
		MaxWalltimeSeconds: 3600,
		DoAverage:          true,
	}
	require.NoError(t, WriteDump(e, cfg, prefix))

	for _, suffix := range []string{".regrets", ".avg-strategy", ".player"} {
		_, err := os.Stat(prefix + suffix)
		require.NoError(t, err, "expected %s to exist", suffix)
	}

	reloaded, err := NewEngine(g, abs, true, nil, game.HighCard)
	require.NoError(t, err)
	require.NoError(t, LoadDump(reloaded, prefix))

	for r := range e.Regrets {
		require.Equal(t, e.Regrets[r].data, reloaded.Regrets[r].data)
	}
}

func TestWriteDumpIsAtomicNoStrayTempFiles(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run1")

	g := limitToyGame()
	abs := AbstractionConfig{CardAbs: CardAbsNull, ActionAbs: ActionAbsNull}
	e, err := NewEngine(g, abs, false, nil, game.HighCard)
	require.NoError(t, err)

	cfg := TrainingConfig{
		GameFile:           "toy.game",
		OutputPrefix:       prefix,
		Abstraction:        abs,
		NumThreads:         1,
		StatusFreqSeconds:  60,
		DumpTimer:          DumpTimer{SecondsStart: 60, SecondsMult: 2, SecondsAdd: 0},
		MaxWalltimeSeconds: 3600,
	}
	require.NoError(t, WriteDump(e, cfg, prefix))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, ent := range entries {
		require.NotContains(t, ent.Name(), ".tmp-")
	}
}

func TestWidenAvgStrategyDumpPreservesCountsUnderWiderType(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run1")
	widened := filepath.Join(dir, "run1-widened")

	g := limitToyGame()
	abs := AbstractionConfig{CardAbs: CardAbsNull, ActionAbs: ActionAbsNull}
	oldWidths := AvgWidths{TypeUint8}
	e, err := NewEngine(g, abs, true, oldWidths, game.HighCard)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(6, 12))
	for i := 0; i < 30; i++ {
		require.NoError(t, e.RunIteration(rng))
	}

	cfg := TrainingConfig{OutputPrefix: prefix, Abstraction: abs, NumThreads: 1, DoAverage: true}
	require.NoError(t, WriteDump(e, cfg, prefix))

	newWidths := AvgWidths{TypeUint64}
	require.NoError(t, WidenAvgStrategyDump(g, abs, game.HighCard, oldWidths, newWidths, prefix, widened))

	reloaded, err := NewEngine(g, abs, true, newWidths, game.HighCard)
	require.NoError(t, err)
	require.NoError(t, LoadDump(reloaded, widened))

	require.Equal(t, e.AvgStrategy[0].ExportValues(), reloaded.AvgStrategy[0].ExportValues())
	require.Equal(t, TypeUint64, reloaded.AvgStrategy[0].EntryType())
}

func TestWidenAvgStrategyDumpRejectsNarrowing(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run1")

	g := limitToyGame()
	abs := AbstractionConfig{CardAbs: CardAbsNull, ActionAbs: ActionAbsNull}
	oldWidths := AvgWidths{TypeUint64}
	e, err := NewEngine(g, abs, true, oldWidths, game.HighCard)
	require.NoError(t, err)

	cfg := TrainingConfig{OutputPrefix: prefix, Abstraction: abs, NumThreads: 1, DoAverage: true}
	require.NoError(t, WriteDump(e, cfg, prefix))

	err = WidenAvgStrategyDump(g, abs, game.HighCard, oldWidths, AvgWidths{TypeUint8}, prefix, filepath.Join(dir, "out"))
	require.Error(t, err)
}

func TestLoadDumpFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	g := limitToyGame()
	abs := AbstractionConfig{CardAbs: CardAbsNull, ActionAbs: ActionAbsNull}
	e, err := NewEngine(g, abs, false, nil, game.HighCard)
	require.NoError(t, err)
	err = LoadDump(e, filepath.Join(dir, "missing"))
	require.Error(t, err)
}
