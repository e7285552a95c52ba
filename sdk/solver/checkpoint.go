package solver

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lox/purecfr/internal/game"
)

// DumpFilename formats a checkpoint filename carrying the iteration and
// work-second counters: "P.iter-<N>.secs-<S>", with <N> abbreviated by
// unit suffix (k/m/b for multiples of 1e3/1e6/1e9) when it divides evenly.
// This lets the driver recover elapsed state from a filename alone.
func DumpFilename(prefix string, iterations, workSeconds int64) string {
	return fmt.Sprintf("%s.iter-%s.secs-%d", prefix, formatCount(iterations), workSeconds)
}

func formatCount(n int64) string {
	switch {
	case n != 0 && n%1_000_000_000 == 0:
		return fmt.Sprintf("%db", n/1_000_000_000)
	case n != 0 && n%1_000_000 == 0:
		return fmt.Sprintf("%dm", n/1_000_000)
	case n != 0 && n%1_000 == 0:
		return fmt.Sprintf("%dk", n/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// WriteDump persists the engine's entry stores under prefix: prefix.regrets,
// prefix.avg-strategy (if average tracking is on), and prefix.player. The
// caller must already hold the pause barrier; no locking happens here.
func WriteDump(e *Engine, cfg TrainingConfig, prefix string) error {
	if err := writeEntryFile(prefix+".regrets", func(w *bufio.Writer) error {
		for _, re := range e.Regrets {
			if err := re.Write(w); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("solver: writing regret dump: %w", err)
	}

	if e.AvgStrategy != nil {
		if err := writeEntryFile(prefix+".avg-strategy", func(w *bufio.Writer) error {
			for _, ae := range e.AvgStrategy {
				if err := ae.Write(w); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return fmt.Errorf("solver: writing average-strategy dump: %w", err)
		}
	}

	if err := writePlayerHeader(cfg, prefix); err != nil {
		return fmt.Errorf("solver: writing player header: %w", err)
	}
	return nil
}

// writeEntryFile writes to a temp file in the same directory and renames
// into place, so a crash mid-write never leaves a half-written dump at the
// final path.
func writeEntryFile(path string, write func(w *bufio.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadDump reads prefix.regrets and (if present and enabled)
// prefix.avg-strategy into a freshly constructed engine. The engine's game
// and abstractions must already match what produced the dump, so round
// sizes line up exactly; a type-tag mismatch fails loudly.
func LoadDump(e *Engine, prefix string) error {
	rf, err := os.Open(prefix + ".regrets")
	if err != nil {
		return fmt.Errorf("solver: opening regret dump: %w", err)
	}
	defer rf.Close()
	br := bufio.NewReader(rf)
	for _, re := range e.Regrets {
		if err := re.Load(br); err != nil {
			return fmt.Errorf("solver: loading regret dump: %w", err)
		}
	}

	if e.AvgStrategy != nil {
		af, err := os.Open(prefix + ".avg-strategy")
		if err != nil {
			return fmt.Errorf("solver: opening average-strategy dump: %w", err)
		}
		defer af.Close()
		ba := bufio.NewReader(af)
		for _, ae := range e.AvgStrategy {
			if err := ae.Load(ba); err != nil {
				return fmt.Errorf("solver: loading average-strategy dump: %w", err)
			}
		}
	}
	return nil
}

// WidenAvgStrategyDump reloads an average-strategy checkpoint built under
// oldWidths and re-dumps it under newWidths, rewriting the regret file
// unchanged (its width is fixed). This is the recovery path the overflow
// message in walk.go points operators at: a round that hit an
// average-strategy wraparound can be widened and resumed instead of
// restarting the run from scratch. Narrowing any round is rejected.
func WidenAvgStrategyDump(g *game.Game, abs AbstractionConfig, rank game.RankFunc, oldWidths, newWidths AvgWidths, prefix, outPrefix string) error {
	if len(oldWidths) != g.NumRounds || len(newWidths) != g.NumRounds {
		return fmt.Errorf("solver: widen: expected %d widths, got %d old, %d new", g.NumRounds, len(oldWidths), len(newWidths))
	}
	for r := range oldWidths {
		if newWidths[r] < oldWidths[r] {
			return fmt.Errorf("solver: widen: round %d would narrow from %s to %s", r, oldWidths[r], newWidths[r])
		}
	}

	oldEngine, err := NewEngine(g, abs, true, oldWidths, rank)
	if err != nil {
		return fmt.Errorf("solver: widen: building source engine: %w", err)
	}
	if err := LoadDump(oldEngine, prefix); err != nil {
		return fmt.Errorf("solver: widen: loading source dump: %w", err)
	}

	newEngine, err := NewEngine(g, abs, true, newWidths, rank)
	if err != nil {
		return fmt.Errorf("solver: widen: building target engine: %w", err)
	}
	newEngine.Regrets = oldEngine.Regrets

	for r := range oldEngine.AvgStrategy {
		vals := oldEngine.AvgStrategy[r].ExportValues()
		if err := newEngine.AvgStrategy[r].ImportValues(vals); err != nil {
			return fmt.Errorf("solver: widen: round %d: %w", r, err)
		}
	}

	cfg := TrainingConfig{OutputPrefix: outPrefix, Abstraction: abs, NumThreads: 1, DoAverage: true}
	return WriteDump(newEngine, cfg, outPrefix)
}

// writePlayerHeader writes prefix.player: one keyword-per-line parameter,
// PLAYER_END-terminated, the same grammar the player-file loader reads
// (internal/playerfile).
func writePlayerHeader(cfg TrainingConfig, prefix string) error {
	return writeEntryFile(prefix+".player", func(w *bufio.Writer) error {
		fmt.Fprintf(w, "GAME_FILE %s\n", cfg.GameFile)
		fmt.Fprintf(w, "OUTPUT_PREFIX %s\n", cfg.OutputPrefix)
		fmt.Fprintf(w, "RNG_SEEDS %d %d %d %d\n", cfg.RNGSeeds[0], cfg.RNGSeeds[1], cfg.RNGSeeds[2], cfg.RNGSeeds[3])
		fmt.Fprintf(w, "CARD_ABSTRACTION %s\n", cfg.Abstraction.CardAbs)
		fmt.Fprintf(w, "ACTION_ABSTRACTION %s\n", cfg.Abstraction.ActionAbs)
		fmt.Fprintf(w, "NUM_THREADS %d\n", cfg.NumThreads)
		fmt.Fprintf(w, "STATUS_FREQ_SECONDS %d\n", cfg.StatusFreqSeconds)
		fmt.Fprintf(w, "DUMP_TIMER %d %d %d\n", cfg.DumpTimer.SecondsStart, cfg.DumpTimer.SecondsMult, cfg.DumpTimer.SecondsAdd)
		fmt.Fprintf(w, "MAX_WALLTIME_SECONDS %d\n", cfg.MaxWalltimeSeconds)
		if cfg.DoAverage {
			fmt.Fprintf(w, "DO_AVERAGE TRUE\n")
		} else {
			fmt.Fprintf(w, "DO_AVERAGE FALSE\n")
		}
		fmt.Fprintf(w, "BINARY_FILENAME_PREFIX %s\n", prefix)
		if cfg.LoadDumpPrefix != "" {
			fmt.Fprintf(w, "LOAD_DUMP_PREFIX %s\n", cfg.LoadDumpPrefix)
		}
		if cfg.Verbose {
			fmt.Fprintf(w, "VERBOSE TRUE\n")
		}
		fmt.Fprintf(w, "PLAYER_END\n")
		return nil
	})
}
