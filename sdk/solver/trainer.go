package solver

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// iterationBlockSize bounds how many iterations a worker runs between flag
// polls, amortizing the cost of checking doPause/doQuit.
const iterationBlockSize = 1000

// Status is one status-line snapshot, emitted on the configured cadence.
// IterationsPerSecond mirrors the rate original `main.cpp` prints alongside
// its elapsed/remaining estimate; here it's a plain average over work
// seconds rather than a windowed rate.
type Status struct {
	Iterations          int64
	WorkSeconds         int64
	NextDump            int64
	IterationsPerSecond float64
}

// Trainer is the worker coordinator: a thread pool with cooperative
// pause/quit flags, status reporting, and checkpoint scheduling. One
// coordinator goroutine drives the schedule; NumThreads worker goroutines
// run iteration blocks.
type Trainer struct {
	Engine *Engine
	Config TrainingConfig
	Log    zerolog.Logger
	Clock  quartz.Clock

	doPause atomic.Bool
	doQuit  atomic.Bool
	paused  []atomic.Bool
	counts  []atomic.Int64

	dumpingSecs atomic.Int64
	overflow    atomic.Pointer[OverflowError]

	// dump writes a checkpoint under the given prefix; swapped out in tests
	// to observe the pause barrier without touching the filesystem.
	dump func(prefix string) error

	OnStatus func(Status)
}

// NewTrainer constructs a coordinator over an already-built engine.
func NewTrainer(e *Engine, cfg TrainingConfig, log zerolog.Logger) *Trainer {
	t := &Trainer{
		Engine: e,
		Config: cfg,
		Log:    log,
		Clock:  quartz.NewReal(),
		paused: make([]atomic.Bool, cfg.NumThreads),
		counts: make([]atomic.Int64, cfg.NumThreads),
	}
	t.dump = func(prefix string) error {
		return WriteDump(t.Engine, t.Config, prefix)
	}
	return t
}

// Run drives workers and the checkpoint/status schedule until ctx is
// cancelled, max-walltime elapses, or a fatal error (average-strategy
// overflow, I/O failure) occurs.
func (t *Trainer) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	for i := 0; i < t.Config.NumThreads; i++ {
		threadID := i
		group.Go(func() error {
			return t.runWorker(gctx, threadID)
		})
	}

	group.Go(func() error {
		return t.runCoordinator(gctx)
	})

	return group.Wait()
}

func (t *Trainer) runWorker(ctx context.Context, threadID int) error {
	rng := NewFastRand(ThreadSeed(t.Config.RNGSeeds, threadID))
	// A worker counts as paused on every exit path, so the checkpoint
	// barrier can never hang on a worker that has already stopped (quit,
	// cancellation, or a fatal overflow mid-block).
	defer t.paused[threadID].Store(true)
	for {
		if t.doPause.Load() && !t.doQuit.Load() {
			t.paused[threadID].Store(true)
			for t.doPause.Load() && !t.doQuit.Load() {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-t.Clock.After(10 * time.Millisecond):
				}
			}
			t.paused[threadID].Store(false)
		}
		if t.doQuit.Load() {
			return nil
		}

		for i := 0; i < iterationBlockSize; i++ {
			if err := t.Engine.RunIteration(rng); err != nil {
				if overflow, ok := err.(*OverflowError); ok {
					t.overflow.Store(overflow)
					t.doQuit.Store(true)
					return overflow
				}
				return err
			}
		}
		t.counts[threadID].Add(iterationBlockSize)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// totalIterations sums every worker's published counter.
func (t *Trainer) totalIterations() int64 {
	var total int64
	for i := range t.counts {
		total += t.counts[i].Load()
	}
	return total
}

// Overflow returns the fatal average-strategy overflow that stopped
// training, or nil if none occurred.
func (t *Trainer) Overflow() *OverflowError {
	return t.overflow.Load()
}

// allPaused reports whether every worker has observed do_pause.
func (t *Trainer) allPaused() bool {
	for i := range t.paused {
		if !t.paused[i].Load() {
			return false
		}
	}
	return true
}

func (t *Trainer) runCoordinator(ctx context.Context) error {
	start := t.Clock.Now()
	nextStatus := t.Clock.Now().Add(time.Duration(t.Config.StatusFreqSeconds) * time.Second)
	nextDump := int64(t.Config.DumpTimer.SecondsStart)

	tick := t.Clock.TickerFunc(ctx, time.Second, func() error {
		now := t.Clock.Now()
		workSeconds := int64(now.Sub(start)/time.Second) - t.dumpingSecs.Load()

		if t.Config.MaxWalltimeSeconds > 0 && int64(now.Sub(start)/time.Second) >= int64(t.Config.MaxWalltimeSeconds) {
			// Quit is latched before the final checkpoint so workers stop
			// at their next block boundary; the barrier then sees them all
			// parked and no counter can advance after the dump.
			t.doQuit.Store(true)
			if err := t.checkpoint(workSeconds); err != nil {
				return err
			}
			return context.Canceled
		}

		if !now.Before(nextStatus) {
			iterations := t.totalIterations()
			var rate float64
			if workSeconds > 0 {
				rate = float64(iterations) / float64(workSeconds)
			}
			status := Status{Iterations: iterations, WorkSeconds: workSeconds, NextDump: nextDump, IterationsPerSecond: rate}
			if t.OnStatus != nil {
				t.OnStatus(status)
			} else {
				t.Log.Info().
					Int64("iterations", status.Iterations).
					Float64("iterations_per_sec", status.IterationsPerSecond).
					Int64("work_seconds", status.WorkSeconds).
					Int64("next_dump_seconds", status.NextDump).
					Msg("status")
			}
			nextStatus = nextStatus.Add(time.Duration(t.Config.StatusFreqSeconds) * time.Second)
		}

		if workSeconds >= nextDump {
			if err := t.checkpoint(workSeconds); err != nil {
				return err
			}
			nextDump = int64(t.Config.DumpTimer.Next(int(nextDump), int(workSeconds)))
		}
		return nil
	})
	err := tick.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// checkpoint runs the pause barrier: set doPause, wait for every worker to
// observe it, dump, clear doPause. Dump time is tracked and excluded from
// "work seconds" so checkpoint cadence is not skewed by I/O.
func (t *Trainer) checkpoint(workSeconds int64) error {
	dumpStart := t.Clock.Now()

	t.doPause.Store(true)
	// Real-time poll rather than t.Clock: the barrier waits on worker
	// scheduling, not on simulated time, so a mocked clock in tests cannot
	// deadlock it. Every worker exit path stores paused, so this always
	// terminates.
	for !t.allPaused() {
		time.Sleep(time.Millisecond)
	}

	prefix := DumpFilename(t.Config.OutputPrefix, t.totalIterations(), workSeconds)
	err := t.dump(prefix)

	t.dumpingSecs.Add(int64(t.Clock.Now().Sub(dumpStart) / time.Second))
	t.doPause.Store(false)

	if err != nil {
		t.Log.Error().Err(err).Msg("checkpoint write failed")
	}
	return err
}

