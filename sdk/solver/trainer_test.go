package solver

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestTrainer(numThreads int) *Trainer {
	cfg := TrainingConfig{NumThreads: numThreads}
	return NewTrainer(&Engine{}, cfg, zerolog.Nop())
}

func TestTrainerTotalIterationsSumsWorkerCounts(t *testing.T) {
	tr := newTestTrainer(3)
	tr.counts[0].Store(1000)
	tr.counts[1].Store(2000)
	tr.counts[2].Store(3000)
	require.Equal(t, int64(6000), tr.totalIterations())
}

func TestTrainerAllPausedRequiresEveryWorker(t *testing.T) {
	tr := newTestTrainer(2)
	require.False(t, tr.allPaused())
	tr.paused[0].Store(true)
	require.False(t, tr.allPaused())
	tr.paused[1].Store(true)
	require.True(t, tr.allPaused())
}

func TestTrainerOverflowNilUntilStored(t *testing.T) {
	tr := newTestTrainer(1)
	require.Nil(t, tr.Overflow())
	tr.overflow.Store(&OverflowError{Round: 2, Bucket: 1})
	require.NotNil(t, tr.Overflow())
	require.Equal(t, 2, tr.Overflow().Round)
}

// TestTrainerMaxWalltimeFinalCheckpointStopsWorkers drives the coordinator
// with a mock clock past MaxWalltimeSeconds and checks the quit sequencing:
// quit is latched before the final checkpoint, so the iteration count baked
// into the dump filename must equal the total after Run returns, i.e. no
// worker ran anything after the final dump.
func TestTrainerMaxWalltimeFinalCheckpointStopsWorkers(t *testing.T) {
	e := newTestEngine(t, limitToyGame(), false)
	cfg := TrainingConfig{
		OutputPrefix:       "mem",
		NumThreads:         1,
		StatusFreqSeconds:  3600,
		DumpTimer:          DumpTimer{SecondsStart: 3600, SecondsMult: 2},
		MaxWalltimeSeconds: 2,
	}
	tr := NewTrainer(e, cfg, zerolog.Nop())
	mock := quartz.NewMock(t)
	tr.Clock = mock

	var dumps int
	var itersAtDump int64
	var prefixAtDump string
	tr.dump = func(prefix string) error {
		dumps++
		itersAtDump = tr.totalIterations()
		prefixAtDump = prefix
		return nil
	}

	trap := mock.Trap().TickerFunc()
	defer trap.Close()

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	trap.MustWait(ctx).Release()
	mock.Advance(time.Second).MustWait(ctx) // tick 1: under the deadline
	mock.Advance(time.Second).MustWait(ctx) // tick 2: quit + final dump

	require.NoError(t, <-done)
	require.Equal(t, 1, dumps)
	require.Equal(t, DumpFilename("mem", itersAtDump, 2), prefixAtDump)
	require.Equal(t, itersAtDump, tr.totalIterations(),
		"no iterations may be counted after the final dump")
}

// TestTrainerCheckpointBarrierFreezesWorkers crosses a DumpTimer schedule
// point under a mock clock and observes, from inside the dump itself, that
// every worker had parked before the dump started and that no counter
// advanced while the barrier held.
func TestTrainerCheckpointBarrierFreezesWorkers(t *testing.T) {
	e := newTestEngine(t, limitToyGame(), false)
	cfg := TrainingConfig{
		OutputPrefix:      "mem",
		NumThreads:        2,
		StatusFreqSeconds: 3600,
		DumpTimer:         DumpTimer{SecondsStart: 1, SecondsMult: 2},
	}
	tr := NewTrainer(e, cfg, zerolog.Nop())
	mock := quartz.NewMock(t)
	tr.Clock = mock

	var dumps int
	var sawAllPaused, countsFrozen bool
	tr.dump = func(prefix string) error {
		dumps++
		sawAllPaused = tr.allPaused()
		before := tr.totalIterations()
		time.Sleep(20 * time.Millisecond)
		countsFrozen = tr.totalIterations() == before
		return nil
	}

	trap := mock.Trap().TickerFunc()
	defer trap.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	trap.MustWait(ctx).Release()
	mock.Advance(time.Second).MustWait(ctx) // tick 1 crosses SecondsStart

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, 1, dumps)
	require.True(t, sawAllPaused, "the dump must not start until every worker has parked")
	require.True(t, countsFrozen, "no worker counter may advance while the barrier holds")
}
