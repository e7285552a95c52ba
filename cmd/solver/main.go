package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/purecfr/internal/dashboard"
	"github.com/lox/purecfr/internal/game"
	"github.com/lox/purecfr/internal/playerfile"
	"github.com/lox/purecfr/sdk/solver"
)

var cli struct {
	Debug     bool   `help:"enable debug logging"`
	LogFormat string `help:"log output format" enum:"console,json" default:"console"`

	Train     TrainCmd     `cmd:"" help:"train a Pure CFR strategy for a game"`
	WidenDump WidenDumpCmd `cmd:"" name:"widen-dump" help:"re-dump a checkpoint with a wider average-strategy width, recovering from an overflow"`
	Inspect   InspectCmd   `cmd:"" help:"report how much of a round's bucket space a checkpoint actually visited"`
}

// InspectCmd reports, per round, how many of the B_r buckets the Null card
// abstraction allocates actually saw any regret activity during training.
// The Null abstraction's base-deckSize encoding (cardabs.go) allocates B_r
// as an upper bound on card combinations, not a visited-set guarantee, so
// a long-running Null-abstraction game can have a bucket space the tree
// walk only sparsely touches; this is the diagnostic solver.BucketIndex
// exists to answer.
type InspectCmd struct {
	GameFile string `arg:"" help:"path to the game-definition file"`
	Prefix   string `arg:"" help:"checkpoint prefix to inspect"`

	CardAbs   string `help:"card abstraction the checkpoint was trained with" enum:"NULL,BLIND" default:"NULL"`
	ActionAbs string `help:"action abstraction the checkpoint was trained with" enum:"NULL,FCPA" default:"NULL"`
}

func (cmd *InspectCmd) Run(ctx context.Context) error {
	f, err := os.Open(cmd.GameFile)
	if err != nil {
		return fmt.Errorf("open game file: %w", err)
	}
	defer f.Close()
	g, err := game.ParseGame(f)
	if err != nil {
		return fmt.Errorf("parse game file: %w", err)
	}

	cardAbsType, err := solver.ParseCardAbsType(cmd.CardAbs)
	if err != nil {
		return err
	}
	actionAbsType, err := solver.ParseActionAbsType(cmd.ActionAbs)
	if err != nil {
		return err
	}
	cardAbs := solver.NewCardAbstraction(cardAbsType)
	actionAbs := solver.NewActionAbstraction(actionAbsType)

	_, sizes, err := solver.BuildTree(g, actionAbs)
	if err != nil {
		return fmt.Errorf("rebuild tree: %w", err)
	}

	numPerBucket := make([]int, g.NumRounds)
	totals := make([]int, g.NumRounds)
	numBuckets := make([]int, g.NumRounds)
	for r := 0; r < g.NumRounds; r++ {
		numPerBucket[r] = int(sizes[r])
		numBuckets[r] = cardAbs.NumBuckets(g, r)
		totals[r] = numBuckets[r] * numPerBucket[r]
	}

	regrets, mapped, err := solver.LoadBorrowedRegrets(cmd.Prefix+".regrets", numPerBucket, totals)
	if err != nil {
		return fmt.Errorf("load regret dump: %w", err)
	}
	defer mapped.Close()

	for r, re := range regrets {
		idx, err := solver.BuildBucketIndexFromRegrets(re, numBuckets[r])
		if err != nil {
			return fmt.Errorf("round %d: build bucket index: %w", r, err)
		}
		log.Info().
			Int("round", r).
			Int("visited_buckets", idx.Len()).
			Int("allocated_buckets", numBuckets[r]).
			Msg("bucket coverage")
	}
	return nil
}

// WidenDumpCmd is the overflow recovery path: an operator who hits an
// average-strategy wraparound (OverflowError) on some round reloads the
// last good checkpoint under a widened per-round table and re-dumps it,
// rather than discarding the run.
type WidenDumpCmd struct {
	GameFile  string `arg:"" help:"path to the game-definition file"`
	InPrefix  string `arg:"" help:"checkpoint prefix to widen"`
	OutPrefix string `arg:"" help:"checkpoint prefix to write the widened dump to"`

	CardAbs   string `help:"card abstraction the checkpoint was trained with" enum:"NULL,BLIND" default:"NULL"`
	ActionAbs string `help:"action abstraction the checkpoint was trained with" enum:"NULL,FCPA" default:"NULL"`
	OldWidths string `help:"comma-separated old per-round widths (uint8,uint32,uint64)" required:""`
	NewWidths string `help:"comma-separated new per-round widths (uint8,uint32,uint64)" required:""`
}

func (cmd *WidenDumpCmd) Run(ctx context.Context) error {
	f, err := os.Open(cmd.GameFile)
	if err != nil {
		return fmt.Errorf("open game file: %w", err)
	}
	defer f.Close()
	g, err := game.ParseGame(f)
	if err != nil {
		return fmt.Errorf("parse game file: %w", err)
	}

	cardAbs, err := solver.ParseCardAbsType(cmd.CardAbs)
	if err != nil {
		return err
	}
	actionAbs, err := solver.ParseActionAbsType(cmd.ActionAbs)
	if err != nil {
		return err
	}

	oldWidths, err := parseAvgWidths(cmd.OldWidths, g.NumRounds)
	if err != nil {
		return fmt.Errorf("--old-widths: %w", err)
	}
	newWidths, err := parseAvgWidths(cmd.NewWidths, g.NumRounds)
	if err != nil {
		return fmt.Errorf("--new-widths: %w", err)
	}

	abs := solver.AbstractionConfig{CardAbs: cardAbs, ActionAbs: actionAbs}
	if err := solver.WidenAvgStrategyDump(g, abs, game.HighCard, oldWidths, newWidths, cmd.InPrefix, cmd.OutPrefix); err != nil {
		return err
	}
	log.Info().Str("in", cmd.InPrefix).Str("out", cmd.OutPrefix).Msg("widened average-strategy dump")
	return nil
}

func parseAvgWidths(spec string, numRounds int) (solver.AvgWidths, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != numRounds {
		return nil, fmt.Errorf("expected %d comma-separated widths, got %d", numRounds, len(parts))
	}
	widths := make(solver.AvgWidths, numRounds)
	for i, p := range parts {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "uint8":
			widths[i] = solver.TypeUint8
		case "uint32":
			widths[i] = solver.TypeUint32
		case "uint64":
			widths[i] = solver.TypeUint64
		default:
			return nil, fmt.Errorf("unknown width %q, expected uint8/uint32/uint64", p)
		}
	}
	return widths, nil
}

type TrainCmd struct {
	GameFile     string `arg:"" help:"path to the game-definition file"`
	OutputPrefix string `arg:"" help:"checkpoint filename prefix"`

	Config       string `help:"load options from a player-style config file"`
	RNG          string `help:"s1:s2:s3:s4, or TIME to seed from wallclock" default:"TIME"`
	CardAbs      string `help:"card abstraction" enum:"NULL,BLIND" default:"NULL"`
	ActionAbs    string `help:"action abstraction" enum:"NULL,FCPA" default:"NULL"`
	LoadDump     string `help:"resume from checkpoint prefix"`
	Threads      int    `help:"number of worker threads" default:"1"`
	Status       string `help:"status interval dd:hh:mm:ss, or plain seconds" default:"60"`
	Checkpoint   string `help:"checkpoint schedule start[,mult[,add]]" default:"60,2,0"`
	MaxWalltime  string `help:"quit deadline dd:hh:mm:ss, or plain seconds" default:"0"`
	NoAverage    bool   `help:"disable average-strategy tracking"`
	Dashboard    bool   `help:"show a live bubbletea status dashboard instead of status log lines"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("train"),
		kong.Description("Pure CFR self-play solver"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug, cli.LogFormat)

	switch ctx.Command() {
	case "train <game-file> <output-prefix>":
		if err := cli.Train.Run(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("training failed")
		}
	case "widen-dump <game-file> <in-prefix> <out-prefix>":
		if err := cli.WidenDump.Run(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("widen-dump failed")
		}
	case "inspect <game-file> <prefix>":
		if err := cli.Inspect.Run(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("inspect failed")
		}
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
}

func setupLogger(debug bool, format string) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	var w zerolog.ConsoleWriter
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
		return
	}
	w = zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = log.Output(w).Level(level)
}

func setupSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (cmd *TrainCmd) Run(ctx context.Context) error {
	ctx, cancel := setupSignalHandler(ctx)
	defer cancel()

	if cmd.Config != "" {
		if err := cmd.applyConfigFile(); err != nil {
			return err
		}
	}

	f, err := os.Open(cmd.GameFile)
	if err != nil {
		return fmt.Errorf("open game file: %w", err)
	}
	defer f.Close()
	g, err := game.ParseGame(f)
	if err != nil {
		return fmt.Errorf("parse game file: %w", err)
	}

	cardAbs, err := solver.ParseCardAbsType(cmd.CardAbs)
	if err != nil {
		return err
	}
	actionAbs, err := solver.ParseActionAbsType(cmd.ActionAbs)
	if err != nil {
		return err
	}

	seeds, err := parseRNGSeeds(cmd.RNG)
	if err != nil {
		return err
	}

	statusSecs, err := parseDurationSpec(cmd.Status)
	if err != nil {
		return fmt.Errorf("parse --status: %w", err)
	}
	maxWalltime, err := parseDurationSpec(cmd.MaxWalltime)
	if err != nil {
		return fmt.Errorf("parse --max-walltime: %w", err)
	}
	dumpTimer, err := parseCheckpointSpec(cmd.Checkpoint)
	if err != nil {
		return fmt.Errorf("parse --checkpoint: %w", err)
	}

	trainCfg := solver.TrainingConfig{
		GameFile:     cmd.GameFile,
		OutputPrefix: cmd.OutputPrefix,
		RNGSeeds:     seeds,
		Abstraction:  solver.AbstractionConfig{CardAbs: cardAbs, ActionAbs: actionAbs},
		NumThreads:   cmd.Threads,
		StatusFreqSeconds: int(statusSecs),
		DumpTimer:    dumpTimer,
		MaxWalltimeSeconds: int(maxWalltime),
		DoAverage:    !cmd.NoAverage,
		LoadDumpPrefix: cmd.LoadDump,
	}
	if err := trainCfg.Validate(g.NumPlayers); err != nil {
		return err
	}

	engine, err := solver.NewEngine(g, trainCfg.Abstraction, trainCfg.DoAverage, nil, game.HighCard)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if cmd.LoadDump != "" {
		if err := solver.LoadDump(engine, cmd.LoadDump); err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		log.Info().Str("prefix", cmd.LoadDump).Msg("resumed from checkpoint")
	}

	trainer := solver.NewTrainer(engine, trainCfg, log.Logger)

	var runErr error
	if cmd.Dashboard {
		group, gctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			// Stop the dashboard once training ends on its own (max-walltime).
			defer cancel()
			return trainer.Run(gctx)
		})
		group.Go(func() error { return dashboard.Run(gctx, cmd.OutputPrefix, cancel, trainer) })
		runErr = group.Wait()
	} else {
		runErr = trainer.Run(ctx)
	}

	if runErr != nil {
		if overflow := trainer.Overflow(); overflow != nil {
			return overflow
		}
		if ctx.Err() != nil {
			log.Info().Msg("shutting down")
			return nil
		}
		return runErr
	}
	return nil
}

func (cmd *TrainCmd) applyConfigFile() error {
	f, err := os.Open(cmd.Config)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	pf, err := playerfile.Parse(f)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	cmd.GameFile = pf.GameFile
	cmd.OutputPrefix = pf.BinaryFilenamePrefix
	cmd.CardAbs = pf.CardAbstraction
	cmd.ActionAbs = pf.ActionAbstraction
	cmd.Threads = pf.NumThreads
	cmd.Status = strconv.Itoa(pf.StatusFreqSeconds)
	cmd.Checkpoint = fmt.Sprintf("%d,%d,%d", pf.DumpTimerStart, pf.DumpTimerMult, pf.DumpTimerAdd)
	cmd.MaxWalltime = strconv.Itoa(pf.MaxWalltimeSeconds)
	cmd.NoAverage = !pf.DoAverage
	cmd.LoadDump = pf.LoadDumpPrefix
	cmd.RNG = fmt.Sprintf("%d:%d:%d:%d", pf.RNGSeeds[0], pf.RNGSeeds[1], pf.RNGSeeds[2], pf.RNGSeeds[3])
	return nil
}

func parseRNGSeeds(spec string) ([4]uint32, error) {
	if spec == "TIME" || spec == "" {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		return [4]uint32{r.Uint32(), r.Uint32(), r.Uint32(), r.Uint32()}, nil
	}
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return [4]uint32{}, fmt.Errorf("--rng expects s1:s2:s3:s4 or TIME, got %q", spec)
	}
	var seeds [4]uint32
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return [4]uint32{}, fmt.Errorf("--rng: %w", err)
		}
		seeds[i] = uint32(v)
	}
	return seeds, nil
}

// parseDurationSpec accepts either a plain integer number of seconds or the
// dd:hh:mm:ss form used by --status and --max-walltime.
func parseDurationSpec(spec string) (int64, error) {
	if !strings.Contains(spec, ":") {
		return strconv.ParseInt(spec, 10, 64)
	}
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("expected dd:hh:mm:ss, got %q", spec)
	}
	var total int64
	mult := []int64{86400, 3600, 60, 1}
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, err
		}
		total += v * mult[i]
	}
	return total, nil
}

func parseCheckpointSpec(spec string) (solver.DumpTimer, error) {
	parts := strings.Split(spec, ",")
	vals := []int{60, 2, 0}
	for i, p := range parts {
		if i >= 3 {
			break
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return solver.DumpTimer{}, fmt.Errorf("--checkpoint: %w", err)
		}
		vals[i] = v
	}
	return solver.DumpTimer{SecondsStart: vals[0], SecondsMult: vals[1], SecondsAdd: vals[2]}, nil
}
