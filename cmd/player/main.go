// Command player connects to a dealer server and plays a finished Pure CFR
// strategy. The dealer-network protocol itself is an external
// collaborator; what follows is the minimal client shape the core strategy
// lookup is plugged into: connect, send a version string, then for every
// inbound match-state line append our action when it is our turn to act.
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/lox/purecfr/internal/game"
	"github.com/lox/purecfr/internal/playerfile"
	"github.com/lox/purecfr/sdk/solver"
)

const protocolVersion = "2.0.0"

var cli struct {
	Debug      bool   `help:"enable debug logging"`
	PlayerFile string `arg:"" help:"path to the player file"`
	Host       string `arg:"" help:"dealer host"`
	Port       int    `arg:"" help:"dealer port"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("player"),
		kong.Description("Pure CFR strategy player"),
		kong.UsageOnError(),
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() { <-sigCh; cancel() }()
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Fatal().Err(err).Msg("player failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger) error {
	pf, err := loadPlayerFile(cli.PlayerFile)
	if err != nil {
		return err
	}

	p, err := loadPlayer(pf)
	if err != nil {
		return fmt.Errorf("load strategy: %w", err)
	}
	defer p.Close()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", cli.Host, cli.Port))
	if err != nil {
		return fmt.Errorf("connect to dealer: %w", err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "VERSION:%s\r\n", protocolVersion); err != nil {
		return fmt.Errorf("send version: %w", err)
	}

	seed := uint64(time.Now().UnixNano())
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || !strings.HasPrefix(line, "MATCHSTATE:") {
			continue
		}

		state, err := parseMatchState(p.Game, line)
		if err != nil {
			logger.Warn().Err(err).Str("line", line).Msg("could not parse match state")
			continue
		}
		if state.gameOver || state.viewingPlayer != state.actingPlayer {
			continue
		}

		actions, probs, err := p.ActionProbabilities(state.actions, state.hole, state.board)
		if err != nil {
			logger.Warn().Err(err).Msg("translation failed, falling back to default distribution")
		}
		legal := state.real.LegalActions(p.Game)
		chosen := game.Action{Type: game.Call}
		if len(actions) > 0 {
			chosen = solver.PickAction(actions, probs, legal, rng)
		}

		response := line + ":" + actionString(chosen) + "\r\n"
		if _, err := fmt.Fprint(conn, response); err != nil {
			return fmt.Errorf("send action: %w", err)
		}
	}
	return scanner.Err()
}

func loadPlayerFile(path string) (*playerfile.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return playerfile.Parse(f)
}

func loadPlayer(pf *playerfile.File) (*solver.Player, error) {
	gf, err := os.Open(pf.GameFile)
	if err != nil {
		return nil, fmt.Errorf("open game file: %w", err)
	}
	defer gf.Close()
	g, err := game.ParseGame(gf)
	if err != nil {
		return nil, fmt.Errorf("parse game file: %w", err)
	}

	cardAbsType, err := solver.ParseCardAbsType(pf.CardAbstraction)
	if err != nil {
		return nil, err
	}
	actionAbsType, err := solver.ParseActionAbsType(pf.ActionAbstraction)
	if err != nil {
		return nil, err
	}
	cardAbs := solver.NewCardAbstraction(cardAbsType)
	actionAbs := solver.NewActionAbstraction(actionAbsType)

	root, sizes, err := solver.BuildTree(g, actionAbs)
	if err != nil {
		return nil, fmt.Errorf("rebuild tree: %w", err)
	}

	numPerBucket := make([]int, g.NumRounds)
	totals := make([]int, g.NumRounds)
	for r := 0; r < g.NumRounds; r++ {
		numPerBucket[r] = int(sizes[r])
		totals[r] = cardAbs.NumBuckets(g, r) * numPerBucket[r]
	}

	source := pf.BinaryFilenamePrefix
	if source == "" {
		source = pf.OutputPrefix
	}

	regrets, mapped, err := solver.LoadBorrowedRegrets(source+".regrets", numPerBucket, totals)
	if err != nil {
		return nil, err
	}

	p := &solver.Player{
		Game:      g,
		Root:      root,
		CardAbs:   cardAbs,
		ActionAbs: actionAbs,
		DoAverage: pf.DoAverage,
		Regrets:   regrets,
	}
	p.AddCloser(mapped)

	if pf.DoAverage {
		widths := make([]solver.EntryType, g.NumRounds)
		for r := range widths {
			widths[r] = solver.DefaultAvgWidth(r)
		}
		avg, avgMapped, err := solver.LoadBorrowedAvgStrategy(source+".avg-strategy", widths, numPerBucket, totals)
		if err != nil {
			return nil, err
		}
		p.AvgStrategy = avg
		p.AddCloser(avgMapped)
	}
	return p, nil
}

// matchState is the minimal subset of a dealer match-state line this
// client understands: enough to decide whether it is our turn and to
// replay the real action sequence through the abstraction translator.
// Hole and board cards are left unparsed: the dealer's card-string dialect
// is part of the network protocol this client deliberately does not model,
// so a solver using the Null card abstraction over real cards needs a real
// ACPC client wired in to supply them.
type matchState struct {
	viewingPlayer int
	actingPlayer  int
	actions       []game.Action
	hole          []game.Card
	board         []game.Card
	gameOver      bool
	real          game.State
}

// parseMatchState is a deliberately minimal reader for the
// "MATCHSTATE:<player>:<hand>:<action-string>:<cards>" line shape. It
// replays the action string through the real betting-state machine so
// "whose turn is it" and "is the hand over" come from the same rules the
// tree was built with, rather than from a second hand-rolled tracker.
func parseMatchState(g *game.Game, line string) (*matchState, error) {
	parts := strings.SplitN(line, ":", 5)
	if len(parts) < 4 {
		return nil, fmt.Errorf("too few fields in match state line")
	}
	viewingPlayer, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("viewing player: %w", err)
	}

	actions, err := parseActionString(parts[3])
	if err != nil {
		return nil, err
	}

	s := game.NewState(g)
	for _, a := range actions {
		s = s.Do(g, a)
	}

	ms := &matchState{
		viewingPlayer: viewingPlayer,
		actingPlayer:  s.Acting,
		actions:       actions,
		gameOver:      s.IsTerminal(g),
		real:          s,
	}
	return ms, nil
}

// parseActionString reads a round-separated "/"-delimited action string
// (f=fold, c=call/check, rN=raise to total N) into our Action type.
func parseActionString(s string) ([]game.Action, error) {
	var actions []game.Action
	if s == "" {
		return actions, nil
	}
	for _, round := range strings.Split(s, "/") {
		i := 0
		for i < len(round) {
			switch round[i] {
			case 'f':
				actions = append(actions, game.Action{Type: game.Fold})
				i++
			case 'c':
				actions = append(actions, game.Action{Type: game.Call})
				i++
			case 'r':
				j := i + 1
				for j < len(round) && round[j] >= '0' && round[j] <= '9' {
					j++
				}
				if j == i+1 {
					return nil, fmt.Errorf("raise with no size at position %d in %q", i, round)
				}
				size, err := strconv.Atoi(round[i+1 : j])
				if err != nil {
					return nil, err
				}
				actions = append(actions, game.Action{Type: game.Raise, Size: size})
				i = j
			default:
				return nil, fmt.Errorf("unrecognized action character %q in %q", round[i], round)
			}
		}
	}
	return actions, nil
}

func actionString(a game.Action) string {
	switch a.Type {
	case game.Fold:
		return "f"
	case game.Call:
		return "c"
	case game.Raise:
		return fmt.Sprintf("r%d", a.Size)
	default:
		return "c"
	}
}
