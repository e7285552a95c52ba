package game

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseGame reads the simple keyword game-definition format: one
// "key = value..." assignment per line, bracketed by "gamedef" and
// "end gamedef" sentinels, comments starting with '#' ignored. This mirrors
// the legacy ACPC game-file grammar closely enough to reuse the same mental
// model as the player-file parser, without trying to be a drop-in replacement
// for the full ACPC game-file dialect (pot-limit, blind structures per
// street, etc. are not supported).
func ParseGame(r io.Reader) (*Game, error) {
	g := &Game{}
	sc := bufio.NewScanner(r)
	sawHeader := false
	sawFooter := false

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !sawHeader {
			if strings.EqualFold(line, "gamedef") {
				sawHeader = true
				continue
			}
			return nil, fmt.Errorf("game: expected \"gamedef\" header, got %q", line)
		}
		if strings.EqualFold(line, "end gamedef") {
			sawFooter = true
			break
		}

		key, rest, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("game: malformed line %q", line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		fields := strings.Fields(rest)

		var err error
		switch key {
		case "numplayers":
			g.NumPlayers, err = atoi1(fields)
		case "numrounds":
			g.NumRounds, err = atoi1(fields)
		case "numsuits":
			g.NumSuits, err = atoi1(fields)
		case "numranks":
			g.NumRanks, err = atoi1(fields)
		case "numholecards":
			g.NumHoleCards, err = atoi1(fields)
		case "numboardcards":
			g.NumBoardCards, err = atoiN(fields)
		case "firstplayer":
			g.FirstPlayer, err = atoiN(fields)
		case "raisesize":
			g.RaiseSize, err = atoiN(fields)
		case "maxraises":
			g.MaxRaises, err = atoiN(fields)
		case "blind":
			g.BlindSize, err = atoiN(fields)
		case "stack":
			g.StackSize, err = atoi1(fields)
		case "betting":
			if len(fields) != 1 {
				return nil, fmt.Errorf("game: betting expects one token")
			}
			switch strings.ToLower(fields[0]) {
			case "limit":
				g.Betting = Limit
			case "nolimit", "no-limit":
				g.Betting = NoLimit
			default:
				return nil, fmt.Errorf("game: unknown betting type %q", fields[0])
			}
		default:
			return nil, fmt.Errorf("game: unrecognized key %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("game: parsing %q: %w", key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawHeader || !sawFooter {
		return nil, fmt.Errorf("game: missing gamedef/end gamedef sentinels")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func atoi1(fields []string) (int, error) {
	if len(fields) != 1 {
		return 0, fmt.Errorf("expected exactly one integer, got %d", len(fields))
	}
	return strconv.Atoi(fields[0])
}

func atoiN(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
