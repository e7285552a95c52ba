// Package playerfile reads the legacy flat keyword-per-line player-file and
// --config file grammar. It is hand-written over bufio.Scanner
// rather than a general config library: the grammar is a flat list of
// uppercase keywords terminated by a sentinel line (PLAYER_END or
// PARAMETERS_END), which does not map onto a block/attribute language like
// HCL.
package playerfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// File is the parsed set of keyword values from a player file or --config
// file. Every mandatory key must be present; unknown lines are errors.
type File struct {
	GameFile             string
	OutputPrefix         string
	RNGSeeds             [4]uint32
	CardAbstraction      string
	ActionAbstraction    string
	NumThreads           int
	StatusFreqSeconds    int
	DumpTimerStart       int
	DumpTimerMult        int
	DumpTimerAdd         int
	MaxWalltimeSeconds   int
	DoAverage            bool
	BinaryFilenamePrefix string
	LoadDumpPrefix       string
	Verbose              bool
}

var mandatoryKeys = []string{
	"GAME_FILE", "OUTPUT_PREFIX", "RNG_SEEDS", "CARD_ABSTRACTION",
	"ACTION_ABSTRACTION", "NUM_THREADS", "STATUS_FREQ_SECONDS", "DUMP_TIMER",
	"MAX_WALLTIME_SECONDS", "DO_AVERAGE", "BINARY_FILENAME_PREFIX",
}

// Parse reads a player file or --config file, stopping at the sentinel
// line (conventionally PLAYER_END or PARAMETERS_END; both are accepted).
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key := fields[0]
		args := fields[1:]

		if key == "PLAYER_END" || key == "PARAMETERS_END" {
			return finish(f, seen)
		}

		var err error
		switch key {
		case "GAME_FILE":
			f.GameFile, err = one(args)
		case "OUTPUT_PREFIX":
			f.OutputPrefix, err = one(args)
		case "RNG_SEEDS":
			err = seeds(args, &f.RNGSeeds)
		case "CARD_ABSTRACTION":
			f.CardAbstraction, err = one(args)
		case "ACTION_ABSTRACTION":
			f.ActionAbstraction, err = one(args)
		case "NUM_THREADS":
			f.NumThreads, err = intArg(args)
		case "STATUS_FREQ_SECONDS":
			f.StatusFreqSeconds, err = intArg(args)
		case "DUMP_TIMER":
			err = dumpTimer(args, f)
		case "MAX_WALLTIME_SECONDS":
			f.MaxWalltimeSeconds, err = intArg(args)
		case "DO_AVERAGE":
			f.DoAverage, err = boolArg(args)
		case "BINARY_FILENAME_PREFIX":
			f.BinaryFilenamePrefix, err = one(args)
		case "LOAD_DUMP_PREFIX":
			f.LoadDumpPrefix, err = one(args)
		case "VERBOSE":
			f.Verbose, err = boolArg(args)
		default:
			return nil, fmt.Errorf("playerfile: unrecognized key %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("playerfile: %s: %w", key, err)
		}
		seen[key] = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("playerfile: missing PLAYER_END/PARAMETERS_END sentinel")
}

func finish(f *File, seen map[string]bool) (*File, error) {
	for _, k := range mandatoryKeys {
		if !seen[k] {
			return nil, fmt.Errorf("playerfile: missing mandatory key %s", k)
		}
	}
	return f, nil
}

func one(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one value, got %d", len(args))
	}
	return args[0], nil
}

func intArg(args []string) (int, error) {
	s, err := one(args)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func boolArg(args []string) (bool, error) {
	s, err := one(args)
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("expected TRUE or FALSE, got %q", s)
	}
}

func seeds(args []string, out *[4]uint32) error {
	if len(args) != 4 {
		return fmt.Errorf("expected 4 seeds, got %d", len(args))
	}
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return err
		}
		out[i] = uint32(v)
	}
	return nil
}

func dumpTimer(args []string, f *File) error {
	if len(args) != 3 {
		return fmt.Errorf("expected 3 integers, got %d", len(args))
	}
	vals := make([]int, 3)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	f.DumpTimerStart, f.DumpTimerMult, f.DumpTimerAdd = vals[0], vals[1], vals[2]
	return nil
}
