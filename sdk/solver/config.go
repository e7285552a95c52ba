package solver

import (
	"errors"
	"fmt"
)

// CardAbsType selects a card-abstraction variant (see cardabs.go).
type CardAbsType uint8

const (
	CardAbsNull CardAbsType = iota
	CardAbsBlind
)

func (t CardAbsType) String() string {
	switch t {
	case CardAbsNull:
		return "NULL"
	case CardAbsBlind:
		return "BLIND"
	default:
		return "unknown"
	}
}

func ParseCardAbsType(s string) (CardAbsType, error) {
	switch s {
	case "NULL":
		return CardAbsNull, nil
	case "BLIND":
		return CardAbsBlind, nil
	default:
		return 0, fmt.Errorf("solver: unknown card abstraction %q", s)
	}
}

// ActionAbsType selects an action-abstraction variant (see actionabs.go).
type ActionAbsType uint8

const (
	ActionAbsNull ActionAbsType = iota
	ActionAbsFCPA
)

func (t ActionAbsType) String() string {
	switch t {
	case ActionAbsNull:
		return "NULL"
	case ActionAbsFCPA:
		return "FCPA"
	default:
		return "unknown"
	}
}

func ParseActionAbsType(s string) (ActionAbsType, error) {
	switch s {
	case "NULL":
		return ActionAbsNull, nil
	case "FCPA":
		return ActionAbsFCPA, nil
	default:
		return 0, fmt.Errorf("solver: unknown action abstraction %q", s)
	}
}

// AbstractionConfig picks the card and action abstractions used to build the
// betting tree and size the entry stores.
type AbstractionConfig struct {
	CardAbs   CardAbsType
	ActionAbs ActionAbsType
}

func (c AbstractionConfig) Validate() error {
	switch c.CardAbs {
	case CardAbsNull, CardAbsBlind:
	default:
		return fmt.Errorf("solver: invalid card abstraction %d", c.CardAbs)
	}
	switch c.ActionAbs {
	case ActionAbsNull, ActionAbsFCPA:
	default:
		return fmt.Errorf("solver: invalid action abstraction %d", c.ActionAbs)
	}
	return nil
}

// DumpTimer is the checkpoint schedule: the next checkpoint work-second
// threshold is recomputed as max(next*Mult+Add, current_work_seconds+1),
// starting at SecondsStart.
type DumpTimer struct {
	SecondsStart int
	SecondsMult  int
	SecondsAdd   int
}

// Next advances the schedule past workSeconds, the coordinator's current
// elapsed work-second count.
func (d DumpTimer) Next(prev, workSeconds int) int {
	candidate := prev*d.SecondsMult + d.SecondsAdd
	if workSeconds+1 > candidate {
		candidate = workSeconds + 1
	}
	return candidate
}

// TrainingConfig aggregates the parameters that drive the worker coordinator
// and checkpoint lifecycle; it is the in-memory counterpart of a player-file
// (see internal/playerfile) or of the train CLI's flags.
type TrainingConfig struct {
	GameFile            string
	OutputPrefix        string
	RNGSeeds            [4]uint32
	Abstraction         AbstractionConfig
	NumThreads          int
	StatusFreqSeconds   int
	DumpTimer           DumpTimer
	MaxWalltimeSeconds  int
	DoAverage           bool
	BinaryFilenamePrefix string
	LoadDumpPrefix      string
	Verbose             bool
}

func (c TrainingConfig) Validate(numPlayers int) error {
	if c.GameFile == "" {
		return errors.New("solver: game file is required")
	}
	if c.OutputPrefix == "" {
		return errors.New("solver: output prefix is required")
	}
	if err := c.Abstraction.Validate(); err != nil {
		return err
	}
	if c.NumThreads < 1 {
		return errors.New("solver: num threads must be >= 1")
	}
	if c.StatusFreqSeconds < 1 {
		return errors.New("solver: status frequency must be >= 1 second")
	}
	if c.DumpTimer.SecondsStart < 1 {
		return errors.New("solver: checkpoint schedule start must be >= 1 second")
	}
	if c.DumpTimer.SecondsMult < 1 {
		return errors.New("solver: checkpoint schedule multiplier must be >= 1")
	}
	if c.MaxWalltimeSeconds < 0 {
		return errors.New("solver: max walltime must be >= 0 (0 means no deadline)")
	}
	if c.DoAverage && numPlayers != 2 {
		return errors.New("solver: average-strategy tracking is only defined for two-player games")
	}
	return nil
}
