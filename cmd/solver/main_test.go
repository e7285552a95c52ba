package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/purecfr/sdk/solver"
)

func TestParseDurationSpecPlainSeconds(t *testing.T) {
	secs, err := parseDurationSpec("90")
	require.NoError(t, err)
	require.Equal(t, int64(90), secs)
}

func TestParseDurationSpecDDHHMMSS(t *testing.T) {
	secs, err := parseDurationSpec("1:02:03:04")
	require.NoError(t, err)
	require.Equal(t, int64(86400+2*3600+3*60+4), secs)
}

func TestParseDurationSpecRejectsWrongFieldCount(t *testing.T) {
	_, err := parseDurationSpec("1:02:03")
	require.Error(t, err)
}

func TestParseCheckpointSpecDefaultsUnspecifiedFields(t *testing.T) {
	d, err := parseCheckpointSpec("120")
	require.NoError(t, err)
	require.Equal(t, 120, d.SecondsStart)
	require.Equal(t, 2, d.SecondsMult)
	require.Equal(t, 0, d.SecondsAdd)
}

func TestParseCheckpointSpecAllThreeFields(t *testing.T) {
	d, err := parseCheckpointSpec("60,3,5")
	require.NoError(t, err)
	require.Equal(t, 60, d.SecondsStart)
	require.Equal(t, 3, d.SecondsMult)
	require.Equal(t, 5, d.SecondsAdd)
}

func TestParseCheckpointSpecRejectsNonInteger(t *testing.T) {
	_, err := parseCheckpointSpec("sixty,2,0")
	require.Error(t, err)
}

func TestParseRNGSeedsExplicit(t *testing.T) {
	seeds, err := parseRNGSeeds("6:12:1983:28")
	require.NoError(t, err)
	require.Equal(t, [4]uint32{6, 12, 1983, 28}, seeds)
}

func TestParseRNGSeedsTimeProducesNonZeroSeeds(t *testing.T) {
	seeds, err := parseRNGSeeds("TIME")
	require.NoError(t, err)
	var allZero = true
	for _, s := range seeds {
		if s != 0 {
			allZero = false
		}
	}
	require.False(t, allZero, "a time-derived seed set should not be all-zero")
}

func TestParseRNGSeedsRejectsWrongFieldCount(t *testing.T) {
	_, err := parseRNGSeeds("6:12:1983")
	require.Error(t, err)
}

func TestParseAvgWidthsAcceptsEachKeyword(t *testing.T) {
	widths, err := parseAvgWidths("uint64,uint32,uint8", 3)
	require.NoError(t, err)
	require.Equal(t, solver.AvgWidths{solver.TypeUint64, solver.TypeUint32, solver.TypeUint8}, widths)
}

func TestParseAvgWidthsRejectsWrongCount(t *testing.T) {
	_, err := parseAvgWidths("uint64,uint32", 3)
	require.Error(t, err)
}

func TestParseAvgWidthsRejectsUnknownWidth(t *testing.T) {
	_, err := parseAvgWidths("uint16", 1)
	require.Error(t, err)
}

func TestApplyConfigFilePopulatesTrainCmd(t *testing.T) {
	configPath := t.TempDir() + "/run.player"
	contents := strings.Join([]string{
		"GAME_FILE holdem.game",
		"OUTPUT_PREFIX /tmp/run1",
		"RNG_SEEDS 6 12 1983 28",
		"CARD_ABSTRACTION NULL",
		"ACTION_ABSTRACTION FCPA",
		"NUM_THREADS 4",
		"STATUS_FREQ_SECONDS 60",
		"DUMP_TIMER 60 2 0",
		"MAX_WALLTIME_SECONDS 3600",
		"DO_AVERAGE TRUE",
		"BINARY_FILENAME_PREFIX /tmp/run1",
		"PLAYER_END",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0o644))

	cmd := &TrainCmd{Config: configPath}
	require.NoError(t, cmd.applyConfigFile())

	require.Equal(t, "holdem.game", cmd.GameFile)
	require.Equal(t, "/tmp/run1", cmd.OutputPrefix)
	require.Equal(t, "FCPA", cmd.ActionAbs)
	require.Equal(t, 4, cmd.Threads)
	require.Equal(t, "60,2,0", cmd.Checkpoint)
	require.False(t, cmd.NoAverage)
	require.Equal(t, "6:12:1983:28", cmd.RNG)
}
