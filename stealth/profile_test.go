package stealth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelStringAndParseRoundTrip(t *testing.T) {
	for _, l := range []Level{LevelMinimum, LevelBalanced, LevelMaximum} {
		parsed, err := ParseLevel(l.String())
		require.NoError(t, err)
		require.Equal(t, l, parsed)
	}
}

func TestParseLevelRejectsUnknownName(t *testing.T) {
	_, err := ParseLevel("nonsense")
	require.Error(t, err)
}

func TestDefaultProfileIsValid(t *testing.T) {
	p := DefaultProfile("seed-1")
	require.NoError(t, p.Validate())
	require.Equal(t, LevelBalanced, p.Level)
	require.Equal(t, "seed-1", p.SeedSession)
}

func TestProfileValidateRejectsZeroWindow(t *testing.T) {
	p := DefaultProfile("seed-1")
	p.WindowWidth = 0
	require.Error(t, p.Validate())
}

func TestProfileValidateRejectsEmptyUserAgent(t *testing.T) {
	p := DefaultProfile("seed-1")
	p.UserAgent = ""
	require.Error(t, p.Validate())
}

func TestProfileValidateRejectsNoLanguages(t *testing.T) {
	p := DefaultProfile("seed-1")
	p.Languages = nil
	require.Error(t, p.Validate())
}
