package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGameStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want GameStatus
	}{
		{"scheduled", StatusScheduled},
		{"inprogress", StatusInProgress},
		{"In-Progress", StatusInProgress},
		{"complete", StatusComplete},
		{"CLOSED", StatusClosed},
		{"final", StatusFinal},
		{"postponed", StatusPostponed},
		{"canceled", StatusCancelled},
		{"delayed", StatusOther},
		{"", StatusOther},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGameStatus(tt.raw))
		})
	}
}

func TestGameStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusComplete.IsTerminal())
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusFinal.IsTerminal())
	assert.False(t, StatusScheduled.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, StatusPostponed.IsTerminal())
	assert.False(t, StatusCancelled.IsTerminal())
}

func TestNormalizedGame_Validate(t *testing.T) {
	ok := NormalizedGame{GameID: "g1", HomeTeamID: 1, AwayTeamID: 2}
	require.NoError(t, ok.Validate())

	missingID := ok
	missingID.GameID = " "
	assert.ErrorIs(t, missingID.Validate(), ErrInvalidGame)

	missingTeam := ok
	missingTeam.AwayTeamID = 0
	assert.ErrorIs(t, missingTeam.Validate(), ErrInvalidGame)

	sameTeam := ok
	sameTeam.AwayTeamID = 1
	assert.ErrorIs(t, sameTeam.Validate(), ErrInvalidGame)
}

func TestLabelFor(t *testing.T) {
	l, ok := LabelFor(MarketSpread, SideHome)
	assert.True(t, ok)
	assert.Equal(t, LabelHome, l)

	l, ok = LabelFor(MarketMoneyline, SideAway)
	assert.True(t, ok)
	assert.Equal(t, LabelAway, l)

	l, ok = LabelFor(MarketTotal, SideUnder)
	assert.True(t, ok)
	assert.Equal(t, LabelUnder, l)

	_, ok = LabelFor(MarketTotal, SideHome)
	assert.False(t, ok)
	_, ok = LabelFor(MarketSpread, SideOver)
	assert.False(t, ok)
}

func TestSlateDate_UsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:30 UTC ainda é a noite anterior em Nova York
	ts := time.Date(2025, 1, 15, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, "20250114", SlateDate(ts, ny))
	assert.Equal(t, "20250115", SlateDate(ts, nil))

	parsed, err := ParseSlateDate("20250114", ny)
	require.NoError(t, err)
	assert.True(t, StartOfDay(ts, ny).Equal(parsed))
}

func TestScores(t *testing.T) {
	h, a := 100.0, 95.0
	g := NormalizedGame{Boxscore: &Boxscore{TotalHomePoints: &h, TotalAwayPoints: &a}}
	hs, as, ok := g.Scores()
	require.True(t, ok)
	assert.Equal(t, 100.0, hs)
	assert.Equal(t, 95.0, as)

	g.Boxscore.TotalAwayPoints = nil
	_, _, ok = g.Scores()
	assert.False(t, ok)
}

func TestParseSports(t *testing.T) {
	got, err := ParseSports([]string{"NBA", " ncaab "})
	require.NoError(t, err)
	assert.Equal(t, []Sport{SportNBA, SportNCAAB}, got)

	_, err = ParseSports([]string{"nba", "nfl"})
	assert.Error(t, err)
	_, err = ParseSports(nil)
	assert.Error(t, err)
}
