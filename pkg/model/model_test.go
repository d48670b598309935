package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseForm(t *testing.T) {
	assert.Equal(t, []Result{Win, Draw, Loss, Win, Win}, ParseForm("wdlwwLL"))
	assert.Equal(t, []Result{Win, Loss}, ParseForm("W?L"))
	assert.Empty(t, ParseForm(""))
}

func TestNewTeamSnapshotSanitizes(t *testing.T) {
	s := NewTeamSnapshot(TeamSnapshot{
		TeamID:         "ars",
		Form:           []Result{"W", "X", "D", "L", "W", "W", "D"},
		Home:           VenueSplit{Matches: 1, Wins: 2, Draws: 1, GoalsFor: -3},
		LeaguePosition: -4,
		XG: []XGMatch{
			{XGFor: 1.2, XGAgainst: 0.4},
			{XGFor: -1, XGAgainst: 0.4},
			{XGFor: math.NaN(), XGAgainst: 0.4},
		},
	})
	assert.Equal(t, "ars", s.Name)
	assert.Len(t, s.Form, MaxFormLength)
	assert.Equal(t, 3, s.Home.Matches)
	assert.Equal(t, 0.0, s.Home.GoalsFor)
	assert.Equal(t, 0, s.LeaguePosition)
	assert.Len(t, s.XG, 1)
}

func TestVenueSplitRatesHandleZeroMatches(t *testing.T) {
	var v VenueSplit
	assert.Equal(t, 0.0, v.WinRate())
	assert.Equal(t, 0.0, v.GoalsForPerMatch())
	v = VenueSplit{Matches: 4, Wins: 2, Draws: 1, GoalsFor: 6, GoalsAgainst: 2}
	assert.Equal(t, 0.5, v.WinRate())
	assert.Equal(t, 0.25, v.DrawRate())
	assert.Equal(t, 1.5, v.GoalsForPerMatch())
	assert.Equal(t, 0.5, v.GoalsAgainstPerMatch())
}

func TestProbabilitiesPickTieOrder(t *testing.T) {
	o, p := Probabilities{Home: 0.4, Draw: 0.2, Away: 0.4}.Pick()
	assert.Equal(t, OutcomeHome, o)
	assert.Equal(t, 0.4, p)

	o, _ = Probabilities{Home: 0.2, Draw: 0.4, Away: 0.4}.Pick()
	assert.Equal(t, OutcomeAway, o)

	o, _ = Probabilities{Home: 0.2, Draw: 0.5, Away: 0.3}.Pick()
	assert.Equal(t, OutcomeDraw, o)
}

func TestProbabilitiesNormalize(t *testing.T) {
	p := Probabilities{Home: 2, Draw: 1, Away: 1}.Normalize()
	assert.InDelta(t, 1.0, p.Sum(), 1e-12)
	assert.InDelta(t, 0.5, p.Home, 1e-12)

	u := Probabilities{}.Normalize()
	assert.InDelta(t, 1.0/3, u.Draw, 1e-12)
}

func TestMarketNormalize(t *testing.T) {
	m := Market{"yes": 0.3, "no": 0.3}.Normalize()
	assert.InDelta(t, 0.5, m["yes"], 1e-12)
	z := Market{"yes": 0, "no": 0}.Normalize()
	assert.InDelta(t, 0.5, z["no"], 1e-12)
	assert.Equal(t, []string{"no", "yes"}, m.Selections())
}

func TestMarketKeys(t *testing.T) {
	assert.Equal(t, "over_under_2.5", OverUnderKey(2.5))
	assert.Equal(t, "asian_handicap_-0.5", AsianHandicapKey(-0.5))
	assert.Equal(t, "asian_handicap_0", AsianHandicapKey(0))
	assert.Equal(t, "asian_handicap_1", AsianHandicapKey(1))

	line, ok := OverUnderLine("over_under_3.5")
	assert.True(t, ok)
	assert.Equal(t, 3.5, line)
	line, ok = AsianHandicapLine(AsianHandicapKey(-1.5))
	assert.True(t, ok)
	assert.Equal(t, -1.5, line)
	_, ok = AsianHandicapLine("btts")
	assert.False(t, ok)
	_, ok = OverUnderLine("over_under_x")
	assert.False(t, ok)
}

func TestTeamGoalStrengthIsPositive(t *testing.T) {
	now := time.Now()
	s := NewTeamGoalStrength("E0", "ars", 0, -2, 4, now)
	assert.Greater(t, s.Attack, 0.0)
	assert.Greater(t, s.Defense, 0.0)
	assert.False(t, s.Stale(now.Add(time.Hour), 7*24*time.Hour))
	assert.True(t, s.Stale(now.Add(8*24*time.Hour), 7*24*time.Hour))
}

func TestLeagueStrengthValid(t *testing.T) {
	var missing *LeagueStrength
	assert.False(t, missing.Valid(1))
	l := &LeagueStrength{AvgHomeGoals: 1.4, AvgAwayGoals: 1.1, Matches: 12}
	assert.True(t, l.Valid(10))
	assert.False(t, l.Valid(20))
}

func TestOddsBookQuotesAreOrdered(t *testing.T) {
	b := OddsBook{}
	b.Add("William Hill", "btts", "yes", 1.8)
	b.Add("Bet365", Market1X2, "home", 2.2)
	b.Add("bet365", "btts", "yes", 1.9)

	q := b.Quotes()
	if assert.Len(t, q, 3) {
		assert.Equal(t, "bet365", q[0].Bookmaker)
		assert.Equal(t, Market1X2, q[0].Market)
		assert.Equal(t, "btts", q[1].Market)
		assert.Equal(t, "william hill", q[2].Bookmaker)
	}
}
