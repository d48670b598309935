package poisson

import (
	"testing"
	"time"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEstimator struct {
	xg    model.ExpectedGoals
	calls int
}

func (f *fixedEstimator) ExpectedGoals(home, away *model.TeamSnapshot, h2h *model.H2HRecord) model.ExpectedGoals {
	f.calls++
	return f.xg
}

func calibratedInput(homeAttack float64) Input {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return Input{
		League:       &model.LeagueStrength{LeagueID: "E0", AvgHomeGoals: 1.5, AvgAwayGoals: 1.2, Matches: 180, UpdatedAt: now},
		HomeStrength: &model.TeamGoalStrength{LeagueID: "E0", TeamID: "ars", Attack: homeAttack, Defense: 0.9, Matches: 12, UpdatedAt: now},
		AwayStrength: &model.TeamGoalStrength{LeagueID: "E0", TeamID: "che", Attack: 1.1, Defense: 1.2, Matches: 12, UpdatedAt: now},
	}
}

func TestPredictCalibratedExpectedGoals(t *testing.T) {
	m := New(config.DefaultConfig().Poisson, nil)
	out := m.Predict(calibratedInput(1.2))

	assert.Equal(t, model.ModelPoisson, out.Model)
	assert.Empty(t, out.Fallbacks)
	assert.InDelta(t, 1.5*1.2*1.2, out.ExpectedGoals.Home, 1e-12)
	assert.InDelta(t, 1.2*1.1*0.9, out.ExpectedGoals.Away, 1e-12)
	assert.InDelta(t, 1.0, out.Probabilities.Sum(), 1e-9)
	assert.NotEmpty(t, out.Reasoning)
}

func TestPredictBlendsHeadToHead(t *testing.T) {
	m := New(config.DefaultConfig().Poisson, nil)
	in := calibratedInput(1.0)
	base, _ := m.ExpectedGoals(in)

	in.H2H = &model.H2HRecord{Matches: 2, HomeGoals: 10, AwayGoals: 0}
	few, _ := m.ExpectedGoals(in)
	assert.Equal(t, base, few)

	in.H2H = &model.H2HRecord{Matches: 10, HomeGoals: 30, AwayGoals: 10}
	blended, _ := m.ExpectedGoals(in)
	assert.InDelta(t, 0.75*base.Home+0.25*3.0, blended.Home, 1e-12)
	assert.InDelta(t, 0.75*base.Away+0.25*1.0, blended.Away, 1e-12)

	in.H2H = &model.H2HRecord{Matches: 4, HomeGoals: 8, AwayGoals: 4}
	small, _ := m.ExpectedGoals(in)
	assert.InDelta(t, 0.8*base.Home+0.2*2.0, small.Home, 1e-12)
}

func TestPredictFallsBackWithShortTeamHistory(t *testing.T) {
	est := &fixedEstimator{xg: model.ExpectedGoals{Home: 1.9, Away: 0.7}}
	m := New(config.DefaultConfig().Poisson, est)

	in := calibratedInput(1.2)
	in.AwayStrength.Matches = 2
	out := m.Predict(in)

	require.Len(t, out.Fallbacks, 1)
	assert.Equal(t, model.ReasonInsufficientHistory, out.Fallbacks[0].Reason)
	assert.Equal(t, 1, est.calls)
	assert.Equal(t, est.xg, out.ExpectedGoals)
	assert.InDelta(t, 1.0, out.Probabilities.Sum(), 1e-9)
	assert.InDelta(t, 1.0, out.Scores.Total(), 1e-6)

	in = calibratedInput(1.2)
	in.HomeStrength = nil
	out = m.Predict(in)
	require.Len(t, out.Fallbacks, 1)
	assert.Equal(t, model.ReasonInsufficientHistory, out.Fallbacks[0].Reason)
}

func TestPredictFallsBackWithoutLeagueCalibration(t *testing.T) {
	m := New(config.DefaultConfig().Poisson, nil)

	in := calibratedInput(1.2)
	in.League.Matches = 4
	out := m.Predict(in)
	require.Len(t, out.Fallbacks, 1)
	assert.Equal(t, model.ReasonNoLeagueCalibration, out.Fallbacks[0].Reason)
	assert.Equal(t, 1.35, out.ExpectedGoals.Home)
	assert.Equal(t, 1.05, out.ExpectedGoals.Away)

	out = m.Predict(Input{})
	assert.Equal(t, model.ReasonNoLeagueCalibration, out.Fallbacks[0].Reason)
	assert.NotEmpty(t, out.Markets)
}

func TestExpectedGoalsAreClamped(t *testing.T) {
	m := New(config.DefaultConfig().Poisson, &fixedEstimator{xg: model.ExpectedGoals{Home: 12, Away: 0}})
	xg, fb := m.ExpectedGoals(Input{})
	require.NotNil(t, fb)
	assert.Equal(t, 5.0, xg.Home)
	assert.Equal(t, 0.2, xg.Away)

	in := calibratedInput(0.01)
	in.AwayStrength.Defense = 0.01
	xg, _ = m.ExpectedGoals(in)
	assert.Equal(t, 0.3, xg.Home)
}

func TestAttackStrengthIsMonotonic(t *testing.T) {
	m := New(config.DefaultConfig().Poisson, nil)
	prev := m.Predict(calibratedInput(0.2))
	for attack := 0.3; attack <= 4.0; attack += 0.1 {
		out := m.Predict(calibratedInput(attack))
		assert.GreaterOrEqual(t, out.ExpectedGoals.Home, prev.ExpectedGoals.Home)
		assert.GreaterOrEqual(t, out.Probabilities.Home, prev.Probabilities.Home-1e-12)
		prev = out
	}
}

func TestPredictIsIdempotent(t *testing.T) {
	m := New(config.DefaultConfig().Poisson, nil)
	a := m.Predict(calibratedInput(1.4))
	b := m.Predict(calibratedInput(1.4))
	assert.Equal(t, a, b)
}
