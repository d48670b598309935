package heuristic

import (
	"testing"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/poisson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ poisson.ExpectedGoalsEstimator = (*Model)(nil)

func newModel() *Model {
	cfg := config.DefaultConfig()
	return New(cfg.Heuristic, cfg.Poisson)
}

func snapshot(id string, form string, home, away model.VenueSplit, pos int) *model.TeamSnapshot {
	s := model.NewTeamSnapshot(model.TeamSnapshot{
		TeamID:         id,
		Form:           model.ParseForm(form),
		Home:           home,
		Away:           away,
		LeaguePosition: pos,
	})
	return &s
}

func TestFormScore(t *testing.T) {
	assert.InDelta(t, 100.0, FormScore(model.ParseForm("WWWWW")), 1e-9)
	assert.InDelta(t, 0.0, FormScore(model.ParseForm("LLLLL")), 1e-9)
	assert.Equal(t, neutralFormScore, FormScore(nil))
	assert.InDelta(t, 3.8/1.8*100/3, FormScore(model.ParseForm("WD")), 1e-9)
	// the oldest result counts least
	assert.Greater(t, FormScore(model.ParseForm("WLLLL")), FormScore(model.ParseForm("LLLLW")))
}

func TestPredictWithoutAnyDataUsesPriors(t *testing.T) {
	out := newModel().Predict(nil, nil, nil)

	assert.Equal(t, model.ModelBasic, out.Model)
	assert.InDelta(t, 1.0, out.Probabilities.Sum(), 1e-12)
	reasons := map[string]bool{}
	for _, f := range out.Fallbacks {
		reasons[f.Reason] = true
	}
	assert.True(t, reasons[model.ReasonMissingSnapshot])
	assert.True(t, reasons[model.ReasonMissingForm])
	assert.True(t, reasons[model.ReasonMissingH2H])

	f := newModel().Factors(nil, nil, nil)
	assert.InDelta(t, 0.40, f.Form.Home, 1e-12)
	assert.InDelta(t, 0.35, f.H2H.Home, 1e-12)
	assert.InDelta(t, 0.30, f.H2H.Draw, 1e-12)
	assert.InDelta(t, 0.45, f.HomeAdvantage.Home, 1e-12)
	assert.InDelta(t, 0.75*110/210, f.AttackDefense.Home, 1e-12)
}

func TestHeadToHeadIsRegressedTowardPriors(t *testing.T) {
	f := newModel().Factors(nil, nil, &model.H2HRecord{Matches: 10, HomeWins: 6, Draws: 2, AwayWins: 2})
	assert.InDelta(t, 0.8*0.6+0.2*0.45, f.H2H.Home, 1e-12)
	assert.InDelta(t, 0.8*0.2+0.2*0.25, f.H2H.Draw, 1e-12)
	assert.InDelta(t, 0.8*0.2+0.2*0.30, f.H2H.Away, 1e-12)
}

func TestFactorsAreClampedAndNormalized(t *testing.T) {
	strong := snapshot("ars", "WWWWW", model.VenueSplit{Matches: 10, Wins: 10, GoalsFor: 35}, model.VenueSplit{Matches: 10, Wins: 9, Draws: 1, GoalsFor: 25, GoalsAgainst: 2}, 1)
	weak := snapshot("shu", "LLLLL", model.VenueSplit{Matches: 10, Losses: 10, GoalsAgainst: 30}, model.VenueSplit{Matches: 10, Losses: 10, GoalsAgainst: 35}, 20)

	f := newModel().Factors(strong, weak, &model.H2HRecord{Matches: 5, HomeWins: 5})
	for name, p := range map[string]model.Probabilities{
		"home": f.HomeAdvantage, "form": f.Form, "h2h": f.H2H, "position": f.Position, "attack": f.AttackDefense,
	} {
		assert.InDelta(t, 1.0, p.Sum(), 1e-12, name)
		for _, v := range []float64{p.Home, p.Draw, p.Away} {
			assert.LessOrEqual(t, v, 0.8+1e-12, name)
			assert.Greater(t, v, 0.0, name)
		}
	}

	out := newModel().Predict(strong, weak, &model.H2HRecord{Matches: 5, HomeWins: 5})
	pick, _ := out.Probabilities.Pick()
	assert.Equal(t, model.OutcomeHome, pick)
	assert.Empty(t, out.Fallbacks)
}

func TestPositionGap(t *testing.T) {
	m := newModel()
	top := snapshot("a", "", model.VenueSplit{}, model.VenueSplit{}, 1)
	bottom := snapshot("b", "", model.VenueSplit{}, model.VenueSplit{}, 11)

	homeBetter := m.Factors(top, bottom, nil).Position
	awayBetter := m.Factors(bottom, top, nil).Position
	same := m.Factors(top, top, nil).Position

	assert.Greater(t, homeBetter.Home, homeBetter.Away)
	assert.Greater(t, awayBetter.Away, awayBetter.Home)
	assert.InDelta(t, 0.40, same.Home, 1e-12)
	assert.InDelta(t, 0.35, same.Away, 1e-12)
}

func TestCombineFollowsWeights(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Heuristic.Weights = config.FactorWeights{Form: 1}
	m := New(cfg.Heuristic, cfg.Poisson)

	home := snapshot("a", "WWWDW", model.VenueSplit{}, model.VenueSplit{}, 0)
	away := snapshot("b", "LDLLW", model.VenueSplit{}, model.VenueSplit{}, 0)
	f := m.Factors(home, away, nil)
	assert.InDelta(t, f.Form.Home, m.Combine(f).Home, 1e-12)
}

func TestExpectedGoals(t *testing.T) {
	m := newModel()
	home := snapshot("a", "", model.VenueSplit{Matches: 5, GoalsFor: 12, GoalsAgainst: 5}, model.VenueSplit{Matches: 5, GoalsFor: 8, GoalsAgainst: 5}, 0)
	away := snapshot("b", "", model.VenueSplit{Matches: 5, GoalsFor: 6, GoalsAgainst: 10}, model.VenueSplit{Matches: 5, GoalsFor: 4, GoalsAgainst: 10}, 0)

	xg := m.ExpectedGoals(home, away, nil)
	assert.InDelta(t, 1.35*(2/1.35)*(2/1.35), xg.Home, 1e-9)
	assert.InDelta(t, 1.05*(1/1.05)*(1/1.05), xg.Away, 1e-9)

	withH2H := m.ExpectedGoals(home, away, &model.H2HRecord{Matches: 4, HomeGoals: 4, AwayGoals: 8})
	assert.InDelta(t, 0.7*xg.Home+0.3*1.0, withH2H.Home, 1e-9)
	assert.InDelta(t, 0.7*xg.Away+0.3*2.0, withH2H.Away, 1e-9)

	home.XG = []model.XGMatch{{XGFor: 1.0}, {XGFor: 2.0}}
	withXG := m.ExpectedGoals(home, away, nil)
	assert.InDelta(t, (xg.Home+1.5)/2, withXG.Home, 1e-9)

	none := m.ExpectedGoals(nil, nil, nil)
	assert.Equal(t, model.ExpectedGoals{Home: 1.35, Away: 1.05}, none)
}

func TestPredictMarketsAreConsistent(t *testing.T) {
	out := newModel().Predict(nil, nil, nil)
	require.Contains(t, out.Markets, model.Market1X2)
	assert.InDelta(t, out.Probabilities.Home, out.Markets[model.Market1X2][model.SelHome], 1e-12)
	assert.InDelta(t, 1.0, out.Scores.Total(), 1e-6)
	assert.Contains(t, out.Markets, model.OverUnderKey(2.5))
}
