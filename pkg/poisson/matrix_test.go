package poisson

import (
	"math"
	"testing"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultParams() Params {
	return ParamsFromConfig(config.DefaultConfig().Poisson)
}

func TestPMF(t *testing.T) {
	assert.InDelta(t, math.Exp(-1.5), PMF(0, 1.5), 1e-15)
	assert.InDelta(t, 1.5*1.5/2*math.Exp(-1.5), PMF(2, 1.5), 1e-15)
	assert.Equal(t, 1.0, PMF(0, 0))
	assert.Equal(t, 0.0, PMF(3, 0))
	assert.Equal(t, 0.0, PMF(-1, 1))

	total := 0.0
	for k := 0; k < 60; k++ {
		total += PMF(k, 3.2)
	}
	assert.InDelta(t, 1.0, total, 1e-12)
}

func TestScoreMatrixCellsPlusOtherIsOne(t *testing.T) {
	for _, xg := range [][2]float64{{0.1, 0.1}, {1.5, 1.0}, {3.8, 0.4}, {5.0, 4.0}} {
		m := NewScoreMatrix(xg[0], xg[1], 10)
		total := m.Other
		for _, row := range m.Cells {
			for _, c := range row {
				total += c
			}
		}
		assert.InDelta(t, 1.0, total, 1e-6, "xg %v", xg)
		assert.InDelta(t, 1.0, m.Distribution().Total(), 1e-6)
		assert.GreaterOrEqual(t, m.Other, 0.0)
	}
}

func TestDrawIsMostLikelyForLowEqualExpectedGoals(t *testing.T) {
	p := NewScoreMatrix(0.1, 0.1, 10).Probabilities()
	assert.Greater(t, p.Draw, p.Home)
	assert.Greater(t, p.Draw, p.Away)
	assert.InDelta(t, p.Home, p.Away, 1e-12)
	assert.InDelta(t, 1.0, p.Sum(), 1e-12)
}

func TestOverTwoPointFiveMatchesClosedForm(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.0, 10)
	markets := m.Markets(defaultParams())

	ou := markets[model.OverUnderKey(2.5)]
	require.NotNil(t, ou)

	// total goals of two independent Poisson variables is Poisson(1.5 + 1.0)
	lambda := 2.5
	atMostTwo := math.Exp(-lambda) * (1 + lambda + lambda*lambda/2)
	assert.InDelta(t, 1-atMostTwo, ou[model.SelOver], 1e-12)
	assert.InDelta(t, atMostTwo, ou[model.SelUnder], 1e-12)
}

func TestEveryMarketSumsToOne(t *testing.T) {
	markets := NewScoreMatrix(1.7, 0.9, 10).Markets(defaultParams())
	require.Contains(t, markets, model.MarketBTTS)
	require.Contains(t, markets, model.AsianHandicapKey(-1.5))
	require.Contains(t, markets, model.MarketFirstHalf1X2)

	for key, market := range markets {
		total := 0.0
		for _, p := range market {
			assert.GreaterOrEqual(t, p, 0.0, key)
			assert.LessOrEqual(t, p, 1.0, key)
			total += p
		}
		assert.InDelta(t, 1.0, total, 1e-9, key)
	}
}

func TestBTTSMatchesMatrixSum(t *testing.T) {
	m := NewScoreMatrix(1.4, 1.1, 10)
	yes := 0.0
	for i := 1; i <= 10; i++ {
		for j := 1; j <= 10; j++ {
			yes += m.Cells[i][j]
		}
	}
	btts := m.Markets(defaultParams())[model.MarketBTTS]
	assert.InDelta(t, yes, btts[model.SelYes], 1e-6)
}

func TestAsianHandicapPushPolicy(t *testing.T) {
	m := NewScoreMatrix(1.2, 1.2, 10)
	markets := m.Markets(defaultParams())

	level := markets[model.AsianHandicapKey(0)]
	require.Contains(t, level, model.SelPush)
	probs := m.Probabilities()
	assert.InDelta(t, probs.Draw, level[model.SelPush], 1e-12)
	assert.InDelta(t, level[model.SelHome], level[model.SelAway], 1e-12)

	half := markets[model.AsianHandicapKey(-0.5)]
	assert.NotContains(t, half, model.SelPush)
	assert.InDelta(t, probs.Home, half[model.SelHome], 1e-12)

	plusOne := markets[model.AsianHandicapKey(1)]
	assert.Contains(t, plusOne, model.SelPush)
	// home +1 wins whenever home does not lose by two or more
	assert.Greater(t, plusOne[model.SelHome], probs.Home+probs.Draw-1e-12)
}

func TestWinMarginAndGoalRange(t *testing.T) {
	m := NewScoreMatrix(2.0, 0.8, 10)
	markets := m.Markets(defaultParams())

	margin := markets[model.MarketWinMargin]
	probs := m.Probabilities()
	assert.InDelta(t, probs.Home, margin["home_1"]+margin["home_2"]+margin["home_3+"], 1e-9)
	assert.InDelta(t, probs.Draw, margin["draw"], 1e-9)

	ranges := markets[model.MarketGoalRange]
	assert.InDelta(t, m.TotalGoalsBelow(2), ranges["0-1"], 1e-12)
	assert.Greater(t, ranges["2-3"], ranges["7+"])
}

func TestFirstHalfMarketsUseScaledGoals(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.0, 10)
	markets := m.Markets(defaultParams())
	fh := markets[model.MarketFirstHalf1X2]
	full := markets[model.Market1X2]
	assert.Greater(t, fh[model.SelDraw], full[model.SelDraw])

	noFH := m.Markets(Params{MaxGoals: 10})
	assert.NotContains(t, noFH, model.MarketFirstHalf1X2)
}

func TestMostLikelyScore(t *testing.T) {
	h, a, p := NewScoreMatrix(1.3, 0.7, 10).MostLikelyScore()
	assert.Equal(t, 1, h)
	assert.Equal(t, 0, a)
	assert.InDelta(t, PMF(1, 1.3)*PMF(0, 0.7), p, 1e-15)
}
