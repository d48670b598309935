package value

import (
	"strconv"
	"testing"

	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/stretchr/testify/assert"
)

func formatOdds(o float64) string {
	return strconv.FormatFloat(o, 'f', 2, 64)
}

func TestRatingIsClamped(t *testing.T) {
	assert.Equal(t, 0.0, Rating(0.05, 0.02, 0.75, 0.9))
	assert.Equal(t, 100.0, Rating(3, 0.5, 0.5, 1))
	assert.InDelta(t, (50*0.2+20*0.1-20*0.1)*0.7, Rating(0.2, 0.1, 0.6, 0.7), 1e-12)
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, ConfidenceExcellent, ConfidenceLabel(81))
	assert.Equal(t, ConfidenceVeryGood, ConfidenceLabel(80))
	assert.Equal(t, ConfidenceGood, ConfidenceLabel(41))
	assert.Equal(t, ConfidenceFair, ConfidenceLabel(20.5))
	assert.Equal(t, ConfidenceLow, ConfidenceLabel(20))
}

func TestSelectionLabel(t *testing.T) {
	cases := []struct {
		market, sel, want string
	}{
		{model.Market1X2, model.SelAway, "Chelsea to win"},
		{model.Market1X2, model.SelDraw, "Draw"},
		{model.OverUnderKey(2.5), model.SelUnder, "Under 2.5 goals"},
		{model.AsianHandicapKey(-1.5), model.SelHome, "Arsenal -1.5 asian handicap"},
		{model.AsianHandicapKey(-1.5), model.SelAway, "Chelsea +1.5 asian handicap"},
		{model.MarketBTTS, model.SelNo, "Both teams not to score"},
		{model.MarketCleanSheetA, model.SelYes, "Chelsea to keep a clean sheet"},
		{model.MarketWinToNilH, model.SelNo, "Arsenal not to win to nil"},
		{model.MarketTeamToScoreH, model.SelYes, "Arsenal to score"},
		{model.MarketWinMargin, "away_2", "Chelsea to win by 2 goals"},
		{model.MarketWinMargin, "home_1", "Arsenal to win by 1 goal"},
		{model.MarketGoalRange, "2-3", "2-3 goals"},
		{model.MarketDrawNoBet, model.SelHome, "Arsenal draw no bet"},
		{"corners", "over", "corners over"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SelectionLabel(c.market, c.sel, "Arsenal", "Chelsea"), c.market+"/"+c.sel)
	}
}
