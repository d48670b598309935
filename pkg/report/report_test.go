package report

import (
	"testing"
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePrediction() model.MatchPrediction {
	return model.MatchPrediction{
		MatchID:       "m1",
		HomeTeam:      "Arsenal",
		AwayTeam:      "Chelsea",
		LeagueID:      "premier-league",
		KickOff:       time.Date(2024, 1, 13, 15, 0, 0, 0, time.UTC),
		Probabilities: model.Probabilities{Home: 0.52, Draw: 0.26, Away: 0.22},
		ExpectedGoals: model.ExpectedGoals{Home: 1.7, Away: 1.1},
		Scores: model.ScoreDistribution{Scores: map[string]float64{
			"1-0": 0.11, "1-1": 0.12, "2-1": 0.09, "2-0": 0.09, "0-0": 0.07, "3-1": 0.04,
		}},
		Pick:       model.OutcomeHome,
		Confidence: 52,
		Models: []model.ModelSummary{
			{Model: model.ModelBasic, Weight: 0.3, Probabilities: model.Probabilities{Home: 0.5, Draw: 0.3, Away: 0.2}},
			{Model: model.ModelXG, Weight: 0.3, Skipped: true},
		},
		Quality: model.Quality{Fallbacks: []model.Fallback{{Model: model.ModelXG, Reason: model.ReasonInsufficientXG}}},
	}
}

func TestTopScores(t *testing.T) {
	scores := topScores(samplePrediction().Scores, 3)
	require.Len(t, scores, 3)
	assert.Equal(t, "1-1", scores[0].Score)
	assert.Equal(t, "1-0", scores[1].Score)
	assert.Equal(t, "2-0", scores[2].Score) // tie with 2-1 resolved by text
}

func TestMatchHTML(t *testing.T) {
	rep := &value.Report{
		Bets: []model.ValueBet{{
			MatchID: "m1", HomeTeam: "Arsenal", AwayTeam: "Chelsea",
			Market: model.Market1X2, Selection: model.SelHome, Bookmaker: "bet365",
			Odds: 2.2, ModelProbability: 0.52, ImpliedProbability: 1 / 2.2, Edge: 0.065, Rating: 61, Confidence: "medium",
		}},
		Excluded: []value.MarginExclusion{{Bookmaker: "shady", Market: model.MarketBTTS, Margin: 0.14}},
	}
	html, err := NewRenderer("").MatchHTML(samplePrediction(), rep)
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Arsenal v Chelsea</h1>")
	assert.Contains(t, html, "Home: 52.0%")
	assert.Contains(t, html, "Sat 13 Jan 2024 15:00 UTC")
	assert.Contains(t, html, "at 2.20 with bet365")
	assert.Contains(t, html, "xg (insufficient_xg_data)")
	assert.Contains(t, html, "shady btts (14.0%)")
	assert.Contains(t, html, "xg (weight 0.30) skipped")
	assert.NotContains(t, html, "No value found")
}

func TestMatchMarkdownWithoutBets(t *testing.T) {
	md, err := NewRenderer("example.com").MatchMarkdown(samplePrediction(), nil)
	require.NoError(t, err)
	assert.Contains(t, md, "Arsenal v Chelsea")
	assert.Contains(t, md, "No value found.")
	assert.Contains(t, md, "1-1: 12.0%")
	assert.NotContains(t, md, "<li>")
}

func TestDailyMarkdown(t *testing.T) {
	bets := []model.ValueBet{{
		HomeTeam: "Leeds", AwayTeam: "Hull", Market: model.MarketBTTS, Selection: model.SelYes,
		Bookmaker: "pinnacle", Odds: 1.95, Edge: 0.04, Rating: 48,
	}}
	md, err := NewRenderer("").DailyMarkdown("2024-01-13", bets)
	require.NoError(t, err)
	assert.Contains(t, md, "Value bets for 2024-01-13")
	assert.Contains(t, md, "Leeds v Hull")
	assert.Contains(t, md, "at 1.95 with pinnacle")

	md, err = NewRenderer("").DailyMarkdown("2024-01-14", nil)
	require.NoError(t, err)
	assert.Contains(t, md, "No value found.")
}
