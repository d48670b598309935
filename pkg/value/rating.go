package value

import (
	"fmt"
	"math"
	"strconv"

	"github.com/richard-senior/valuebet/pkg/model"
)

// Metrics returns the implied probability, edge and expected value of backing a selection at odds
func Metrics(probability, odds float64) (implied, edge, value float64) {
	implied = 1 / odds
	edge = probability - implied
	value = odds*probability - 1
	return implied, edge, value
}

// Rating scores a candidate on 0..100. Value and edge push it up, distance from an even chance pulls it down,
// and the bookmaker's reliability scales the result.
func Rating(value, edge, probability, reliability float64) float64 {
	r := (50*value + 20*edge - 20*math.Abs(probability-0.5)) * reliability
	return math.Max(0, math.Min(100, r))
}

// Confidence labels
const (
	ConfidenceExcellent = "Excellent"
	ConfidenceVeryGood  = "Very good"
	ConfidenceGood      = "Good"
	ConfidenceFair      = "Fair"
	ConfidenceLow       = "Low"
)

// ConfidenceLabel maps a rating to a label
func ConfidenceLabel(rating float64) string {
	switch {
	case rating > 80:
		return ConfidenceExcellent
	case rating > 60:
		return ConfidenceVeryGood
	case rating > 40:
		return ConfidenceGood
	case rating > 20:
		return ConfidenceFair
	default:
		return ConfidenceLow
	}
}

// SelectionLabel describes a selection in words, e.g. "Arsenal to win" or "Over 2.5 goals"
func SelectionLabel(market, selection, home, away string) string {
	team := func(sel string) string {
		if sel == model.SelAway {
			return away
		}
		return home
	}

	if line, ok := model.OverUnderLine(market); ok {
		if selection == model.SelUnder {
			return fmt.Sprintf("Under %s goals", fmtLine(line))
		}
		return fmt.Sprintf("Over %s goals", fmtLine(line))
	}
	if line, ok := model.AsianHandicapLine(market); ok {
		if selection == model.SelAway {
			line = -line
		}
		return fmt.Sprintf("%s %s asian handicap", team(selection), signedLine(line))
	}

	switch market {
	case model.Market1X2:
		if selection == model.SelDraw {
			return "Draw"
		}
		return team(selection) + " to win"
	case model.MarketFirstHalf1X2:
		if selection == model.SelDraw {
			return "Draw at half time"
		}
		return team(selection) + " to lead at half time"
	case model.MarketDrawNoBet:
		return team(selection) + " draw no bet"
	case model.MarketBTTS:
		if selection == model.SelNo {
			return "Both teams not to score"
		}
		return "Both teams to score"
	case model.MarketFirstHalfBTTS:
		if selection == model.SelNo {
			return "Both teams not to score in the first half"
		}
		return "Both teams to score in the first half"
	case model.MarketCleanSheetH, model.MarketCleanSheetA, model.MarketWinToNilH, model.MarketWinToNilA,
		model.MarketTeamToScoreH, model.MarketTeamToScoreA:
		return teamMarketLabel(market, selection, home, away)
	case model.MarketGoalRange:
		return selection + " goals"
	case model.MarketWinMargin:
		return marginLabel(selection, home, away)
	}
	return market + " " + selection
}

func teamMarketLabel(market, selection, home, away string) string {
	team := home
	switch market {
	case model.MarketCleanSheetA, model.MarketWinToNilA, model.MarketTeamToScoreA:
		team = away
	}
	not := ""
	if selection == model.SelNo {
		not = "not "
	}
	switch market {
	case model.MarketCleanSheetH, model.MarketCleanSheetA:
		return fmt.Sprintf("%s %sto keep a clean sheet", team, not)
	case model.MarketWinToNilH, model.MarketWinToNilA:
		return fmt.Sprintf("%s %sto win to nil", team, not)
	default:
		return fmt.Sprintf("%s %sto score", team, not)
	}
}

func marginLabel(selection, home, away string) string {
	if selection == model.SelDraw {
		return "Draw"
	}
	if len(selection) < 6 {
		return selection
	}
	team := home
	if selection[:4] == "away" {
		team = away
	}
	by := selection[5:]
	if by == "1" {
		return team + " to win by 1 goal"
	}
	return fmt.Sprintf("%s to win by %s goals", team, by)
}

// Describe is the one line summary of a value bet
func Describe(b model.ValueBet) string {
	return fmt.Sprintf("%s at %.2f with %s (edge %.1f%%, value %.1f%%)",
		SelectionLabel(b.Market, b.Selection, b.HomeTeam, b.AwayTeam), b.Odds, b.Bookmaker, b.Edge*100, b.Value*100)
}

func fmtLine(line float64) string {
	return strconv.FormatFloat(line, 'f', -1, 64)
}

func signedLine(line float64) string {
	if line > 0 {
		return "+" + fmtLine(line)
	}
	return fmtLine(line)
}
