// Package value compares combined predictions against bookmaker prices and ranks the mispriced selections
package value

import (
	"math"
	"sort"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/ensemble"
	"github.com/richard-senior/valuebet/pkg/model"
)

// Skip reasons
const (
	SkipInvalidOdds      = "invalid_odds"
	SkipUnknownMarket    = "unknown_market"
	SkipMissingSelection = "missing_selection"
)

// Skip is a single quote that could not be evaluated
type Skip struct {
	Bookmaker string  `json:"bookmaker"`
	Market    string  `json:"market"`
	Selection string  `json:"selection"`
	Odds      float64 `json:"odds"`
	Reason    string  `json:"reason"`
}

// MarginExclusion is a bookmaker market whose overround is too high. Its bookmaker is left out of the pass.
type MarginExclusion struct {
	Bookmaker string  `json:"bookmaker"`
	Market    string  `json:"market"`
	Margin    float64 `json:"margin"`
}

// FairPrice is a complete bookmaker market with the margin removed
type FairPrice struct {
	Bookmaker     string       `json:"bookmaker"`
	Market        string       `json:"market"`
	Margin        float64      `json:"margin"`
	Probabilities model.Market `json:"probabilities"`
}

// Report is the outcome of one detection pass
type Report struct {
	MatchID    string            `json:"matchId"`
	Candidates int               `json:"candidates"` // quotes evaluated against the thresholds
	Bets       []model.ValueBet  `json:"bets"`       // ranked, best first
	Skipped    []Skip            `json:"skipped,omitempty"`
	Excluded   []MarginExclusion `json:"excluded,omitempty"`
	Fair       []FairPrice       `json:"fair,omitempty"`
}

// Detector finds value bets. It owns the predictor so callers can go from inputs to bets in one step.
type Detector struct {
	cfg       config.ValueConfig
	predictor *ensemble.Predictor
}

// NewDetector creates a detector. predictor may be nil when only Find is used.
func NewDetector(cfg config.ValueConfig, predictor *ensemble.Predictor) *Detector {
	return &Detector{cfg: cfg, predictor: predictor}
}

// Evaluate predicts the match and looks for value in the book
func (d *Detector) Evaluate(in ensemble.PredictionInput, book model.OddsBook) (model.MatchPrediction, Report) {
	pred := d.predictor.Predict(in)
	return pred, d.Find(pred, book)
}

// Find evaluates every quoted selection the prediction covers. A bookmaker with any complete market
// above the margin limit is dropped entirely. Bad quotes are skipped one by one and never abort the pass.
func (d *Detector) Find(pred model.MatchPrediction, book model.OddsBook) Report {
	report := Report{MatchID: pred.MatchID}
	quotes := book.Quotes()

	excluded := map[string]bool{}
	var fair []FairPrice
	for _, q := range quotes {
		probs, ok := pred.Markets[q.Market]
		if !ok {
			continue
		}
		margin, prices, complete := marketMargin(probs, q.Selections)
		if !complete {
			continue
		}
		if margin > d.cfg.MaxMargin {
			report.Excluded = append(report.Excluded, MarginExclusion{q.Bookmaker, q.Market, margin})
			excluded[q.Bookmaker] = true
			continue
		}
		fair = append(fair, FairPrice{q.Bookmaker, q.Market, margin, prices})
	}
	for _, f := range fair {
		if !excluded[f.Bookmaker] {
			report.Fair = append(report.Fair, f)
		}
	}

	for _, q := range quotes {
		if excluded[q.Bookmaker] {
			continue
		}
		if _, ok := pred.Markets[q.Market]; !ok {
			for _, sel := range sortedSelections(q.Selections) {
				report.Skipped = append(report.Skipped, Skip{q.Bookmaker, q.Market, sel, q.Selections[sel], SkipUnknownMarket})
			}
			continue
		}
		for _, sel := range sortedSelections(q.Selections) {
			odds := q.Selections[sel]
			if !validOdds(odds) {
				report.Skipped = append(report.Skipped, Skip{q.Bookmaker, q.Market, sel, odds, SkipInvalidOdds})
				continue
			}
			p, ok := pred.Probability(q.Market, sel)
			if !ok {
				report.Skipped = append(report.Skipped, Skip{q.Bookmaker, q.Market, sel, odds, SkipMissingSelection})
				continue
			}
			report.Candidates++
			if bet, ok := d.candidate(pred, q.Bookmaker, q.Market, sel, odds, p); ok {
				report.Bets = append(report.Bets, bet)
			}
		}
	}

	Rank(report.Bets)
	if len(excluded) > 0 {
		logger.Debug("Bookmakers over the margin limit", pred.MatchID, len(excluded))
	}
	if len(report.Skipped) > 0 {
		logger.Debug("Skipped quotes for match", pred.MatchID, len(report.Skipped))
	}
	return report
}

// candidate applies the thresholds to one priced selection
func (d *Detector) candidate(pred model.MatchPrediction, bookmaker, market, sel string, odds, p float64) (model.ValueBet, bool) {
	implied, edge, value := Metrics(p, odds)
	if value < d.cfg.MinValue || edge < d.cfg.MinEdge {
		return model.ValueBet{}, false
	}
	if p < d.cfg.MinProbability || p > d.cfg.MaxProbability {
		return model.ValueBet{}, false
	}

	rating := Rating(value, edge, p, d.cfg.Reliability(bookmaker))
	bet := model.ValueBet{
		MatchID:            pred.MatchID,
		HomeTeam:           pred.HomeTeam,
		AwayTeam:           pred.AwayTeam,
		KickOff:            pred.KickOff,
		Market:             market,
		Selection:          sel,
		Bookmaker:          bookmaker,
		Odds:               odds,
		ModelProbability:   p,
		ImpliedProbability: implied,
		Edge:               edge,
		Value:              value,
		Rating:             rating,
		Confidence:         ConfidenceLabel(rating),
	}
	bet.Description = Describe(bet)
	return bet, true
}

// marketMargin returns the bookmaker overround and the margin-free probabilities when the quote prices every
// selection of the market. A push is never priced so it is not required.
func marketMargin(probs model.Market, quoted map[string]float64) (float64, model.Market, bool) {
	implied := model.Market{}
	total := 0.0
	for _, sel := range probs.Selections() {
		if sel == model.SelPush {
			continue
		}
		odds, ok := quoted[sel]
		if !ok || !validOdds(odds) {
			return 0, nil, false
		}
		implied[sel] = 1 / odds
		total += 1 / odds
	}
	if len(implied) < 2 {
		return 0, nil, false
	}
	return total - 1, implied.Normalize(), true
}

func validOdds(odds float64) bool {
	return odds > 1 && !math.IsNaN(odds) && !math.IsInf(odds, 0)
}

// Rank sorts bets best first and numbers them from 1
func Rank(bets []model.ValueBet) {
	sort.SliceStable(bets, func(i, j int) bool {
		return better(bets[i], bets[j])
	})
	for i := range bets {
		bets[i].Rank = i + 1
	}
}

// better orders by rating then value, falling back to the identifying fields so the order is total
func better(a, b model.ValueBet) bool {
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	if a.MatchID != b.MatchID {
		return a.MatchID < b.MatchID
	}
	if a.Market != b.Market {
		return a.Market < b.Market
	}
	if a.Selection != b.Selection {
		return a.Selection < b.Selection
	}
	return a.Bookmaker < b.Bookmaker
}

// Aggregate merges the bets of many matches, ranked globally by rating. A limit of zero or less keeps every bet.
// Each bet keeps its rank within its own match.
func Aggregate(reports []Report, limit int) []model.ValueBet {
	var all []model.ValueBet
	for _, r := range reports {
		all = append(all, r.Bets...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return better(all[i], all[j])
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

func sortedSelections(m map[string]float64) []string {
	return model.Market(m).Selections()
}
