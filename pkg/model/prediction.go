package model

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Outcome is one of the three full-time results
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// Model names used in flags and summaries
const (
	ModelBasic   = "basic"
	ModelPoisson = "poisson"
	ModelXG      = "xg"
)

// Market keys shared by predictions and odds
const (
	Market1X2           = "1x2"
	MarketBTTS          = "btts"
	MarketWinMargin     = "win_margin"
	MarketDrawNoBet     = "draw_no_bet"
	MarketCleanSheetH   = "clean_sheet_home"
	MarketCleanSheetA   = "clean_sheet_away"
	MarketWinToNilH     = "win_to_nil_home"
	MarketWinToNilA     = "win_to_nil_away"
	MarketTeamToScoreH  = "team_to_score_home"
	MarketTeamToScoreA  = "team_to_score_away"
	MarketGoalRange     = "goal_range"
	MarketFirstHalf1X2  = "first_half_1x2"
	MarketFirstHalfBTTS = "first_half_btts"

	overUnderPrefix     = "over_under_"
	asianHandicapPrefix = "asian_handicap_"
)

// Selection names
const (
	SelHome  = "home"
	SelDraw  = "draw"
	SelAway  = "away"
	SelYes   = "yes"
	SelNo    = "no"
	SelOver  = "over"
	SelUnder = "under"
	SelPush  = "push"
)

// OverUnderKey returns the market key of a total-goals line, e.g. over_under_2.5
func OverUnderKey(line float64) string {
	return overUnderPrefix + strconv.FormatFloat(line, 'f', -1, 64)
}

// AsianHandicapKey returns the market key of a home handicap line, e.g. asian_handicap_-0.5
func AsianHandicapKey(line float64) string {
	return asianHandicapPrefix + strconv.FormatFloat(line, 'f', -1, 64)
}

// OverUnderLine parses the line out of an over/under market key
func OverUnderLine(key string) (float64, bool) {
	return parseLine(key, overUnderPrefix)
}

// AsianHandicapLine parses the home handicap out of an asian handicap market key
func AsianHandicapLine(key string) (float64, bool) {
	return parseLine(key, asianHandicapPrefix)
}

func parseLine(key, prefix string) (float64, bool) {
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	line, err := strconv.ParseFloat(strings.TrimPrefix(key, prefix), 64)
	if err != nil {
		return 0, false
	}
	return line, true
}

// Probabilities is a home/draw/away triple
type Probabilities struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

func (p Probabilities) Sum() float64 {
	return p.Home + p.Draw + p.Away
}

// Normalize scales the triple to sum to 1. A degenerate triple becomes uniform.
func (p Probabilities) Normalize() Probabilities {
	s := p.Sum()
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return Probabilities{Home: 1.0 / 3, Draw: 1.0 / 3, Away: 1.0 / 3}
	}
	return Probabilities{Home: p.Home / s, Draw: p.Draw / s, Away: p.Away / s}
}

// Clamp bounds each component to [lo, hi]
func (p Probabilities) Clamp(lo, hi float64) Probabilities {
	c := func(v float64) float64 { return math.Max(lo, math.Min(hi, v)) }
	return Probabilities{Home: c(p.Home), Draw: c(p.Draw), Away: c(p.Away)}
}

// Scale multiplies every component by w
func (p Probabilities) Scale(w float64) Probabilities {
	return Probabilities{Home: p.Home * w, Draw: p.Draw * w, Away: p.Away * w}
}

func (p Probabilities) Plus(o Probabilities) Probabilities {
	return Probabilities{Home: p.Home + o.Home, Draw: p.Draw + o.Draw, Away: p.Away + o.Away}
}

// Pick returns the most likely outcome and its probability. Ties resolve home, then away, then draw.
func (p Probabilities) Pick() (Outcome, float64) {
	best, top := OutcomeHome, p.Home
	if p.Away > top {
		best, top = OutcomeAway, p.Away
	}
	if p.Draw > top {
		best, top = OutcomeDraw, p.Draw
	}
	return best, top
}

// Market maps selection names to probabilities
type Market map[string]float64

// Normalize returns a copy whose selections sum to 1. A degenerate market becomes uniform.
func (m Market) Normalize() Market {
	out := make(Market, len(m))
	total := 0.0
	for _, sel := range m.Selections() { // fixed order keeps the sum bit-for-bit reproducible
		if p := m[sel]; p > 0 {
			total += p
		}
	}
	for sel, p := range m {
		switch {
		case total <= 0:
			out[sel] = 1.0 / float64(len(m))
		case p <= 0:
			out[sel] = 0
		default:
			out[sel] = p / total
		}
	}
	return out
}

// Selections returns the selection names in sorted order
func (m Market) Selections() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExpectedGoals for both sides
type ExpectedGoals struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// ScoreDistribution maps "h-a" scores to probabilities. Other holds the mass beyond the goal cutoff.
// Truncated is the mass dropped when a distribution was cut down to its most likely scores.
type ScoreDistribution struct {
	Scores    map[string]float64 `json:"scores"`
	Other     float64            `json:"other"`
	Truncated float64            `json:"truncated,omitempty"`
}

// ScoreKey formats a score as "h-a"
func ScoreKey(home, away int) string {
	return strconv.Itoa(home) + "-" + strconv.Itoa(away)
}

// Total is the sum of all score cells plus the residual
func (d ScoreDistribution) Total() float64 {
	t := d.Other
	for _, p := range d.Scores {
		t += p
	}
	return t
}

// DoubleChance is derived from the final 1x2 and deliberately not a partition
type DoubleChance struct {
	HomeOrDraw float64 `json:"1X"`
	HomeOrAway float64 `json:"12"`
	DrawOrAway float64 `json:"X2"`
}

func NewDoubleChance(p Probabilities) DoubleChance {
	return DoubleChance{HomeOrDraw: p.Home + p.Draw, HomeOrAway: p.Home + p.Away, DrawOrAway: p.Draw + p.Away}
}

// Fallback records that a model could not run as designed and what it used instead
type Fallback struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// Fallback reasons
const (
	ReasonNoLeagueCalibration = "no_league_calibration"
	ReasonInsufficientHistory = "insufficient_team_history"
	ReasonInsufficientXG      = "insufficient_xg_data"
	ReasonMissingSnapshot     = "missing_snapshot"
	ReasonMissingForm         = "missing_form"
	ReasonMissingH2H          = "missing_h2h"
)

// Quality explains which models produced a prediction and which fallbacks were taken
type Quality struct {
	Producer       string     `json:"producer"` // the most refined model that ran as designed
	ModelsUsed     []string   `json:"modelsUsed"`
	Fallbacks      []Fallback `json:"fallbacks,omitempty"`
	XGInsufficient bool       `json:"xgInsufficient"`
}

// HasFallback reports whether any model fell back
func (q Quality) HasFallback() bool {
	return len(q.Fallbacks) > 0
}

// ModelOutput is what each individual model produces
type ModelOutput struct {
	Model         string            `json:"model"`
	Probabilities Probabilities     `json:"probabilities"`
	ExpectedGoals ExpectedGoals     `json:"expectedGoals"`
	Scores        ScoreDistribution `json:"scores"`
	Markets       map[string]Market `json:"markets"`
	Fallbacks     []Fallback        `json:"fallbacks,omitempty"`
	Skipped       bool              `json:"skipped"` // the stage did not run and returned its input
	Reasoning     []string          `json:"reasoning,omitempty"`
}

// ModelSummary keeps a compact per-model view on the combined prediction
type ModelSummary struct {
	Model         string        `json:"model"`
	Weight        float64       `json:"weight"`
	Probabilities Probabilities `json:"probabilities"`
	ExpectedGoals ExpectedGoals `json:"expectedGoals"`
	Skipped       bool          `json:"skipped"`
}

// MatchPrediction is the combined prediction for one match
type MatchPrediction struct {
	MatchID       string            `json:"matchId"`
	HomeTeamID    string            `json:"homeTeamId"`
	AwayTeamID    string            `json:"awayTeamId"`
	HomeTeam      string            `json:"homeTeam"`
	AwayTeam      string            `json:"awayTeam"`
	LeagueID      string            `json:"leagueId"`
	KickOff       time.Time         `json:"kickOff"`
	Probabilities Probabilities     `json:"probabilities"`
	ExpectedGoals ExpectedGoals     `json:"expectedGoals"`
	Scores        ScoreDistribution `json:"scores"`
	Markets       map[string]Market `json:"markets"`
	DoubleChance  DoubleChance      `json:"doubleChance"`
	Pick          Outcome           `json:"pick"`
	Confidence    float64           `json:"confidence"` // max outcome probability in percent
	Quality       Quality           `json:"quality"`
	Models        []ModelSummary    `json:"models"`
	Reasoning     []string          `json:"reasoning,omitempty"`
}

// Probability looks up a market selection
func (p *MatchPrediction) Probability(market, selection string) (float64, bool) {
	m, ok := p.Markets[market]
	if !ok {
		return 0, false
	}
	v, ok := m[selection]
	return v, ok
}
