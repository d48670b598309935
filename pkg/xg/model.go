// Package xg refines upstream expected goals with the teams' own expected goals history
package xg

import (
	"fmt"
	"math"
	"time"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/poisson"
)

// Profile is a team's recency-weighted xG averages by venue
type Profile struct {
	HomeFor     float64 `json:"homeFor"`
	HomeAgainst float64 `json:"homeAgainst"`
	AwayFor     float64 `json:"awayFor"`
	AwayAgainst float64 `json:"awayAgainst"`
	For         float64 `json:"for"`
	Against     float64 `json:"against"`
	HomeMatches int     `json:"homeMatches"`
	AwayMatches int     `json:"awayMatches"`
}

// Matches is the number of xG matches behind the profile
func (p Profile) Matches() int {
	return p.HomeMatches + p.AwayMatches
}

// Input for one refinement. AsOf anchors the recency weights; when zero the most recent xG entry of either team is used.
type Input struct {
	Home     *model.TeamSnapshot
	Away     *model.TeamSnapshot
	Upstream model.ModelOutput
	Neutral  bool
	AsOf     time.Time
}

type Model struct {
	cfg    config.XGConfig
	goals  config.PoissonConfig
	params poisson.Params
}

func New(cfg config.XGConfig, goals config.PoissonConfig) *Model {
	return &Model{cfg: cfg, goals: goals, params: poisson.ParamsFromConfig(goals)}
}

type weighted struct {
	sum, weight float64
}

func (w *weighted) add(v, weight float64) {
	w.sum += v * weight
	w.weight += weight
}

func (w weighted) mean(fallback float64) float64 {
	if w.weight <= 0 {
		return fallback
	}
	return w.sum / w.weight
}

// Profile computes the recency-weighted averages. Each match is weighted DecayPerPeriod^(days ago / DecayPeriodDays).
// A venue without matches falls back to the overall average.
func (m *Model) Profile(s *model.TeamSnapshot, asOf time.Time) Profile {
	var p Profile
	if s == nil {
		return p
	}
	var homeFor, homeAgainst, awayFor, awayAgainst, allFor, allAgainst weighted
	for _, x := range s.XG {
		w := m.recency(x.Date, asOf)
		allFor.add(x.XGFor, w)
		allAgainst.add(x.XGAgainst, w)
		if x.Venue == model.Away {
			p.AwayMatches++
			awayFor.add(x.XGFor, w)
			awayAgainst.add(x.XGAgainst, w)
		} else {
			p.HomeMatches++
			homeFor.add(x.XGFor, w)
			homeAgainst.add(x.XGAgainst, w)
		}
	}
	p.For = allFor.mean(0)
	p.Against = allAgainst.mean(0)
	p.HomeFor = homeFor.mean(p.For)
	p.HomeAgainst = homeAgainst.mean(p.Against)
	p.AwayFor = awayFor.mean(p.For)
	p.AwayAgainst = awayAgainst.mean(p.Against)
	return p
}

func (m *Model) recency(date, asOf time.Time) float64 {
	if date.IsZero() || asOf.IsZero() || !date.Before(asOf) {
		return 1
	}
	days := asOf.Sub(date).Hours() / 24
	return math.Pow(m.cfg.DecayPerPeriod, days/m.cfg.DecayPeriodDays)
}

// Refine blends the teams' own xG into the upstream expected goals and rebuilds every market.
// With too little xG history on either side the upstream output is returned as is, marked skipped.
func (m *Model) Refine(in Input) model.ModelOutput {
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = latest(in.Home, in.Away)
	}
	hp, ap := m.Profile(in.Home, asOf), m.Profile(in.Away, asOf)

	if hp.Matches() < m.cfg.MinMatches || ap.Matches() < m.cfg.MinMatches {
		out := in.Upstream
		out.Model = model.ModelXG
		out.Skipped = true
		out.Fallbacks = append(append([]model.Fallback(nil), in.Upstream.Fallbacks...),
			model.Fallback{Model: model.ModelXG, Reason: model.ReasonInsufficientXG})
		return out
	}

	var own model.ExpectedGoals
	if in.Neutral {
		own = model.ExpectedGoals{Home: hp.For, Away: ap.For}
	} else {
		own = model.ExpectedGoals{
			Home: (hp.HomeFor + ap.AwayAgainst) / 2,
			Away: (ap.AwayFor + hp.HomeAgainst) / 2,
		}
	}

	w := m.cfg.BlendWeight
	up := in.Upstream.ExpectedGoals
	blended := model.ExpectedGoals{
		Home: clamp(w*own.Home+(1-w)*up.Home, m.goals.HomeGoalsMin, m.goals.HomeGoalsMax),
		Away: clamp(w*own.Away+(1-w)*up.Away, m.goals.AwayGoalsMin, m.goals.AwayGoalsMax),
	}

	out := poisson.Evaluate(model.ModelXG, blended, m.params)
	out.Reasoning = m.reasoning(in, hp, ap, out)
	return out
}

func (m *Model) reasoning(in Input, hp, ap Profile, out model.ModelOutput) []string {
	home, away := "Home side", "Away side"
	if in.Home != nil && in.Home.Name != "" {
		home = in.Home.Name
	}
	if in.Away != nil && in.Away.Name != "" {
		away = in.Away.Name
	}
	r := []string{
		fmt.Sprintf("%s create %.2f xG and concede %.2f xG at home", home, hp.HomeFor, hp.HomeAgainst),
		fmt.Sprintf("%s create %.2f xG and concede %.2f xG away", away, ap.AwayFor, ap.AwayAgainst),
		fmt.Sprintf("xG model expects %.2f - %.2f", out.ExpectedGoals.Home, out.ExpectedGoals.Away),
	}
	if yes := out.Markets[model.MarketBTTS][model.SelYes]; yes > 0.6 {
		r = append(r, fmt.Sprintf("Both teams to score is likely (%.0f%%)", yes*100))
	}
	ou := out.Markets[model.OverUnderKey(2.5)]
	switch {
	case ou[model.SelOver] > 0.6:
		r = append(r, fmt.Sprintf("Over 2.5 goals is likely (%.0f%%)", ou[model.SelOver]*100))
	case ou[model.SelUnder] > 0.6:
		r = append(r, fmt.Sprintf("Under 2.5 goals is likely (%.0f%%)", ou[model.SelUnder]*100))
	}
	return r
}

func latest(teams ...*model.TeamSnapshot) time.Time {
	var t time.Time
	for _, s := range teams {
		if s == nil {
			continue
		}
		for _, x := range s.XG {
			if x.Date.After(t) {
				t = x.Date
			}
		}
	}
	return t
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
