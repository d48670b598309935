// Package heuristic is the weighted five factor model. It needs nothing but team snapshots,
// so it also supplies the expected goals used whenever a league has not been calibrated.
package heuristic

import (
	"fmt"
	"math"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/poisson"
)

type Model struct {
	cfg    config.HeuristicConfig
	goals  config.PoissonConfig
	params poisson.Params
}

func New(cfg config.HeuristicConfig, goals config.PoissonConfig) *Model {
	return &Model{cfg: cfg, goals: goals, params: poisson.ParamsFromConfig(goals)}
}

// Factors computes the five clamped and renormalized sub-triples
func (m *Model) Factors(home, away *model.TeamSnapshot, h2h *model.H2HRecord) Factors {
	home, away = orEmpty(home), orEmpty(away)
	return Factors{
		HomeAdvantage: m.bound(homeAdvantage(home, away)),
		Form:          m.bound(form(home, away)),
		H2H:           m.bound(headToHead(h2h, m.cfg.H2HRegression)),
		Position:      m.bound(position(home, away)),
		AttackDefense: m.bound(attackDefense(home, away)),
	}
}

// Combine weights the sub-triples and renormalizes
func (m *Model) Combine(f Factors) model.Probabilities {
	w := m.cfg.Weights
	return f.HomeAdvantage.Scale(w.HomeAdvantage).
		Plus(f.Form.Scale(w.Form)).
		Plus(f.H2H.Scale(w.H2H)).
		Plus(f.Position.Scale(w.Position)).
		Plus(f.AttackDefense.Scale(w.AttackDefense)).
		Normalize()
}

// ExpectedGoals blends league-typical goals with both teams' scoring and conceding rates,
// their own xG where recorded and the head to head goal averages
func (m *Model) ExpectedGoals(home, away *model.TeamSnapshot, h2h *model.H2HRecord) model.ExpectedGoals {
	home, away = orEmpty(home), orEmpty(away)
	baseHome, baseAway := m.cfg.BaseHomeGoals, m.cfg.BaseAwayGoals
	xgHome, xgAway := baseHome, baseAway

	ho, ao := home.Overall(), away.Overall()
	if ho.Matches > 0 && baseHome > 0 {
		xgHome *= ho.GoalsForPerMatch() / baseHome
	}
	if ao.Matches > 0 && baseHome > 0 {
		xgHome *= ao.GoalsAgainstPerMatch() / baseHome
	}
	if ao.Matches > 0 && baseAway > 0 {
		xgAway *= ao.GoalsForPerMatch() / baseAway
	}
	if ho.Matches > 0 && baseAway > 0 {
		xgAway *= ho.GoalsAgainstPerMatch() / baseAway
	}

	if avg, ok := home.XGForAverage(); ok {
		xgHome = (xgHome + avg) / 2
	}
	if avg, ok := away.XGForAverage(); ok {
		xgAway = (xgAway + avg) / 2
	}

	if h2h != nil && h2h.Matches > 0 {
		w := m.cfg.H2HGoalWeight
		xgHome = (1-w)*xgHome + w*h2h.HomeGoalsPerMatch()
		xgAway = (1-w)*xgAway + w*h2h.AwayGoalsPerMatch()
	}

	return model.ExpectedGoals{
		Home: clamp(xgHome, m.goals.HomeGoalsMin, m.goals.HomeGoalsMax),
		Away: clamp(xgAway, m.goals.AwayGoalsMin, m.goals.AwayGoalsMax),
	}
}

// Predict returns the factor based 1x2 with the score distribution and markets of its own expected goals
func (m *Model) Predict(home, away *model.TeamSnapshot, h2h *model.H2HRecord) model.ModelOutput {
	var fallbacks []model.Fallback
	if home == nil || away == nil {
		fallbacks = append(fallbacks, model.Fallback{Model: model.ModelBasic, Reason: model.ReasonMissingSnapshot})
	}
	factors := m.Factors(home, away, h2h)
	probs := m.Combine(factors)
	xg := m.ExpectedGoals(home, away, h2h)

	out := poisson.Evaluate(model.ModelBasic, xg, m.params)
	out.Probabilities = probs
	out.Markets[model.Market1X2] = model.Market{model.SelHome: probs.Home, model.SelDraw: probs.Draw, model.SelAway: probs.Away}
	if dnb := probs.Home + probs.Away; dnb > 0 {
		out.Markets[model.MarketDrawNoBet] = model.Market{model.SelHome: probs.Home / dnb, model.SelAway: probs.Away / dnb}
	}

	h, a := orEmpty(home), orEmpty(away)
	if len(h.Form) == 0 && len(a.Form) == 0 {
		fallbacks = append(fallbacks, model.Fallback{Model: model.ModelBasic, Reason: model.ReasonMissingForm})
	}
	if h2h == nil || h2h.HomeWins+h2h.Draws+h2h.AwayWins == 0 {
		fallbacks = append(fallbacks, model.Fallback{Model: model.ModelBasic, Reason: model.ReasonMissingH2H})
	}
	out.Fallbacks = fallbacks
	out.Reasoning = reasoning(h, a, h2h)
	return out
}

// bound clamps each component into the configured band and renormalizes
func (m *Model) bound(p model.Probabilities) model.Probabilities {
	return p.Clamp(m.cfg.ClampMin, m.cfg.ClampMax).Normalize()
}

func reasoning(home, away *model.TeamSnapshot, h2h *model.H2HRecord) []string {
	var out []string

	if len(home.Form) > 0 || len(away.Form) > 0 {
		hs, as := FormScore(home.Form), FormScore(away.Form)
		switch {
		case hs-as > 15:
			out = append(out, fmt.Sprintf("%s are in clearly better form (%.0f vs %.0f)", home.Name, hs, as))
		case as-hs > 15:
			out = append(out, fmt.Sprintf("%s are in clearly better form (%.0f vs %.0f)", away.Name, as, hs))
		default:
			out = append(out, fmt.Sprintf("Both sides are in similar form (%.0f vs %.0f)", hs, as))
		}
	}

	if home.LeaguePosition > 0 && away.LeaguePosition > 0 {
		gap := away.LeaguePosition - home.LeaguePosition
		switch {
		case gap >= 5:
			out = append(out, fmt.Sprintf("%s sit %d places higher in the table", home.Name, gap))
		case gap <= -5:
			out = append(out, fmt.Sprintf("%s sit %d places higher in the table", away.Name, -gap))
		}
	}

	if h2h != nil && h2h.Matches > 0 {
		out = append(out, fmt.Sprintf("Head to head over %d matches: %d-%d-%d", h2h.Matches, h2h.HomeWins, h2h.Draws, h2h.AwayWins))
	}
	return out
}

var empty = &model.TeamSnapshot{}

func orEmpty(s *model.TeamSnapshot) *model.TeamSnapshot {
	if s == nil {
		return empty
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
