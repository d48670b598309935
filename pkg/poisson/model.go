package poisson

import (
	"fmt"
	"math"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
)

// ExpectedGoalsEstimator supplies expected goals without league calibration.
// The heuristic model satisfies it.
type ExpectedGoalsEstimator interface {
	ExpectedGoals(home, away *model.TeamSnapshot, h2h *model.H2HRecord) model.ExpectedGoals
}

// Input is everything one Poisson prediction reads. Any pointer may be nil.
type Input struct {
	Home         *model.TeamSnapshot
	Away         *model.TeamSnapshot
	H2H          *model.H2HRecord
	League       *model.LeagueStrength
	HomeStrength *model.TeamGoalStrength
	AwayStrength *model.TeamGoalStrength
}

// Model is the goal strength model: league average goals scaled by attack and defense multipliers
type Model struct {
	cfg      config.PoissonConfig
	params   Params
	fallback ExpectedGoalsEstimator
}

// New creates the model. fallback may be nil, in which case uncalibrated matches use the league default averages.
func New(cfg config.PoissonConfig, fallback ExpectedGoalsEstimator) *Model {
	return &Model{cfg: cfg, params: ParamsFromConfig(cfg), fallback: fallback}
}

// Params exposes the matrix parameters so later stages build identical markets
func (m *Model) Params() Params {
	return m.params
}

// ExpectedGoals returns the clamped expected goals for both sides and, when calibration could not be used, the reason
func (m *Model) ExpectedGoals(in Input) (model.ExpectedGoals, *model.Fallback) {
	if reason := m.unusable(in); reason != "" {
		var xg model.ExpectedGoals
		if m.fallback != nil {
			xg = m.fallback.ExpectedGoals(in.Home, in.Away, in.H2H)
		} else {
			xg = model.ExpectedGoals{Home: m.cfg.DefaultHomeGoals, Away: m.cfg.DefaultAwayGoals}
		}
		return m.clamp(xg), &model.Fallback{Model: model.ModelPoisson, Reason: reason}
	}

	xg := model.ExpectedGoals{
		Home: in.League.AvgHomeGoals * in.HomeStrength.Attack * in.AwayStrength.Defense,
		Away: in.League.AvgAwayGoals * in.AwayStrength.Attack * in.HomeStrength.Defense,
	}

	if in.H2H != nil && in.H2H.Matches >= m.cfg.H2HMinMatches && in.H2H.Matches > 0 {
		w := math.Min(m.cfg.H2HMaxWeight, float64(in.H2H.Matches)/20)
		xg.Home = (1-w)*xg.Home + w*in.H2H.HomeGoalsPerMatch()
		xg.Away = (1-w)*xg.Away + w*in.H2H.AwayGoalsPerMatch()
	}
	return m.clamp(xg), nil
}

// unusable returns the fallback reason when the calibrated path cannot run
func (m *Model) unusable(in Input) string {
	if !in.League.Valid(m.cfg.MinLeagueMatches) {
		return model.ReasonNoLeagueCalibration
	}
	need := m.cfg.MinTeamMatches
	if in.HomeStrength == nil || in.AwayStrength == nil ||
		in.HomeStrength.Matches < need || in.AwayStrength.Matches < need {
		return model.ReasonInsufficientHistory
	}
	return ""
}

func (m *Model) clamp(xg model.ExpectedGoals) model.ExpectedGoals {
	c := func(v, lo, hi float64) float64 {
		if math.IsNaN(v) {
			return lo
		}
		return math.Max(lo, math.Min(hi, v))
	}
	return model.ExpectedGoals{
		Home: c(xg.Home, m.cfg.HomeGoalsMin, m.cfg.HomeGoalsMax),
		Away: c(xg.Away, m.cfg.AwayGoalsMin, m.cfg.AwayGoalsMax),
	}
}

// Predict produces the full Poisson output. It never fails: missing calibration is recorded as a fallback.
func (m *Model) Predict(in Input) model.ModelOutput {
	xg, fb := m.ExpectedGoals(in)
	matrix := NewScoreMatrix(xg.Home, xg.Away, m.params.MaxGoals)
	out := matrix.Output(model.ModelPoisson, m.params)
	if fb != nil {
		out.Fallbacks = append(out.Fallbacks, *fb)
		out.Reasoning = append(out.Reasoning, fmt.Sprintf("Poisson model fell back to form based expected goals (%s)", fb.Reason))
	}

	h, a, p := matrix.MostLikelyScore()
	out.Reasoning = append(out.Reasoning,
		fmt.Sprintf("Expected goals %.2f - %.2f, most likely score %d-%d (%.1f%%)", xg.Home, xg.Away, h, a, p*100))
	return out
}
