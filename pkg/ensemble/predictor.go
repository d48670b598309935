package ensemble

import (
	"time"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/heuristic"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/poisson"
	"github.com/richard-senior/valuebet/pkg/xg"
)

// PredictionInput is everything a prediction depends on. The same input always gives the same prediction.
type PredictionInput struct {
	MatchID      string
	HomeTeamID   string
	AwayTeamID   string
	LeagueID     string
	KickOff      time.Time
	Neutral      bool
	Home         *model.TeamSnapshot
	Away         *model.TeamSnapshot
	H2H          *model.H2HRecord
	League       *model.LeagueStrength
	HomeStrength *model.TeamGoalStrength
	AwayStrength *model.TeamGoalStrength
	AsOf         time.Time // anchor for xG recency weights
}

// Predictor owns one instance of each model and the combiner
type Predictor struct {
	Basic    *heuristic.Model
	Poisson  *poisson.Model
	XG       *xg.Model
	Combiner *Combiner
}

func NewPredictor(cfg *config.Config) *Predictor {
	basic := heuristic.New(cfg.Heuristic, cfg.Poisson)
	return &Predictor{
		Basic:    basic,
		Poisson:  poisson.New(cfg.Poisson, basic),
		XG:       xg.New(cfg.XG, cfg.Poisson),
		Combiner: NewCombiner(cfg.Models),
	}
}

// Outputs runs the three models. The xG model refines the Poisson output.
func (p *Predictor) Outputs(in PredictionInput) []model.ModelOutput {
	basic := p.Basic.Predict(in.Home, in.Away, in.H2H)
	goals := p.Poisson.Predict(poisson.Input{
		Home:         in.Home,
		Away:         in.Away,
		H2H:          in.H2H,
		League:       in.League,
		HomeStrength: in.HomeStrength,
		AwayStrength: in.AwayStrength,
	})
	refined := p.XG.Refine(xg.Input{
		Home:     in.Home,
		Away:     in.Away,
		Upstream: goals,
		Neutral:  in.Neutral,
		AsOf:     in.AsOf,
	})
	return []model.ModelOutput{basic, goals, refined}
}

// Predict runs every model and combines them. It never fails.
func (p *Predictor) Predict(in PredictionInput) model.MatchPrediction {
	pred := p.Combiner.Combine(p.Outputs(in)...)
	pred.MatchID = in.MatchID
	pred.LeagueID = in.LeagueID
	pred.KickOff = in.KickOff
	pred.HomeTeamID, pred.HomeTeam = identify(in.HomeTeamID, in.Home)
	pred.AwayTeamID, pred.AwayTeam = identify(in.AwayTeamID, in.Away)
	return pred
}

func identify(id string, s *model.TeamSnapshot) (string, string) {
	if s == nil {
		return id, id
	}
	if id == "" {
		id = s.TeamID
	}
	name := s.Name
	if name == "" {
		name = id
	}
	return id, name
}
