package heuristic

import (
	"math"

	"github.com/richard-senior/valuebet/pkg/model"
)

var (
	homeAdvantagePrior = model.Probabilities{Home: 0.45, Draw: 0.25, Away: 0.30}
	missingFormPrior   = model.Probabilities{Home: 0.40, Draw: 0.25, Away: 0.35}
	missingH2HPrior    = model.Probabilities{Home: 0.35, Draw: 0.30, Away: 0.35}
	positionPrior      = model.Probabilities{Home: 0.40, Draw: 0.25, Away: 0.35}
	h2hRegressionPrior = model.Probabilities{Home: 0.45, Draw: 0.25, Away: 0.30}
)

// recency weights of the last five results, most recent first
var formWeights = [model.MaxFormLength]float64{1.0, 0.8, 0.6, 0.4, 0.2}

// neutralFormScore is the score of a team without recorded form
const neutralFormScore = 50.0

// Factors holds the five sub-triples before weighting
type Factors struct {
	HomeAdvantage model.Probabilities `json:"homeAdvantage"`
	Form          model.Probabilities `json:"form"`
	H2H           model.Probabilities `json:"h2h"`
	Position      model.Probabilities `json:"position"`
	AttackDefense model.Probabilities `json:"attackDefense"`
}

// FormScore maps recent results onto 0..100 where 100 is five wins
func FormScore(form []model.Result) float64 {
	total, weight := 0.0, 0.0
	for i, r := range form {
		if i >= len(formWeights) {
			break
		}
		total += r.Points() * formWeights[i]
		weight += formWeights[i]
	}
	if weight == 0 {
		return neutralFormScore
	}
	return total / weight * (100.0 / 3.0)
}

func homeAdvantage(home, away *model.TeamSnapshot) model.Probabilities {
	p := homeAdvantagePrior
	if home.Home.Matches > 0 {
		p.Home = home.Home.WinRate()
		p.Draw = home.Home.DrawRate()
		p.Away = 1 - p.Home - p.Draw
	}
	if away.Away.Matches > 0 {
		p.Away = (p.Away + away.Away.WinRate()) / 2
	}
	return p
}

func form(home, away *model.TeamSnapshot) model.Probabilities {
	if len(home.Form) == 0 && len(away.Form) == 0 {
		return missingFormPrior
	}
	hs, as := FormScore(home.Form), FormScore(away.Form)
	total := hs + as
	if total <= 0 {
		return missingFormPrior
	}
	// the 1.2 divisor leaves room for the draw
	p := model.Probabilities{Home: hs / (total * 1.2), Away: as / (total * 1.2)}
	p.Draw = 1 - p.Home - p.Away
	return p
}

func headToHead(h2h *model.H2HRecord, regression float64) model.Probabilities {
	if h2h == nil {
		return missingH2HPrior
	}
	decided := h2h.HomeWins + h2h.Draws + h2h.AwayWins
	if decided <= 0 {
		return missingH2HPrior
	}
	n := float64(decided)
	freq := model.Probabilities{
		Home: float64(h2h.HomeWins) / n,
		Draw: float64(h2h.Draws) / n,
		Away: float64(h2h.AwayWins) / n,
	}
	return freq.Scale(regression).Plus(h2hRegressionPrior.Scale(1 - regression))
}

func position(home, away *model.TeamSnapshot) model.Probabilities {
	if home.LeaguePosition <= 0 || away.LeaguePosition <= 0 {
		return positionPrior
	}
	// positive gap means the home side sits higher in the table
	gap := float64(away.LeaguePosition - home.LeaguePosition)
	switch {
	case gap > 0:
		adv := math.Min(gap/10, 0.4)
		p := model.Probabilities{Home: 0.40 + adv, Away: 0.35 - adv*0.7}
		p.Draw = 1 - p.Home - p.Away
		return p
	case gap < 0:
		adv := math.Min(-gap/10, 0.3)
		p := model.Probabilities{Home: 0.40 - adv*0.8, Away: 0.35 + adv}
		p.Draw = 1 - p.Home - p.Away
		return p
	default:
		return positionPrior
	}
}

// strengthRating is the 60/40 attack/defense composite on a 100 = one goal per match scale
func strengthRating(s *model.TeamSnapshot) float64 {
	attack, defense := 100.0, 100.0
	overall := s.Overall()
	if overall.Matches > 0 {
		attack = overall.GoalsForPerMatch() * 100
		defense = 100 / (overall.GoalsAgainstPerMatch() + 0.1)
	}
	return attack*0.6 + defense*0.4
}

func attackDefense(home, away *model.TeamSnapshot) model.Probabilities {
	hs := strengthRating(home) * 1.1
	as := strengthRating(away)
	total := hs + as
	if total <= 0 {
		return positionPrior
	}
	p := model.Probabilities{Home: hs / total * 0.75, Away: as / total * 0.75}
	p.Draw = 1 - p.Home - p.Away
	return p
}
