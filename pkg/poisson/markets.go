package poisson

import (
	"math"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
)

// Params controls the score matrix and which derived markets are produced
type Params struct {
	MaxGoals           int
	OverUnderLines     []float64
	AsianHandicapLines []float64
	FirstHalfFactor    float64
}

// ParamsFromConfig extracts the matrix parameters from the Poisson section
func ParamsFromConfig(cfg config.PoissonConfig) Params {
	return Params{
		MaxGoals:           cfg.MaxGoals,
		OverUnderLines:     cfg.OverUnderLines,
		AsianHandicapLines: cfg.AsianHandicapLines,
		FirstHalfFactor:    cfg.FirstHalfFactor,
	}
}

// Evaluate turns a pair of expected goals into a full model output: 1x2, score distribution and every derived market
func Evaluate(name string, xg model.ExpectedGoals, p Params) model.ModelOutput {
	return NewScoreMatrix(xg.Home, xg.Away, p.MaxGoals).Output(name, p)
}

// Output packages the matrix as a model output
func (m *ScoreMatrix) Output(name string, p Params) model.ModelOutput {
	return model.ModelOutput{
		Model:         name,
		Probabilities: m.Probabilities(),
		ExpectedGoals: model.ExpectedGoals{Home: m.HomeXG, Away: m.AwayXG},
		Scores:        m.Distribution(),
		Markets:       m.Markets(p),
	}
}

// Markets derives every supported market from the matrix.
// Events that live entirely inside the cutoff (few goals, a side on zero) are summed exactly and
// their complement takes the residual. Markets that need the whole matrix are normalized over the cell mass.
func (m *ScoreMatrix) Markets(p Params) map[string]model.Market {
	markets := map[string]model.Market{}

	probs := m.Probabilities()
	markets[model.Market1X2] = model.Market{
		model.SelHome: probs.Home,
		model.SelDraw: probs.Draw,
		model.SelAway: probs.Away,
	}

	homeBlank := math.Exp(-m.HomeXG) // P(home = 0)
	awayBlank := math.Exp(-m.AwayXG)

	noBTTS := homeBlank + awayBlank - homeBlank*awayBlank
	markets[model.MarketBTTS] = model.Market{model.SelYes: 1 - noBTTS, model.SelNo: noBTTS}

	for _, line := range p.OverUnderLines {
		under := m.TotalGoalsBelow(line)
		markets[model.OverUnderKey(line)] = model.Market{model.SelOver: 1 - under, model.SelUnder: under}
	}

	for _, line := range p.AsianHandicapLines {
		markets[model.AsianHandicapKey(line)] = m.asianHandicap(line)
	}

	markets[model.MarketWinMargin] = m.winMargins()

	if dnb := probs.Home + probs.Away; dnb > 0 {
		markets[model.MarketDrawNoBet] = model.Market{model.SelHome: probs.Home / dnb, model.SelAway: probs.Away / dnb}
	}

	markets[model.MarketCleanSheetH] = model.Market{model.SelYes: awayBlank, model.SelNo: 1 - awayBlank}
	markets[model.MarketCleanSheetA] = model.Market{model.SelYes: homeBlank, model.SelNo: 1 - homeBlank}

	homeWTN := (1 - homeBlank) * awayBlank
	awayWTN := (1 - awayBlank) * homeBlank
	markets[model.MarketWinToNilH] = model.Market{model.SelYes: homeWTN, model.SelNo: 1 - homeWTN}
	markets[model.MarketWinToNilA] = model.Market{model.SelYes: awayWTN, model.SelNo: 1 - awayWTN}

	markets[model.MarketTeamToScoreH] = model.Market{model.SelYes: 1 - homeBlank, model.SelNo: homeBlank}
	markets[model.MarketTeamToScoreA] = model.Market{model.SelYes: 1 - awayBlank, model.SelNo: awayBlank}

	low := m.TotalGoalsBelow(2)
	mid := m.TotalGoalsBelow(4) - low
	high := m.TotalGoalsBelow(7) - low - mid
	markets[model.MarketGoalRange] = model.Market{"0-1": low, "2-3": mid, "4-6": high, "7+": 1 - low - mid - high}

	if p.FirstHalfFactor > 0 {
		fh := NewScoreMatrix(m.HomeXG*p.FirstHalfFactor, m.AwayXG*p.FirstHalfFactor, m.MaxGoals)
		fp := fh.Probabilities()
		markets[model.MarketFirstHalf1X2] = model.Market{model.SelHome: fp.Home, model.SelDraw: fp.Draw, model.SelAway: fp.Away}
		fhHome := math.Exp(-fh.HomeXG)
		fhAway := math.Exp(-fh.AwayXG)
		fhNo := fhHome + fhAway - fhHome*fhAway
		markets[model.MarketFirstHalfBTTS] = model.Market{model.SelYes: 1 - fhNo, model.SelNo: fhNo}
	}

	return markets
}

// asianHandicap adds line to the home score. Half lines cannot push; any push mass on them is split
// evenly. Whole lines report push as its own selection.
func (m *ScoreMatrix) asianHandicap(line float64) model.Market {
	var home, away, push float64
	for i, row := range m.Cells {
		for j, c := range row {
			diff := float64(i) + line - float64(j)
			switch {
			case math.Abs(diff) < 1e-9:
				push += c
			case diff > 0:
				home += c
			default:
				away += c
			}
		}
	}

	total := home + away + push
	if total <= 0 {
		total = 1
	}
	if line != math.Trunc(line) {
		home += push / 2
		away += push / 2
		return model.Market{model.SelHome: home / total, model.SelAway: away / total}
	}
	return model.Market{model.SelHome: home / total, model.SelAway: away / total, model.SelPush: push / total}
}

// winMargins buckets the goal difference into 1, 2 and 3+ for each side plus the draw
func (m *ScoreMatrix) winMargins() model.Market {
	market := model.Market{
		"home_1": 0, "home_2": 0, "home_3+": 0,
		"draw": 0,
		"away_1": 0, "away_2": 0, "away_3+": 0,
	}
	for i, row := range m.Cells {
		for j, c := range row {
			switch d := i - j; {
			case d == 0:
				market["draw"] += c
			case d == 1:
				market["home_1"] += c
			case d == 2:
				market["home_2"] += c
			case d >= 3:
				market["home_3+"] += c
			case d == -1:
				market["away_1"] += c
			case d == -2:
				market["away_2"] += c
			default:
				market["away_3+"] += c
			}
		}
	}
	return market.Normalize()
}
