// Package ensemble merges the outputs of the individual models into one prediction
package ensemble

import (
	"sort"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
)

// DefaultTopScores is how many exact scores a combined prediction keeps
const DefaultTopScores = 10

type Combiner struct {
	weights   map[string]float64
	topScores int
}

func NewCombiner(w config.ModelWeights) *Combiner {
	return &Combiner{
		weights: map[string]float64{
			model.ModelBasic:   w.Basic,
			model.ModelPoisson: w.Poisson,
			model.ModelXG:      w.XG,
		},
		topScores: DefaultTopScores,
	}
}

// Weights returns the normalized weight of each output that takes part in the combination.
// Skipped outputs get zero. If every participating weight is zero they share equally.
func (c *Combiner) Weights(outputs []model.ModelOutput) []float64 {
	ws := make([]float64, len(outputs))
	total := 0.0
	active := 0
	for i, o := range outputs {
		if o.Skipped {
			continue
		}
		active++
		if w := c.weights[o.Model]; w > 0 {
			ws[i] = w
			total += w
		}
	}
	for i, o := range outputs {
		switch {
		case o.Skipped:
			ws[i] = 0
		case total > 0:
			ws[i] /= total
		default:
			ws[i] = 1 / float64(active)
		}
	}
	return ws
}

// Combine merges the outputs market by market. A market missing from a model contributes zero for that model
// and every combined market is renormalized, so it still sums to 1.
func (c *Combiner) Combine(outputs ...model.ModelOutput) model.MatchPrediction {
	ws := c.Weights(outputs)

	var pred model.MatchPrediction
	var probs model.Probabilities
	markets := map[string]model.Market{}
	scores := map[string]float64{}
	seenReason := map[string]bool{}

	for i, o := range outputs {
		w := ws[i]
		pred.Models = append(pred.Models, model.ModelSummary{
			Model:         o.Model,
			Weight:        w,
			Probabilities: o.Probabilities,
			ExpectedGoals: o.ExpectedGoals,
			Skipped:       o.Skipped,
		})
		for _, f := range o.Fallbacks {
			key := f.Model + "/" + f.Reason
			if !seenReason[key] {
				seenReason[key] = true
				pred.Quality.Fallbacks = append(pred.Quality.Fallbacks, f)
			}
			if f.Model == model.ModelXG && f.Reason == model.ReasonInsufficientXG {
				pred.Quality.XGInsufficient = true
			}
		}
		if o.Skipped {
			continue
		}
		pred.Quality.ModelsUsed = append(pred.Quality.ModelsUsed, o.Model)
		pred.Reasoning = append(pred.Reasoning, o.Reasoning...)

		probs = probs.Plus(o.Probabilities.Scale(w))
		pred.ExpectedGoals.Home += o.ExpectedGoals.Home * w
		pred.ExpectedGoals.Away += o.ExpectedGoals.Away * w

		for key, market := range o.Markets {
			combined, ok := markets[key]
			if !ok {
				combined = model.Market{}
				markets[key] = combined
			}
			for sel, p := range market {
				combined[sel] += p * w
			}
		}
		for score, p := range o.Scores.Scores {
			scores[score] += p * w
		}
	}

	for key, market := range markets {
		markets[key] = market.Normalize()
	}
	pred.Probabilities = probs.Normalize()
	markets[model.Market1X2] = model.Market{
		model.SelHome: pred.Probabilities.Home,
		model.SelDraw: pred.Probabilities.Draw,
		model.SelAway: pred.Probabilities.Away,
	}
	pred.Markets = markets
	pred.Scores = topScores(scores, c.topScores)

	pick, top := pred.Probabilities.Pick()
	pred.Pick = pick
	pred.Confidence = top * 100
	pred.DoubleChance = model.NewDoubleChance(pred.Probabilities)
	pred.Quality.Producer = producer(outputs)
	return pred
}

// producer names the most refined model that ran as designed
func producer(outputs []model.ModelOutput) string {
	ran := map[string]bool{}
	fellBack := map[string]bool{}
	for _, o := range outputs {
		if !o.Skipped {
			ran[o.Model] = true
		}
		for _, f := range o.Fallbacks {
			if f.Model == o.Model {
				fellBack[o.Model] = true
			}
		}
	}
	switch {
	case ran[model.ModelXG]:
		return model.ModelXG
	case ran[model.ModelPoisson] && !fellBack[model.ModelPoisson]:
		return model.ModelPoisson
	default:
		return model.ModelBasic
	}
}

// topScores keeps the n most likely scores and renormalizes them among themselves.
// Truncated records the share of the combined mass that was dropped.
func topScores(scores map[string]float64, n int) model.ScoreDistribution {
	type entry struct {
		score string
		p     float64
	}
	entries := make([]entry, 0, len(scores))
	for s, p := range scores {
		entries = append(entries, entry{s, p})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].p != entries[j].p {
			return entries[i].p > entries[j].p
		}
		return entries[i].score < entries[j].score
	})
	total := 0.0
	for _, e := range entries {
		total += e.p
	}
	if len(entries) > n {
		entries = entries[:n]
	}

	kept := 0.0
	for _, e := range entries {
		kept += e.p
	}
	dist := model.ScoreDistribution{Scores: make(map[string]float64, len(entries))}
	if kept <= 0 {
		return dist
	}
	for _, e := range entries {
		dist.Scores[e.score] = e.p / kept
	}
	if total > 0 {
		dist.Truncated = 1 - kept/total
	}
	return dist
}
