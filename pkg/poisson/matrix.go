package poisson

import (
	"math"

	"github.com/richard-senior/valuebet/pkg/model"
)

// PMF returns P(X = k) for a Poisson variable with mean lambda.
// The product form avoids overflowing k! for the goal counts we use.
func PMF(k int, lambda float64) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	p := math.Exp(-lambda)
	for i := 1; i <= k; i++ {
		p *= lambda / float64(i)
	}
	return p
}

// goalDistribution returns P(X = 0..maxGoals)
func goalDistribution(lambda float64, maxGoals int) []float64 {
	probs := make([]float64, maxGoals+1)
	for k := 0; k <= maxGoals; k++ {
		probs[k] = PMF(k, lambda)
	}
	return probs
}

// ScoreMatrix holds P(home = i, away = j) for i, j in 0..MaxGoals under independent Poisson goals.
// Other is the probability of any score with a side beyond the cutoff, so cells plus Other sum to 1.
type ScoreMatrix struct {
	HomeXG   float64
	AwayXG   float64
	MaxGoals int
	Cells    [][]float64
	Other    float64
}

// NewScoreMatrix builds the truncated score matrix as the outer product of both goal distributions
func NewScoreMatrix(homeXG, awayXG float64, maxGoals int) *ScoreMatrix {
	if maxGoals < 1 {
		maxGoals = 1
	}
	homeProbs := goalDistribution(homeXG, maxGoals)
	awayProbs := goalDistribution(awayXG, maxGoals)

	cells := make([][]float64, len(homeProbs))
	total := 0.0
	for i := range homeProbs {
		cells[i] = make([]float64, len(awayProbs))
		for j := range awayProbs {
			cells[i][j] = homeProbs[i] * awayProbs[j]
			total += cells[i][j]
		}
	}

	other := 1 - total
	if other < 0 {
		other = 0
	}
	return &ScoreMatrix{HomeXG: homeXG, AwayXG: awayXG, MaxGoals: maxGoals, Cells: cells, Other: other}
}

// CellMass is the probability covered by the matrix cells
func (m *ScoreMatrix) CellMass() float64 {
	return 1 - m.Other
}

// Outcomes sums the lower triangle, the diagonal and the upper triangle of the matrix
func (m *ScoreMatrix) Outcomes() (homeWin, draw, awayWin float64) {
	for i, row := range m.Cells {
		for j, p := range row {
			if i > j {
				homeWin += p
			} else if i == j {
				draw += p
			} else {
				awayWin += p
			}
		}
	}
	return homeWin, draw, awayWin
}

// Probabilities is the normalized 1x2 triple
func (m *ScoreMatrix) Probabilities() model.Probabilities {
	h, d, a := m.Outcomes()
	return model.Probabilities{Home: h, Draw: d, Away: a}.Normalize()
}

// TotalGoalsBelow is P(home + away < line) using only in-matrix cells.
// For lines below the cutoff this is exact.
func (m *ScoreMatrix) TotalGoalsBelow(line float64) float64 {
	p := 0.0
	for i, row := range m.Cells {
		for j, c := range row {
			if float64(i+j) < line {
				p += c
			}
		}
	}
	return p
}

// Distribution exports every cell as an "h-a" keyed score distribution
func (m *ScoreMatrix) Distribution() model.ScoreDistribution {
	scores := make(map[string]float64, (m.MaxGoals+1)*(m.MaxGoals+1))
	for i, row := range m.Cells {
		for j, p := range row {
			scores[model.ScoreKey(i, j)] = p
		}
	}
	return model.ScoreDistribution{Scores: scores, Other: m.Other}
}

// MostLikelyScore returns the single most probable cell
func (m *ScoreMatrix) MostLikelyScore() (home, away int, p float64) {
	for i, row := range m.Cells {
		for j, c := range row {
			if c > p {
				home, away, p = i, j, c
			}
		}
	}
	return home, away, p
}
