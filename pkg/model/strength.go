package model

import (
	"math"
	"time"
)

// FinishedMatch is one played match as used by calibration and snapshot building
type FinishedMatch struct {
	MatchID    string    `json:"matchId"`
	LeagueID   string    `json:"leagueId"`
	Date       time.Time `json:"date"`
	HomeTeamID string    `json:"homeTeamId"`
	AwayTeamID string    `json:"awayTeamId"`
	HomeGoals  int       `json:"homeGoals"`
	AwayGoals  int       `json:"awayGoals"`
	HasXG      bool      `json:"hasXg"`
	HomeXG     float64   `json:"homeXg"`
	AwayXG     float64   `json:"awayXg"`
}

// LeagueStrength holds league-wide scoring averages. It is only usable once
// enough matches have been observed.
type LeagueStrength struct {
	LeagueID     string    `json:"leagueId"`
	AvgHomeGoals float64   `json:"avgHomeGoals"`
	AvgAwayGoals float64   `json:"avgAwayGoals"`
	Matches      int       `json:"matches"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Valid reports whether the averages rest on at least minMatches matches
func (l *LeagueStrength) Valid(minMatches int) bool {
	return l != nil && l.Matches >= minMatches && l.AvgHomeGoals > 0 && l.AvgAwayGoals > 0
}

// Stale reports whether the calibration is older than maxAge
func (l *LeagueStrength) Stale(now time.Time, maxAge time.Duration) bool {
	return l == nil || now.Sub(l.UpdatedAt) > maxAge
}

// minStrength keeps multipliers strictly positive
const minStrength = 0.01

// TeamGoalStrength is a team's attack and defense multiplier relative to its league (1.0 = average)
type TeamGoalStrength struct {
	LeagueID  string    `json:"leagueId"`
	TeamID    string    `json:"teamId"`
	Attack    float64   `json:"attack"`
	Defense   float64   `json:"defense"`
	Matches   int       `json:"matches"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTeamGoalStrength builds a strength record, forcing both multipliers to be strictly positive
func NewTeamGoalStrength(leagueID, teamID string, attack, defense float64, matches int, at time.Time) TeamGoalStrength {
	return TeamGoalStrength{
		LeagueID:  leagueID,
		TeamID:    teamID,
		Attack:    positive(attack),
		Defense:   positive(defense),
		Matches:   matches,
		UpdatedAt: at,
	}
}

func (t *TeamGoalStrength) Stale(now time.Time, maxAge time.Duration) bool {
	return t == nil || now.Sub(t.UpdatedAt) > maxAge
}

func positive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	if v < minStrength {
		return minStrength
	}
	return v
}
