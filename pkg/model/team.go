package model

import (
	"math"
	"strings"
	"time"
)

// Result is a single past match result from a team's point of view
type Result string

const (
	Win  Result = "W"
	Draw Result = "D"
	Loss Result = "L"
)

// Points returns the form value of a result: W=3, D=1, L=0
func (r Result) Points() float64 {
	switch r {
	case Win:
		return 3
	case Draw:
		return 1
	default:
		return 0
	}
}

// MaxFormLength is how many results a snapshot keeps
const MaxFormLength = 5

// ParseForm converts a string such as "WDLWW" (most recent first) into results.
// Unknown letters are dropped.
func ParseForm(s string) []Result {
	var out []Result
	for _, c := range strings.ToUpper(s) {
		switch Result(c) {
		case Win, Draw, Loss:
			out = append(out, Result(c))
		}
		if len(out) == MaxFormLength {
			break
		}
	}
	return out
}

// Venue says whether a team played at home or away
type Venue string

const (
	Home Venue = "home"
	Away Venue = "away"
)

// VenueSplit aggregates a team's results at one venue type
type VenueSplit struct {
	Matches      int     `json:"matches"`
	Wins         int     `json:"wins"`
	Draws        int     `json:"draws"`
	Losses       int     `json:"losses"`
	GoalsFor     float64 `json:"goalsFor"`
	GoalsAgainst float64 `json:"goalsAgainst"`
}

func (v VenueSplit) WinRate() float64 {
	if v.Matches <= 0 {
		return 0
	}
	return float64(v.Wins) / float64(v.Matches)
}

func (v VenueSplit) DrawRate() float64 {
	if v.Matches <= 0 {
		return 0
	}
	return float64(v.Draws) / float64(v.Matches)
}

func (v VenueSplit) GoalsForPerMatch() float64 {
	if v.Matches <= 0 {
		return 0
	}
	return v.GoalsFor / float64(v.Matches)
}

func (v VenueSplit) GoalsAgainstPerMatch() float64 {
	if v.Matches <= 0 {
		return 0
	}
	return v.GoalsAgainst / float64(v.Matches)
}

// Add merges two splits
func (v VenueSplit) Add(o VenueSplit) VenueSplit {
	return VenueSplit{
		Matches:      v.Matches + o.Matches,
		Wins:         v.Wins + o.Wins,
		Draws:        v.Draws + o.Draws,
		Losses:       v.Losses + o.Losses,
		GoalsFor:     v.GoalsFor + o.GoalsFor,
		GoalsAgainst: v.GoalsAgainst + o.GoalsAgainst,
	}
}

func (v VenueSplit) sanitized() VenueSplit {
	nonNeg := func(i int) int {
		if i < 0 {
			return 0
		}
		return i
	}
	nonNegF := func(f float64) float64 {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	out := VenueSplit{
		Wins:         nonNeg(v.Wins),
		Draws:        nonNeg(v.Draws),
		Losses:       nonNeg(v.Losses),
		GoalsFor:     nonNegF(v.GoalsFor),
		GoalsAgainst: nonNegF(v.GoalsAgainst),
	}
	out.Matches = nonNeg(v.Matches)
	if played := out.Wins + out.Draws + out.Losses; played > out.Matches {
		out.Matches = played
	}
	return out
}

// XGMatch is one match of expected-goals history
type XGMatch struct {
	Date      time.Time `json:"date"`
	Venue     Venue     `json:"venue"`
	XGFor     float64   `json:"xgFor"`
	XGAgainst float64   `json:"xgAgainst"`
}

// TeamSnapshot is the aggregated view of a team used by every model.
// It is treated as immutable for the duration of a prediction.
type TeamSnapshot struct {
	TeamID         string     `json:"teamId"`
	Name           string     `json:"name"`
	LeagueID       string     `json:"leagueId"`
	Form           []Result   `json:"form"` // most recent first
	Home           VenueSplit `json:"home"`
	Away           VenueSplit `json:"away"`
	LeaguePosition int        `json:"leaguePosition"` // 0 when unknown
	XG             []XGMatch  `json:"xg"`
}

// NewTeamSnapshot returns a copy of in with out-of-range values normalized:
// negative counts and goals become zero, form is trimmed to its last five valid results
// and xG entries with negative or non-finite values are dropped.
func NewTeamSnapshot(in TeamSnapshot) TeamSnapshot {
	out := TeamSnapshot{
		TeamID:   in.TeamID,
		Name:     in.Name,
		LeagueID: in.LeagueID,
		Home:     in.Home.sanitized(),
		Away:     in.Away.sanitized(),
	}
	if out.Name == "" {
		out.Name = in.TeamID
	}
	for _, r := range in.Form {
		if r != Win && r != Draw && r != Loss {
			continue
		}
		out.Form = append(out.Form, r)
		if len(out.Form) == MaxFormLength {
			break
		}
	}
	if in.LeaguePosition > 0 {
		out.LeaguePosition = in.LeaguePosition
	}
	for _, x := range in.XG {
		if !validNonNegative(x.XGFor) || !validNonNegative(x.XGAgainst) {
			continue
		}
		out.XG = append(out.XG, x)
	}
	return out
}

// Overall is the home and away splits combined
func (s *TeamSnapshot) Overall() VenueSplit {
	return s.Home.Add(s.Away)
}

// XGForAverage returns the plain mean of recorded xG for, if any
func (s *TeamSnapshot) XGForAverage() (float64, bool) {
	if len(s.XG) == 0 {
		return 0, false
	}
	total := 0.0
	for _, x := range s.XG {
		total += x.XGFor
	}
	return total / float64(len(s.XG)), true
}

// H2HRecord is the head-to-head history from the perspective of the match's home team
type H2HRecord struct {
	Matches   int     `json:"matches"`
	HomeWins  int     `json:"homeWins"`
	Draws     int     `json:"draws"`
	AwayWins  int     `json:"awayWins"`
	HomeGoals float64 `json:"homeGoals"`
	AwayGoals float64 `json:"awayGoals"`
}

func (h *H2HRecord) HomeGoalsPerMatch() float64 {
	if h == nil || h.Matches <= 0 {
		return 0
	}
	return h.HomeGoals / float64(h.Matches)
}

func (h *H2HRecord) AwayGoalsPerMatch() float64 {
	if h == nil || h.Matches <= 0 {
		return 0
	}
	return h.AwayGoals / float64(h.Matches)
}

func validNonNegative(f float64) bool {
	return f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}
