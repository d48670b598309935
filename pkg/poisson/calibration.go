package poisson

import (
	"sort"
	"time"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
)

// Calibration is the result of one batch run for a league
type Calibration struct {
	League model.LeagueStrength
	Teams  map[string]model.TeamGoalStrength
}

// TeamIDs returns the calibrated team ids in sorted order
func (c Calibration) TeamIDs() []string {
	ids := make([]string, 0, len(c.Teams))
	for id := range c.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// teamTally accumulates a team's goals by venue type
type teamTally struct {
	homeMatches, awayMatches int
	homeFor, homeAgainst     float64
	awayFor, awayAgainst     float64
}

func (t *teamTally) matches() int {
	return t.homeMatches + t.awayMatches
}

// sensibleRatio divides num by den, returning the neutral multiplier when den is not positive
func sensibleRatio(num, den, neutral float64) float64 {
	if den <= 0 {
		return neutral
	}
	return num / den
}

// Calibrate computes the league averages and per-team attack and defense multipliers from the
// finished matches of leagueID inside the calibration window ending at now.
// Teams with fewer than cfg.MinTeamMatches matches are left out. When the window holds no
// matches at all the league falls back to the configured default goal averages with Matches = 0,
// which keeps it invalid for prediction.
func Calibrate(matches []model.FinishedMatch, leagueID string, now time.Time, cfg config.PoissonConfig) Calibration {
	windowDays := cfg.CalibrationWindowDays
	if windowDays <= 0 {
		windowDays = 180
	}
	from := now.AddDate(0, 0, -windowDays)

	var (
		played    int
		homeGoals float64
		awayGoals float64
		tallies   = map[string]*teamTally{}
	)
	tally := func(id string) *teamTally {
		t, ok := tallies[id]
		if !ok {
			t = &teamTally{}
			tallies[id] = t
		}
		return t
	}

	for _, m := range matches {
		if m.LeagueID != leagueID || m.Date.Before(from) || m.Date.After(now) {
			continue
		}
		if m.HomeGoals < 0 || m.AwayGoals < 0 {
			continue
		}
		played++
		hg, ag := float64(m.HomeGoals), float64(m.AwayGoals)
		homeGoals += hg
		awayGoals += ag

		h := tally(m.HomeTeamID)
		h.homeMatches++
		h.homeFor += hg
		h.homeAgainst += ag

		a := tally(m.AwayTeamID)
		a.awayMatches++
		a.awayFor += ag
		a.awayAgainst += hg
	}

	league := model.LeagueStrength{
		LeagueID:     leagueID,
		AvgHomeGoals: cfg.DefaultHomeGoals,
		AvgAwayGoals: cfg.DefaultAwayGoals,
		Matches:      played,
		UpdatedAt:    now,
	}
	if played > 0 {
		league.AvgHomeGoals = homeGoals / float64(played)
		league.AvgAwayGoals = awayGoals / float64(played)
	}

	minMatches := cfg.MinTeamMatches
	if minMatches < 1 {
		minMatches = 1
	}
	neutral := cfg.MakeSensibleDefault
	if neutral <= 0 {
		neutral = 1.0
	}

	teams := make(map[string]model.TeamGoalStrength, len(tallies))
	for id, t := range tallies {
		n := t.matches()
		if n < minMatches {
			continue
		}
		var attack, defense float64
		// each venue's ratio is weighted by how many matches the team played there
		if t.homeMatches > 0 {
			hm := float64(t.homeMatches)
			attack += hm * sensibleRatio(t.homeFor/hm, league.AvgHomeGoals, neutral)
			defense += hm * sensibleRatio(t.homeAgainst/hm, league.AvgAwayGoals, neutral)
		}
		if t.awayMatches > 0 {
			am := float64(t.awayMatches)
			attack += am * sensibleRatio(t.awayFor/am, league.AvgAwayGoals, neutral)
			defense += am * sensibleRatio(t.awayAgainst/am, league.AvgHomeGoals, neutral)
		}
		attack /= float64(n)
		defense /= float64(n)
		teams[id] = model.NewTeamGoalStrength(leagueID, id, attack, defense, n, now)
	}

	return Calibration{League: league, Teams: teams}
}
