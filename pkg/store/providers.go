package store

import (
	"context"
	"errors"
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
)

// DefaultSnapshotDays is how far back a team snapshot looks
const DefaultSnapshotDays = 365

// teamMatches returns a team's finished matches in [from, to), most recent first
func (d *DB) teamMatches(ctx context.Context, teamID string, from, to time.Time) ([]model.FinishedMatch, error) {
	rows, err := findWhere[matchRecord](ctx, d,
		"(home_team_id = ? OR away_team_id = ?) AND played_at >= ? AND played_at < ? ORDER BY played_at DESC, match_id",
		teamID, teamID, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	out := make([]model.FinishedMatch, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// Snapshot aggregates a team's matches played in the year before asOf. It returns nil, nil when
// nothing at all is known about the team.
func (d *DB) Snapshot(ctx context.Context, teamID string, asOf time.Time) (*model.TeamSnapshot, error) {
	matches, err := d.teamMatches(ctx, teamID, asOf.AddDate(0, 0, -DefaultSnapshotDays), asOf)
	if err != nil {
		return nil, err
	}
	team, err := d.Team(ctx, teamID)
	known := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if !known && len(matches) == 0 {
		return nil, nil
	}

	snap := BuildSnapshot(teamID, matches)
	if known {
		snap.Name = team.Name
		snap.LeagueID = team.LeagueID
		snap.LeaguePosition = team.LeaguePosition
	}
	out := model.NewTeamSnapshot(snap)
	return &out, nil
}

// BuildSnapshot folds matches (most recent first) into a snapshot of teamID
func BuildSnapshot(teamID string, matches []model.FinishedMatch) model.TeamSnapshot {
	snap := model.TeamSnapshot{TeamID: teamID}
	for _, m := range matches {
		var split *model.VenueSplit
		var venue model.Venue
		var goalsFor, goalsAgainst int
		var xgFor, xgAgainst float64

		switch teamID {
		case m.HomeTeamID:
			split, venue = &snap.Home, model.Home
			goalsFor, goalsAgainst = m.HomeGoals, m.AwayGoals
			xgFor, xgAgainst = m.HomeXG, m.AwayXG
		case m.AwayTeamID:
			split, venue = &snap.Away, model.Away
			goalsFor, goalsAgainst = m.AwayGoals, m.HomeGoals
			xgFor, xgAgainst = m.AwayXG, m.HomeXG
		default:
			continue
		}

		if snap.LeagueID == "" {
			snap.LeagueID = m.LeagueID
		}
		result := resultOf(goalsFor, goalsAgainst)
		if len(snap.Form) < model.MaxFormLength {
			snap.Form = append(snap.Form, result)
		}
		split.Matches++
		split.GoalsFor += float64(goalsFor)
		split.GoalsAgainst += float64(goalsAgainst)
		switch result {
		case model.Win:
			split.Wins++
		case model.Draw:
			split.Draws++
		default:
			split.Losses++
		}
		if m.HasXG {
			snap.XG = append(snap.XG, model.XGMatch{Date: m.Date, Venue: venue, XGFor: xgFor, XGAgainst: xgAgainst})
		}
	}
	return snap
}

// H2H returns the meetings of the two teams before asOf from the point of view of homeTeamID,
// or nil when they have never met
func (d *DB) H2H(ctx context.Context, homeTeamID, awayTeamID string, asOf time.Time) (*model.H2HRecord, error) {
	rows, err := findWhere[matchRecord](ctx, d,
		"((home_team_id = ? AND away_team_id = ?) OR (home_team_id = ? AND away_team_id = ?)) AND played_at < ?",
		homeTeamID, awayTeamID, awayTeamID, homeTeamID, asOf.Unix())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	h2h := &model.H2HRecord{}
	for _, r := range rows {
		forHome, forAway := int(r.HomeGoals), int(r.AwayGoals)
		if r.HomeTeamID != homeTeamID {
			forHome, forAway = forAway, forHome
		}
		h2h.Matches++
		h2h.HomeGoals += float64(forHome)
		h2h.AwayGoals += float64(forAway)
		switch resultOf(forHome, forAway) {
		case model.Win:
			h2h.HomeWins++
		case model.Draw:
			h2h.Draws++
		default:
			h2h.AwayWins++
		}
	}
	return h2h, nil
}

func resultOf(goalsFor, goalsAgainst int) model.Result {
	switch {
	case goalsFor > goalsAgainst:
		return model.Win
	case goalsFor == goalsAgainst:
		return model.Draw
	default:
		return model.Loss
	}
}
