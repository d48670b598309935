package model

import "time"

// Fixture is a scheduled match
type Fixture struct {
	MatchID    string    `json:"matchId"`
	LeagueID   string    `json:"leagueId"`
	HomeTeamID string    `json:"homeTeamId"`
	AwayTeamID string    `json:"awayTeamId"`
	KickOff    time.Time `json:"kickOff"`
	Neutral    bool      `json:"neutral"`
	Finished   bool      `json:"finished"`
}

// MatchDay is the UTC calendar day of t in 2006-01-02 form
func MatchDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
