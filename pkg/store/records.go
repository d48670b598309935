package store

import (
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
)

// Times are stored as unix seconds and booleans as 0/1 so the same tags work on sqlite and postgres.

type matchRecord struct {
	MatchID    string  `column:"match_id" dbtype:"TEXT NOT NULL" primary:"true"`
	LeagueID   string  `column:"league_id" dbtype:"TEXT NOT NULL" index:"true"`
	PlayedAt   int64   `column:"played_at" dbtype:"BIGINT NOT NULL" index:"true"`
	HomeTeamID string  `column:"home_team_id" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeamID string  `column:"away_team_id" dbtype:"TEXT NOT NULL" index:"true"`
	HomeGoals  int64   `column:"home_goals" dbtype:"BIGINT NOT NULL"`
	AwayGoals  int64   `column:"away_goals" dbtype:"BIGINT NOT NULL"`
	HasXG      int64   `column:"has_xg" dbtype:"BIGINT NOT NULL DEFAULT 0"`
	HomeXG     float64 `column:"home_xg" dbtype:"DOUBLE PRECISION"`
	AwayXG     float64 `column:"away_xg" dbtype:"DOUBLE PRECISION"`
}

func (*matchRecord) TableName() string { return "finished_matches" }

func (r *matchRecord) PrimaryKey() map[string]any {
	return map[string]any{"match_id": r.MatchID}
}

func newMatchRecord(m model.FinishedMatch) *matchRecord {
	return &matchRecord{
		MatchID:    m.MatchID,
		LeagueID:   m.LeagueID,
		PlayedAt:   m.Date.Unix(),
		HomeTeamID: m.HomeTeamID,
		AwayTeamID: m.AwayTeamID,
		HomeGoals:  int64(m.HomeGoals),
		AwayGoals:  int64(m.AwayGoals),
		HasXG:      boolInt(m.HasXG),
		HomeXG:     m.HomeXG,
		AwayXG:     m.AwayXG,
	}
}

func (r matchRecord) model() model.FinishedMatch {
	return model.FinishedMatch{
		MatchID:    r.MatchID,
		LeagueID:   r.LeagueID,
		Date:       unix(r.PlayedAt),
		HomeTeamID: r.HomeTeamID,
		AwayTeamID: r.AwayTeamID,
		HomeGoals:  int(r.HomeGoals),
		AwayGoals:  int(r.AwayGoals),
		HasXG:      r.HasXG != 0,
		HomeXG:     r.HomeXG,
		AwayXG:     r.AwayXG,
	}
}

// Team is the static part of a team: its display name, league and table position
type Team struct {
	TeamID         string `json:"teamId"`
	Name           string `json:"name"`
	LeagueID       string `json:"leagueId"`
	LeaguePosition int    `json:"leaguePosition"`
}

type teamRecord struct {
	TeamID         string `column:"team_id" dbtype:"TEXT NOT NULL" primary:"true"`
	Name           string `column:"name" dbtype:"TEXT NOT NULL"`
	LeagueID       string `column:"league_id" dbtype:"TEXT NOT NULL" index:"true"`
	LeaguePosition int64  `column:"league_position" dbtype:"BIGINT NOT NULL DEFAULT 0"`
}

func (*teamRecord) TableName() string { return "teams" }

func (r *teamRecord) PrimaryKey() map[string]any {
	return map[string]any{"team_id": r.TeamID}
}

type fixtureRecord struct {
	MatchID    string `column:"match_id" dbtype:"TEXT NOT NULL" primary:"true"`
	LeagueID   string `column:"league_id" dbtype:"TEXT NOT NULL" index:"true"`
	HomeTeamID string `column:"home_team_id" dbtype:"TEXT NOT NULL"`
	AwayTeamID string `column:"away_team_id" dbtype:"TEXT NOT NULL"`
	KickOff    int64  `column:"kick_off" dbtype:"BIGINT NOT NULL"`
	MatchDay   string `column:"match_day" dbtype:"TEXT NOT NULL" index:"true"`
	Neutral    int64  `column:"neutral" dbtype:"BIGINT NOT NULL DEFAULT 0"`
	Finished   int64  `column:"finished" dbtype:"BIGINT NOT NULL DEFAULT 0"`
}

func (*fixtureRecord) TableName() string { return "fixtures" }

func (r *fixtureRecord) PrimaryKey() map[string]any {
	return map[string]any{"match_id": r.MatchID}
}

func newFixtureRecord(f model.Fixture) *fixtureRecord {
	return &fixtureRecord{
		MatchID:    f.MatchID,
		LeagueID:   f.LeagueID,
		HomeTeamID: f.HomeTeamID,
		AwayTeamID: f.AwayTeamID,
		KickOff:    f.KickOff.Unix(),
		MatchDay:   model.MatchDay(f.KickOff),
		Neutral:    boolInt(f.Neutral),
		Finished:   boolInt(f.Finished),
	}
}

func (r fixtureRecord) model() model.Fixture {
	return model.Fixture{
		MatchID:    r.MatchID,
		LeagueID:   r.LeagueID,
		HomeTeamID: r.HomeTeamID,
		AwayTeamID: r.AwayTeamID,
		KickOff:    unix(r.KickOff),
		Neutral:    r.Neutral != 0,
		Finished:   r.Finished != 0,
	}
}

type leagueStrengthRecord struct {
	LeagueID     string  `column:"league_id" dbtype:"TEXT NOT NULL" primary:"true"`
	RunID        string  `column:"run_id" dbtype:"TEXT NOT NULL"`
	AvgHomeGoals float64 `column:"avg_home_goals" dbtype:"DOUBLE PRECISION NOT NULL"`
	AvgAwayGoals float64 `column:"avg_away_goals" dbtype:"DOUBLE PRECISION NOT NULL"`
	Matches      int64   `column:"matches" dbtype:"BIGINT NOT NULL"`
	UpdatedAt    int64   `column:"updated_at" dbtype:"BIGINT NOT NULL"`
}

func (*leagueStrengthRecord) TableName() string { return "league_strengths" }

func (r *leagueStrengthRecord) PrimaryKey() map[string]any {
	return map[string]any{"league_id": r.LeagueID}
}

type teamStrengthRecord struct {
	LeagueID  string  `column:"league_id" dbtype:"TEXT NOT NULL" primary:"true"`
	TeamID    string  `column:"team_id" dbtype:"TEXT NOT NULL" primary:"true"`
	RunID     string  `column:"run_id" dbtype:"TEXT NOT NULL" index:"true"`
	Attack    float64 `column:"attack" dbtype:"DOUBLE PRECISION NOT NULL"`
	Defense   float64 `column:"defense" dbtype:"DOUBLE PRECISION NOT NULL"`
	Matches   int64   `column:"matches" dbtype:"BIGINT NOT NULL"`
	UpdatedAt int64   `column:"updated_at" dbtype:"BIGINT NOT NULL"`
}

func (*teamStrengthRecord) TableName() string { return "team_strengths" }

func (r *teamStrengthRecord) PrimaryKey() map[string]any {
	return map[string]any{"league_id": r.LeagueID, "team_id": r.TeamID}
}

type valueBetRecord struct {
	ID                 string  `column:"id" dbtype:"TEXT NOT NULL" primary:"true"`
	RunID              string  `column:"run_id" dbtype:"TEXT NOT NULL"`
	MatchDay           string  `column:"match_day" dbtype:"TEXT NOT NULL" index:"true"`
	MatchID            string  `column:"match_id" dbtype:"TEXT NOT NULL" index:"true"`
	HomeTeam           string  `column:"home_team" dbtype:"TEXT NOT NULL"`
	AwayTeam           string  `column:"away_team" dbtype:"TEXT NOT NULL"`
	KickOff            int64   `column:"kick_off" dbtype:"BIGINT NOT NULL"`
	Market             string  `column:"market" dbtype:"TEXT NOT NULL"`
	Selection          string  `column:"selection" dbtype:"TEXT NOT NULL"`
	Bookmaker          string  `column:"bookmaker" dbtype:"TEXT NOT NULL"`
	Odds               float64 `column:"odds" dbtype:"DOUBLE PRECISION NOT NULL"`
	ModelProbability   float64 `column:"model_probability" dbtype:"DOUBLE PRECISION NOT NULL"`
	ImpliedProbability float64 `column:"implied_probability" dbtype:"DOUBLE PRECISION NOT NULL"`
	Edge               float64 `column:"edge" dbtype:"DOUBLE PRECISION NOT NULL"`
	Value              float64 `column:"value" dbtype:"DOUBLE PRECISION NOT NULL"`
	Rating             float64 `column:"rating" dbtype:"DOUBLE PRECISION NOT NULL"`
	Rank               int64   `column:"bet_rank" dbtype:"BIGINT NOT NULL"`
	Confidence         string  `column:"confidence" dbtype:"TEXT NOT NULL"`
	Description        string  `column:"description" dbtype:"TEXT NOT NULL"`
	CreatedAt          int64   `column:"created_at" dbtype:"BIGINT NOT NULL"`
}

func (*valueBetRecord) TableName() string { return "value_bets" }

func (r *valueBetRecord) PrimaryKey() map[string]any {
	return map[string]any{"id": r.ID}
}

func (r valueBetRecord) model() model.ValueBet {
	return model.ValueBet{
		ID:                 r.ID,
		MatchID:            r.MatchID,
		HomeTeam:           r.HomeTeam,
		AwayTeam:           r.AwayTeam,
		KickOff:            unix(r.KickOff),
		Market:             r.Market,
		Selection:          r.Selection,
		Bookmaker:          r.Bookmaker,
		Odds:               r.Odds,
		ModelProbability:   r.ModelProbability,
		ImpliedProbability: r.ImpliedProbability,
		Edge:               r.Edge,
		Value:              r.Value,
		Rating:             r.Rating,
		Rank:               int(r.Rank),
		Confidence:         r.Confidence,
		Description:        r.Description,
	}
}

type oddsRecord struct {
	MatchID   string  `column:"match_id" dbtype:"TEXT NOT NULL" primary:"true"`
	Bookmaker string  `column:"bookmaker" dbtype:"TEXT NOT NULL" primary:"true"`
	Market    string  `column:"market" dbtype:"TEXT NOT NULL" primary:"true"`
	Selection string  `column:"selection" dbtype:"TEXT NOT NULL" primary:"true"`
	Odds      float64 `column:"odds" dbtype:"DOUBLE PRECISION NOT NULL"`
	UpdatedAt int64   `column:"updated_at" dbtype:"BIGINT NOT NULL"`
}

func (*oddsRecord) TableName() string { return "odds" }

func (r *oddsRecord) PrimaryKey() map[string]any {
	return map[string]any{"match_id": r.MatchID, "bookmaker": r.Bookmaker, "market": r.Market, "selection": r.Selection}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
