package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/poisson"
)

// SaveMatches stores finished matches, replacing any with the same id
func (d *DB) SaveMatches(ctx context.Context, matches []model.FinishedMatch) error {
	objs := make([]Persistable, 0, len(matches))
	for _, m := range matches {
		objs = append(objs, newMatchRecord(m))
	}
	return d.BulkSave(ctx, objs)
}

// Matches returns the finished matches of a league played at or after since, oldest first
func (d *DB) Matches(ctx context.Context, leagueID string, since time.Time) ([]model.FinishedMatch, error) {
	rows, err := findWhere[matchRecord](ctx, d, "league_id = ? AND played_at >= ? ORDER BY played_at, match_id", leagueID, since.Unix())
	if err != nil {
		return nil, err
	}
	out := make([]model.FinishedMatch, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// SaveTeam stores a team's static details
func (d *DB) SaveTeam(ctx context.Context, t Team) error {
	return d.Save(ctx, &teamRecord{
		TeamID:         t.TeamID,
		Name:           t.Name,
		LeagueID:       t.LeagueID,
		LeaguePosition: int64(t.LeaguePosition),
	})
}

// Team loads a team's static details
func (d *DB) Team(ctx context.Context, teamID string) (Team, error) {
	r := &teamRecord{TeamID: teamID}
	if err := d.FindByPrimaryKey(ctx, r); err != nil {
		return Team{}, err
	}
	return Team{TeamID: r.TeamID, Name: r.Name, LeagueID: r.LeagueID, LeaguePosition: int(r.LeaguePosition)}, nil
}

// Teams lists the teams of a league by id
func (d *DB) Teams(ctx context.Context, leagueID string) ([]Team, error) {
	rows, err := findWhere[teamRecord](ctx, d, "league_id = ? ORDER BY team_id", leagueID)
	if err != nil {
		return nil, err
	}
	out := make([]Team, len(rows))
	for i, r := range rows {
		out[i] = Team{TeamID: r.TeamID, Name: r.Name, LeagueID: r.LeagueID, LeaguePosition: int(r.LeaguePosition)}
	}
	return out, nil
}

// SaveFixture stores a scheduled match
func (d *DB) SaveFixture(ctx context.Context, f model.Fixture) error {
	return d.Save(ctx, newFixtureRecord(f))
}

// Fixture loads a scheduled match by id
func (d *DB) Fixture(ctx context.Context, matchID string) (model.Fixture, error) {
	r := &fixtureRecord{MatchID: matchID}
	if err := d.FindByPrimaryKey(ctx, r); err != nil {
		return model.Fixture{}, err
	}
	return r.model(), nil
}

// Fixtures lists the matches scheduled on the UTC day of day, by kick-off
func (d *DB) Fixtures(ctx context.Context, day time.Time) ([]model.Fixture, error) {
	rows, err := findWhere[fixtureRecord](ctx, d, "match_day = ? ORDER BY kick_off, match_id", model.MatchDay(day))
	if err != nil {
		return nil, err
	}
	out := make([]model.Fixture, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// SaveCalibration replaces the stored calibration of a league and returns the id of the run
func (d *DB) SaveCalibration(ctx context.Context, cal poisson.Calibration) (string, error) {
	runID := uuid.NewString()
	leagueID := cal.League.LeagueID

	objs := []Persistable{&leagueStrengthRecord{
		LeagueID:     leagueID,
		RunID:        runID,
		AvgHomeGoals: cal.League.AvgHomeGoals,
		AvgAwayGoals: cal.League.AvgAwayGoals,
		Matches:      int64(cal.League.Matches),
		UpdatedAt:    cal.League.UpdatedAt.Unix(),
	}}
	for _, id := range cal.TeamIDs() {
		t := cal.Teams[id]
		objs = append(objs, &teamStrengthRecord{
			LeagueID:  leagueID,
			TeamID:    id,
			RunID:     runID,
			Attack:    t.Attack,
			Defense:   t.Defense,
			Matches:   int64(t.Matches),
			UpdatedAt: t.UpdatedAt.Unix(),
		})
	}
	if err := d.BulkSave(ctx, objs); err != nil {
		return "", fmt.Errorf("failed to save calibration for %s: %w", leagueID, err)
	}

	// teams that dropped out of the window belong to an older run
	if _, err := d.db.ExecContext(ctx, rebind(d.driver, "DELETE FROM team_strengths WHERE league_id = ? AND run_id <> ?"), leagueID, runID); err != nil {
		return "", fmt.Errorf("failed to prune team strengths for %s: %w", leagueID, err)
	}
	logger.Info("Saved calibration", leagueID, runID, len(cal.Teams))
	return runID, nil
}

// LoadCalibration returns the stored calibration of a league, or ErrNotFound
func (d *DB) LoadCalibration(ctx context.Context, leagueID string) (poisson.Calibration, error) {
	lr := &leagueStrengthRecord{LeagueID: leagueID}
	if err := d.FindByPrimaryKey(ctx, lr); err != nil {
		return poisson.Calibration{}, err
	}
	rows, err := findWhere[teamStrengthRecord](ctx, d, "league_id = ? ORDER BY team_id", leagueID)
	if err != nil {
		return poisson.Calibration{}, err
	}

	cal := poisson.Calibration{
		League: model.LeagueStrength{
			LeagueID:     leagueID,
			AvgHomeGoals: lr.AvgHomeGoals,
			AvgAwayGoals: lr.AvgAwayGoals,
			Matches:      int(lr.Matches),
			UpdatedAt:    unix(lr.UpdatedAt),
		},
		Teams: make(map[string]model.TeamGoalStrength, len(rows)),
	}
	for _, r := range rows {
		cal.Teams[r.TeamID] = model.NewTeamGoalStrength(leagueID, r.TeamID, r.Attack, r.Defense, int(r.Matches), unix(r.UpdatedAt))
	}
	return cal, nil
}

// LoadCalibrations returns every stored league calibration, used to warm the strength cache at start up
func (d *DB) LoadCalibrations(ctx context.Context) ([]poisson.Calibration, error) {
	leagues, err := findWhere[leagueStrengthRecord](ctx, d, "league_id <> ? ORDER BY league_id", "")
	if err != nil {
		return nil, err
	}
	out := make([]poisson.Calibration, 0, len(leagues))
	for _, l := range leagues {
		cal, err := d.LoadCalibration(ctx, l.LeagueID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cal)
	}
	return out, nil
}

// SaveValueBets stores a batch of detected bets under the match day of their kick-off.
// Bets without an id are given one. The ids are written back into bets.
func (d *DB) SaveValueBets(ctx context.Context, bets []model.ValueBet) (string, error) {
	runID := uuid.NewString()
	now := time.Now().Unix()
	objs := make([]Persistable, 0, len(bets))
	for i := range bets {
		b := &bets[i]
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		objs = append(objs, &valueBetRecord{
			ID:                 b.ID,
			RunID:              runID,
			MatchDay:           model.MatchDay(b.KickOff),
			MatchID:            b.MatchID,
			HomeTeam:           b.HomeTeam,
			AwayTeam:           b.AwayTeam,
			KickOff:            b.KickOff.Unix(),
			Market:             b.Market,
			Selection:          b.Selection,
			Bookmaker:          b.Bookmaker,
			Odds:               b.Odds,
			ModelProbability:   b.ModelProbability,
			ImpliedProbability: b.ImpliedProbability,
			Edge:               b.Edge,
			Value:              b.Value,
			Rating:             b.Rating,
			Rank:               int64(b.Rank),
			Confidence:         b.Confidence,
			Description:        b.Description,
			CreatedAt:          now,
		})
	}
	if err := d.BulkSave(ctx, objs); err != nil {
		return "", fmt.Errorf("failed to save value bets: %w", err)
	}
	return runID, nil
}

// ValueBetsForDay returns the stored bets of a match day, best rated first
func (d *DB) ValueBetsForDay(ctx context.Context, day time.Time) ([]model.ValueBet, error) {
	rows, err := findWhere[valueBetRecord](ctx, d, "match_day = ? ORDER BY rating DESC, value DESC, match_id, market, selection, bookmaker", model.MatchDay(day))
	if err != nil {
		return nil, err
	}
	out := make([]model.ValueBet, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// SaveOdds stores the prices of a match, replacing earlier prices for the same selections
func (d *DB) SaveOdds(ctx context.Context, matchID string, book model.OddsBook) error {
	now := time.Now().Unix()
	var objs []Persistable
	for _, q := range book.Quotes() {
		for sel, odds := range q.Selections {
			objs = append(objs, &oddsRecord{
				MatchID:   matchID,
				Bookmaker: q.Bookmaker,
				Market:    q.Market,
				Selection: sel,
				Odds:      odds,
				UpdatedAt: now,
			})
		}
	}
	if err := d.BulkSave(ctx, objs); err != nil {
		return fmt.Errorf("failed to save odds for %s: %w", matchID, err)
	}
	return nil
}

// Odds returns the stored prices of a match. A match without prices yields an empty book.
func (d *DB) Odds(ctx context.Context, matchID string) (model.OddsBook, error) {
	rows, err := findWhere[oddsRecord](ctx, d, "match_id = ?", matchID)
	if err != nil {
		return nil, err
	}
	book := model.OddsBook{}
	for _, r := range rows {
		book.Add(r.Bookmaker, r.Market, r.Selection, r.Odds)
	}
	return book, nil
}
