package service

import (
	"context"
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/poisson"
)

// Providers return (nil, nil) or a not-found error when data does not exist. Either way the
// prediction carries on with neutral priors.

type SnapshotProvider interface {
	Snapshot(ctx context.Context, teamID string, asOf time.Time) (*model.TeamSnapshot, error)
}

type H2HProvider interface {
	H2H(ctx context.Context, homeTeamID, awayTeamID string, asOf time.Time) (*model.H2HRecord, error)
}

// LeagueProvider resolves scheduled matches
type LeagueProvider interface {
	Fixture(ctx context.Context, matchID string) (model.Fixture, error)
	Fixtures(ctx context.Context, day time.Time) ([]model.Fixture, error)
}

type MatchHistory interface {
	Matches(ctx context.Context, leagueID string, since time.Time) ([]model.FinishedMatch, error)
}

// CalibrationStore persists league and team strengths between runs
type CalibrationStore interface {
	SaveCalibration(ctx context.Context, cal poisson.Calibration) (string, error)
	LoadCalibration(ctx context.Context, leagueID string) (poisson.Calibration, error)
}

type OddsProvider interface {
	Odds(ctx context.Context, matchID string) (model.OddsBook, error)
}

// PredictionCache stores combined predictions. A miss is (nil, false, nil).
type PredictionCache interface {
	Get(ctx context.Context, key string) (*model.MatchPrediction, bool, error)
	Set(ctx context.Context, key string, p model.MatchPrediction) error
}

// cacheInvalidator is implemented by caches that can drop a league's predictions after recalibration
type cacheInvalidator interface {
	Invalidate(ctx context.Context, leagueID string) (int, error)
}

type BetStore interface {
	SaveValueBets(ctx context.Context, bets []model.ValueBet) (string, error)
	ValueBetsForDay(ctx context.Context, day time.Time) ([]model.ValueBet, error)
}

type Publisher interface {
	Publish(ctx context.Context, bets []model.ValueBet) error
}
