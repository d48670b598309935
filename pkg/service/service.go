// Package service wires the prediction core to its providers and exposes the public entry points:
// Predict, FindValueBets, Recalibrate and FindDailyValueBets.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/cache"
	"github.com/richard-senior/valuebet/pkg/ensemble"
	"github.com/richard-senior/valuebet/pkg/metrics"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/poisson"
	"github.com/richard-senior/valuebet/pkg/store"
	"github.com/richard-senior/valuebet/pkg/value"
)

// ErrUnknownMatch is returned when a match id cannot be resolved to its teams
var ErrUnknownMatch = errors.New("unknown match")

// Deps are the injected providers. Any of them may be nil; the service then works without that data.
type Deps struct {
	Snapshots    SnapshotProvider
	H2H          H2HProvider
	Leagues      LeagueProvider
	History      MatchHistory
	Calibrations CalibrationStore
	Odds         OddsProvider
	Cache        PredictionCache
	Bets         BetStore
	Publisher    Publisher
	Metrics      *metrics.Registry
	Now          func() time.Time
}

// Service is safe for concurrent use. The only state shared between calls is the strength cache;
// on-demand recalibrations are serialized.
type Service struct {
	cfg       *config.Config
	deps      Deps
	strengths *poisson.StrengthCache
	predictor *ensemble.Predictor
	detector  *value.Detector
	now       func() time.Time

	calibrating sync.Mutex
}

func New(cfg *config.Config, deps Deps) *Service {
	predictor := ensemble.NewPredictor(cfg)
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		cfg:       cfg,
		deps:      deps,
		strengths: poisson.NewStrengthCache(),
		predictor: predictor,
		detector:  value.NewDetector(cfg.Value, predictor),
		now:       now,
	}
}

// Strengths exposes the calibration cache
func (s *Service) Strengths() *poisson.StrengthCache {
	return s.strengths
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

// Now is the service clock
func (s *Service) Now() time.Time {
	return s.now()
}

// Predict produces the combined prediction of a match. Team and league ids left empty are looked up
// from the fixture. Missing data never fails a prediction; the only errors are a cancelled context
// and a match whose teams cannot be resolved.
func (s *Service) Predict(ctx context.Context, matchID, homeTeamID, awayTeamID, leagueID string) (model.MatchPrediction, error) {
	fx, err := s.resolve(ctx, matchID, homeTeamID, awayTeamID, leagueID)
	if err != nil {
		return model.MatchPrediction{}, err
	}
	return s.predict(ctx, fx)
}

func (s *Service) predict(ctx context.Context, fx model.Fixture) (model.MatchPrediction, error) {
	if err := ctx.Err(); err != nil {
		return model.MatchPrediction{}, err
	}

	key := cache.Key(fx.MatchID, fx.HomeTeamID, fx.AwayTeamID, fx.LeagueID)
	if s.deps.Cache != nil {
		p, ok, err := s.deps.Cache.Get(ctx, key)
		if err != nil {
			logger.Warn("Prediction cache lookup failed", key, err)
		}
		s.deps.Metrics.ObserveCache(ok)
		if ok {
			return *p, nil
		}
	}

	in, err := s.input(ctx, fx)
	if err != nil {
		return model.MatchPrediction{}, err
	}
	pred := s.predictor.Predict(in)
	s.deps.Metrics.ObservePrediction(fx.LeagueID, pred.Quality.Fallbacks)

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, pred); err != nil {
			logger.Warn("Prediction cache store failed", key, err)
		}
	}
	return pred, nil
}

// resolve fills in whatever the caller left empty from the stored fixture
func (s *Service) resolve(ctx context.Context, matchID, homeTeamID, awayTeamID, leagueID string) (model.Fixture, error) {
	fx := model.Fixture{MatchID: matchID, HomeTeamID: homeTeamID, AwayTeamID: awayTeamID, LeagueID: leagueID}
	if s.deps.Leagues != nil && matchID != "" {
		stored, err := s.deps.Leagues.Fixture(ctx, matchID)
		switch {
		case err == nil:
			if fx.HomeTeamID == "" {
				fx.HomeTeamID = stored.HomeTeamID
			}
			if fx.AwayTeamID == "" {
				fx.AwayTeamID = stored.AwayTeamID
			}
			if fx.LeagueID == "" {
				fx.LeagueID = stored.LeagueID
			}
			fx.KickOff = stored.KickOff
			fx.Neutral = stored.Neutral
		case isContextErr(err):
			return fx, err
		case !errors.Is(err, store.ErrNotFound):
			logger.Warn("Fixture lookup failed", matchID, err)
		}
	}
	if fx.HomeTeamID == "" || fx.AwayTeamID == "" {
		return fx, fmt.Errorf("%w: %s", ErrUnknownMatch, matchID)
	}
	return fx, nil
}

// input gathers everything the models need. Provider failures degrade to missing data.
func (s *Service) input(ctx context.Context, fx model.Fixture) (ensemble.PredictionInput, error) {
	asOf := s.now().UTC()
	if !fx.KickOff.IsZero() && fx.KickOff.Before(asOf) {
		asOf = fx.KickOff
	}
	in := ensemble.PredictionInput{
		MatchID:    fx.MatchID,
		HomeTeamID: fx.HomeTeamID,
		AwayTeamID: fx.AwayTeamID,
		LeagueID:   fx.LeagueID,
		KickOff:    fx.KickOff,
		Neutral:    fx.Neutral,
		AsOf:       asOf,
	}

	if s.deps.Snapshots != nil {
		var err error
		if in.Home, err = s.snapshot(ctx, fx.HomeTeamID, asOf); err != nil {
			return in, err
		}
		if in.Away, err = s.snapshot(ctx, fx.AwayTeamID, asOf); err != nil {
			return in, err
		}
	}
	if s.deps.H2H != nil {
		h2h, err := s.deps.H2H.H2H(ctx, fx.HomeTeamID, fx.AwayTeamID, asOf)
		if isContextErr(err) {
			return in, err
		}
		if err != nil {
			logger.Warn("Head to head lookup failed", fx.MatchID, err)
		}
		in.H2H = h2h
	}

	if fx.LeagueID == "" {
		return in, nil
	}
	if err := s.ensureCalibration(ctx, fx.LeagueID); err != nil {
		return in, err
	}
	if err := s.refreshCalibration(ctx, fx.LeagueID); err != nil {
		return in, err
	}
	in.League, _ = s.strengths.League(fx.LeagueID)
	in.HomeStrength, _ = s.strengths.Team(fx.LeagueID, fx.HomeTeamID)
	in.AwayStrength, _ = s.strengths.Team(fx.LeagueID, fx.AwayTeamID)
	return in, nil
}

// needsCalibration reports whether the league has no calibration or an outdated one
func (s *Service) needsCalibration(leagueID string) bool {
	league, ok := s.strengths.League(leagueID)
	return !ok || league.Stale(s.now(), s.cfg.StaleAfter())
}

// refreshCalibration recalibrates a league that is missing or stale. A failed recalibration keeps
// whatever snapshot the cache holds.
func (s *Service) refreshCalibration(ctx context.Context, leagueID string) error {
	if s.deps.History == nil || !s.needsCalibration(leagueID) {
		return nil
	}
	s.calibrating.Lock()
	defer s.calibrating.Unlock()
	// another caller may have refreshed it while we waited
	if !s.needsCalibration(leagueID) {
		return nil
	}

	if league, ok := s.strengths.League(leagueID); ok {
		logger.Info("Calibration is stale for league", leagueID, league.UpdatedAt)
	}
	_, err := s.Recalibrate(ctx, leagueID, s.cfg.Poisson.CalibrationWindowDays)
	switch {
	case err == nil:
	case isContextErr(err):
		return err
	default:
		logger.Warn("Recalibration failed, using the previous strengths", leagueID, err)
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, teamID string, asOf time.Time) (*model.TeamSnapshot, error) {
	snap, err := s.deps.Snapshots.Snapshot(ctx, teamID, asOf)
	if isContextErr(err) {
		return nil, err
	}
	if err != nil {
		logger.Warn("Snapshot lookup failed", teamID, err)
		return nil, nil
	}
	return snap, nil
}

// ensureCalibration loads a stored calibration into the strength cache the first time a league is seen
func (s *Service) ensureCalibration(ctx context.Context, leagueID string) error {
	if _, ok := s.strengths.League(leagueID); ok || s.deps.Calibrations == nil {
		return nil
	}
	cal, err := s.deps.Calibrations.LoadCalibration(ctx, leagueID)
	switch {
	case err == nil:
		s.strengths.Store(cal)
		s.deps.Metrics.ObserveCalibration(leagueID, len(cal.Teams), cal.League.UpdatedAt)
	case isContextErr(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		logger.Debug("No stored calibration for league", leagueID)
	default:
		logger.Warn("Calibration lookup failed", leagueID, err)
	}
	return nil
}

// FindValueBets predicts the match and returns its value bets, best first. When odds is empty the
// odds provider is asked for the book.
func (s *Service) FindValueBets(ctx context.Context, matchID string, odds model.OddsBook) ([]model.ValueBet, error) {
	_, report, err := s.Evaluate(ctx, matchID, odds)
	if err != nil {
		return nil, err
	}
	return report.Bets, nil
}

// Evaluate is FindValueBets keeping the prediction and the full detector report
func (s *Service) Evaluate(ctx context.Context, matchID string, odds model.OddsBook) (model.MatchPrediction, value.Report, error) {
	fx, err := s.resolve(ctx, matchID, "", "", "")
	if err != nil {
		return model.MatchPrediction{}, value.Report{}, err
	}
	if len(odds) == 0 {
		if odds, err = s.fetchOdds(ctx, matchID); err != nil {
			return model.MatchPrediction{}, value.Report{}, err
		}
	}
	return s.evaluate(ctx, fx, odds)
}

func (s *Service) evaluate(ctx context.Context, fx model.Fixture, odds model.OddsBook) (model.MatchPrediction, value.Report, error) {
	pred, err := s.predict(ctx, fx)
	if err != nil {
		return model.MatchPrediction{}, value.Report{}, err
	}
	report := s.detector.Find(pred, odds)
	for _, b := range report.Bets {
		s.deps.Metrics.ObserveValueBet(b.Market, b.Confidence)
	}
	logger.Info("Value detection finished", fx.MatchID, len(report.Bets))
	return pred, report, nil
}

func (s *Service) fetchOdds(ctx context.Context, matchID string) (model.OddsBook, error) {
	if s.deps.Odds == nil {
		return nil, fmt.Errorf("no odds supplied for %s and no odds provider configured", matchID)
	}
	start := time.Now()
	book, err := s.deps.Odds.Odds(ctx, matchID)
	s.deps.Metrics.ObserveOddsFetch(start, err)
	return book, err
}

// Recalibrate recomputes the strengths of a league from the last lookbackDays of results, persists
// them and publishes them to the strength cache. Cached predictions of the league are dropped.
// A lookback of zero or less uses the configured window.
func (s *Service) Recalibrate(ctx context.Context, leagueID string, lookbackDays int) (model.LeagueStrength, error) {
	if s.deps.History == nil {
		return model.LeagueStrength{}, fmt.Errorf("no match history configured")
	}
	if lookbackDays <= 0 {
		lookbackDays = s.cfg.Poisson.CalibrationWindowDays
	}
	now := s.now().UTC()
	since := now.AddDate(0, 0, -lookbackDays)

	matches, err := s.deps.History.Matches(ctx, leagueID, since)
	if err != nil {
		return model.LeagueStrength{}, fmt.Errorf("failed to load matches for %s: %w", leagueID, err)
	}

	pcfg := s.cfg.Poisson
	pcfg.CalibrationWindowDays = lookbackDays
	cal := poisson.Calibrate(matches, leagueID, now, pcfg)

	if s.deps.Calibrations != nil {
		if _, err := s.deps.Calibrations.SaveCalibration(ctx, cal); err != nil {
			return model.LeagueStrength{}, err
		}
	}
	s.strengths.Store(cal)
	s.deps.Metrics.ObserveCalibration(leagueID, len(cal.Teams), cal.League.UpdatedAt)

	if inv, ok := s.deps.Cache.(cacheInvalidator); ok {
		if n, err := inv.Invalidate(ctx, leagueID); err != nil {
			logger.Warn("Failed to invalidate cached predictions", leagueID, err)
		} else if n > 0 {
			logger.Info("Invalidated cached predictions", leagueID, n)
		}
	}

	if !cal.League.Valid(s.cfg.Poisson.MinLeagueMatches) {
		logger.Warn("League calibration rests on too few matches", leagueID, cal.League.Matches)
	}
	logger.Inform("Recalibrated league", leagueID, len(matches), len(cal.Teams))
	return cal.League, nil
}

// FindDailyValueBets evaluates every unfinished fixture of the day against its odds, stores the bets found
// and returns the best limit of them ranked by rating. A limit of zero or less uses the configured daily limit.
// Matches without odds are skipped.
func (s *Service) FindDailyValueBets(ctx context.Context, day time.Time, limit int) ([]model.ValueBet, error) {
	if s.deps.Leagues == nil {
		return nil, fmt.Errorf("no fixture provider configured")
	}
	if limit <= 0 {
		limit = s.cfg.Value.DailyLimit
	}

	fixtures, err := s.deps.Leagues.Fixtures(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures for %s: %w", model.MatchDay(day), err)
	}

	var reports []value.Report
	for _, fx := range fixtures {
		if fx.Finished {
			continue
		}
		book, err := s.fetchOdds(ctx, fx.MatchID)
		if isContextErr(err) {
			return nil, err
		}
		if err != nil {
			logger.Warn("Skipping match without odds", fx.MatchID, err)
			continue
		}
		_, report, err := s.evaluate(ctx, fx, book)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	all := value.Aggregate(reports, 0)
	if s.deps.Bets != nil && len(all) > 0 {
		if _, err := s.deps.Bets.SaveValueBets(ctx, all); err != nil {
			return nil, err
		}
	}
	if len(all) > limit {
		all = all[:limit]
	}

	if s.deps.Publisher != nil && len(all) > 0 {
		if err := s.deps.Publisher.Publish(ctx, all); err != nil {
			logger.Error("Failed to publish value bets", err)
		}
	}
	logger.Inform("Daily value bets", model.MatchDay(day), len(fixtures), len(all))
	return all, nil
}

// StoredValueBets returns the bets already found for a day without evaluating anything
func (s *Service) StoredValueBets(ctx context.Context, day time.Time, limit int) ([]model.ValueBet, error) {
	if s.deps.Bets == nil {
		return nil, fmt.Errorf("no bet store configured")
	}
	bets, err := s.deps.Bets.ValueBetsForDay(ctx, day)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(bets) > limit {
		bets = bets[:limit]
	}
	return bets, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
