package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/cache"
	"github.com/richard-senior/valuebet/pkg/metrics"
	"github.com/richard-senior/valuebet/pkg/oddsfeed"
	"github.com/richard-senior/valuebet/pkg/publish"
	"github.com/richard-senior/valuebet/pkg/report"
	"github.com/richard-senior/valuebet/pkg/service"
	"github.com/richard-senior/valuebet/pkg/store"
	"github.com/richard-senior/valuebet/pkg/transport"
)

// app holds everything a command needs, built from the configuration
type app struct {
	cfg      *config.Config
	db       *store.DB
	cache    *cache.RedisCache
	metrics  *metrics.Registry
	svc      *service.Service
	renderer *report.Renderer
	closers  []io.Closer
}

// newApp loads the configuration and connects the adapters it enables. Optional adapters that fail to
// connect are logged and left out. output overrides the configured log destination when not zero.
func newApp(ctx context.Context, output rune) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if output == 0 {
		output = 'c'
		if o := cfg.Logging.Output; o == "f" || o == "b" {
			output = rune(o[0])
		}
	}
	logger.SetLevel(cfg.LogLevel())
	logger.SetDevelopment(cfg.Logging.Development)
	logger.SetLogOutput(output)

	db, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		db:       db,
		metrics:  metrics.NewRegistry(),
		renderer: report.NewRenderer(domain(cfg.Feed.URLTemplate)),
		closers:  []io.Closer{db},
	}

	deps := service.Deps{
		Snapshots:    db,
		H2H:          db,
		Leagues:      db,
		History:      db,
		Calibrations: db,
		Bets:         db,
		Metrics:      a.metrics,
	}

	if cfg.Cache.Enabled {
		rc, err := cache.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.PredictionTTL)
		if err != nil {
			logger.Warn("Prediction cache unavailable, carrying on without it", err)
		} else {
			a.cache = rc
			a.closers = append(a.closers, rc)
			deps.Cache = rc
		}
	}

	// imported prices first, then the live feed
	odds := oddsfeed.Chain{db}
	if cfg.Feed.URLTemplate != "" {
		odds = append(odds, oddsfeed.New(transport.NewClient(transport.OptionsFromConfig(cfg.Feed)), cfg.Feed.URLTemplate))
	}
	deps.Odds = odds

	var pubs publish.Multi
	if cfg.Publish.Enabled && len(cfg.Publish.KafkaBrokers) > 0 {
		kp := publish.NewKafkaPublisher(cfg.Publish.KafkaBrokers, cfg.Publish.Topic)
		a.closers = append(a.closers, kp)
		pubs = append(pubs, kp)
	}
	if cfg.Notify.Enabled {
		tn, err := publish.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.ChatID, cfg.Notify.MinRating)
		if err != nil {
			logger.Warn("Telegram notifications unavailable", err)
		} else {
			pubs = append(pubs, tn)
		}
	}
	if len(pubs) > 0 {
		deps.Publisher = pubs
	}

	a.svc = service.New(cfg, deps)
	return a, nil
}

// health fails when the database or an enabled cache cannot be reached
func (a *app) health(ctx context.Context) error {
	if err := a.db.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.cache != nil {
		if err := a.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// domain is the scheme and host of the odds feed, used to resolve relative links in reports
func domain(urlTemplate string) string {
	u, err := url.Parse(strings.ReplaceAll(urlTemplate, "%s", "x"))
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
