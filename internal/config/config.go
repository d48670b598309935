package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/richard-senior/valuebet/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config contains every parameter that influences predictions, value detection and the adapters around them.
// This centralizes all magic numbers so they can be tuned from one YAML file.
type Config struct {
	Env string `yaml:"env"` // local, dev, prod

	// === ENSEMBLE ===
	Models ModelWeights `yaml:"models"`

	// === HEURISTIC MODEL ===
	Heuristic HeuristicConfig `yaml:"heuristic"`

	// === POISSON MODEL ===
	Poisson PoissonConfig `yaml:"poisson"`

	// === EXPECTED GOALS MODEL ===
	XG XGConfig `yaml:"xg"`

	// === VALUE DETECTION ===
	Value ValueConfig `yaml:"value"`

	// === ADAPTERS ===
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Feed    FeedConfig    `yaml:"feed"`
	Publish PublishConfig `yaml:"publish"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelWeights are the per-model shares of the ensemble
type ModelWeights struct {
	Basic   float64 `yaml:"basic"`
	Poisson float64 `yaml:"poisson"`
	XG      float64 `yaml:"xg"`
}

// FactorWeights are the shares of the five heuristic factors
type FactorWeights struct {
	HomeAdvantage float64 `yaml:"home_advantage"`
	Form          float64 `yaml:"form"`
	H2H           float64 `yaml:"h2h"`
	Position      float64 `yaml:"position"`
	AttackDefense float64 `yaml:"attack_defense"`
}

type HeuristicConfig struct {
	Weights       FactorWeights `yaml:"weights"`
	ClampMin      float64       `yaml:"clamp_min"`       // lower bound of any factor component (default: 0.1)
	ClampMax      float64       `yaml:"clamp_max"`       // upper bound of any factor component (default: 0.8)
	H2HRegression float64       `yaml:"h2h_regression"`  // share kept from observed h2h frequencies (default: 0.8)
	BaseHomeGoals float64       `yaml:"base_home_goals"` // league-typical home goals (default: 1.35)
	BaseAwayGoals float64       `yaml:"base_away_goals"` // league-typical away goals (default: 1.05)
	H2HGoalWeight float64       `yaml:"h2h_goal_weight"` // weight of h2h goal averages in expected goals (default: 0.3)
}

type PoissonConfig struct {
	MaxGoals              int       `yaml:"max_goals"` // score matrix covers 0..MaxGoals per side (default: 10)
	OverUnderLines        []float64 `yaml:"over_under_lines"`
	AsianHandicapLines    []float64 `yaml:"asian_handicap_lines"`
	CalibrationWindowDays int       `yaml:"calibration_window_days"` // default: 180
	MinTeamMatches        int       `yaml:"min_team_matches"`        // default: 3
	MinLeagueMatches      int       `yaml:"min_league_matches"`      // league strength invalid below this (default: 10)
	StaleAfterDays        int       `yaml:"stale_after_days"`        // default: 7
	H2HMinMatches         int       `yaml:"h2h_min_matches"`         // default: 3
	H2HMaxWeight          float64   `yaml:"h2h_max_weight"`          // default: 0.25
	DefaultHomeGoals      float64   `yaml:"default_home_goals"`      // default: 1.35
	DefaultAwayGoals      float64   `yaml:"default_away_goals"`      // default: 1.05
	HomeGoalsMin          float64   `yaml:"home_goals_min"`
	HomeGoalsMax          float64   `yaml:"home_goals_max"`
	AwayGoalsMin          float64   `yaml:"away_goals_min"`
	AwayGoalsMax          float64   `yaml:"away_goals_max"`
	MakeSensibleDefault   float64   `yaml:"make_sensible_default"` // neutral multiplier on zero denominators (default: 1.0)
	FirstHalfFactor       float64   `yaml:"first_half_factor"`     // share of expected goals in the first half (default: 0.4)
}

type XGConfig struct {
	MinMatches      int     `yaml:"min_matches"`       // default: 5
	BlendWeight     float64 `yaml:"blend_weight"`      // weight toward the xG estimate (default: 0.7)
	DecayPerPeriod  float64 `yaml:"decay_per_period"`  // recency factor per period (default: 0.9)
	DecayPeriodDays float64 `yaml:"decay_period_days"` // default: 30
}

type ValueConfig struct {
	MinValue             float64            `yaml:"min_value"`       // default: 0.05
	MinEdge              float64            `yaml:"min_edge"`        // default: 0.02
	MinProbability       float64            `yaml:"min_probability"` // default: 0.25
	MaxProbability       float64            `yaml:"max_probability"` // default: 0.75
	MaxMargin            float64            `yaml:"max_margin"`      // bookmaker overround above this is excluded (default: 0.10)
	DailyLimit           int                `yaml:"daily_limit"`     // default: 10
	DefaultReliability   float64            `yaml:"default_reliability"`
	BookmakerReliability map[string]float64 `yaml:"bookmaker_reliability"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RedisAddr     string        `yaml:"redis_addr"`
	PredictionTTL time.Duration `yaml:"prediction_ttl"`
}

type FeedConfig struct {
	URLTemplate       string        `yaml:"url_template"` // %s is replaced by the match id
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	RetryMax          int           `yaml:"retry_max"`
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	CABundle          string        `yaml:"ca_bundle"` // extra PEM roots, e.g. a corporate proxy certificate
}

type PublishConfig struct {
	Enabled      bool     `yaml:"enabled"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Topic        string   `yaml:"topic"`
}

type NotifyConfig struct {
	Enabled       bool    `yaml:"enabled"`
	TelegramToken string  `yaml:"telegram_token"`
	ChatID        int64   `yaml:"chat_id"`
	MinRating     float64 `yaml:"min_rating"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Output      string `yaml:"output"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration with all standard values
func DefaultConfig() *Config {
	return &Config{
		Env: "local",

		// === ENSEMBLE ===
		Models: ModelWeights{Basic: 0.2, Poisson: 0.4, XG: 0.4},

		// === HEURISTIC MODEL ===
		Heuristic: HeuristicConfig{
			Weights: FactorWeights{
				HomeAdvantage: 0.15,
				Form:          0.30,
				H2H:           0.25,
				Position:      0.15,
				AttackDefense: 0.15,
			},
			ClampMin:      0.1,
			ClampMax:      0.8,
			H2HRegression: 0.8,
			BaseHomeGoals: 1.35,
			BaseAwayGoals: 1.05,
			H2HGoalWeight: 0.3,
		},

		// === POISSON MODEL ===
		Poisson: PoissonConfig{
			MaxGoals:              10,
			OverUnderLines:        []float64{0.5, 1.5, 2.5, 3.5, 4.5},
			AsianHandicapLines:    []float64{-2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2},
			CalibrationWindowDays: 180,
			MinTeamMatches:        3,
			MinLeagueMatches:      10,
			StaleAfterDays:        7,
			H2HMinMatches:         3,
			H2HMaxWeight:          0.25,
			DefaultHomeGoals:      1.35,
			DefaultAwayGoals:      1.05,
			HomeGoalsMin:          0.3,
			HomeGoalsMax:          5.0,
			AwayGoalsMin:          0.2,
			AwayGoalsMax:          4.0,
			MakeSensibleDefault:   1.0,
			FirstHalfFactor:       0.4,
		},

		// === EXPECTED GOALS MODEL ===
		XG: XGConfig{
			MinMatches:      5,
			BlendWeight:     0.7,
			DecayPerPeriod:  0.9,
			DecayPeriodDays: 30,
		},

		// === VALUE DETECTION ===
		Value: ValueConfig{
			MinValue:           0.05,
			MinEdge:            0.02,
			MinProbability:     0.25,
			MaxProbability:     0.75,
			MaxMargin:          0.10,
			DailyLimit:         10,
			DefaultReliability: 0.7,
			BookmakerReliability: map[string]float64{
				"bet365":      0.90,
				"williamhill": 0.85,
				"bwin":        0.80,
				"pinnacle":    0.95,
			},
		},

		// === ADAPTERS ===
		Storage: StorageConfig{Driver: "sqlite", DSN: "valuebet.db"},
		Cache:   CacheConfig{Enabled: false, RedisAddr: "localhost:6379", PredictionTTL: 30 * time.Minute},
		Feed: FeedConfig{
			RequestsPerSecond: 1,
			Burst:             1,
			RetryMax:          3,
			Timeout:           30 * time.Second,
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		},
		Publish: PublishConfig{KafkaBrokers: []string{"localhost:9092"}, Topic: "value-bets"},
		Notify:  NotifyConfig{MinRating: 40},
		Metrics: MetricsConfig{Port: "9095"},
		Logging: LoggingConfig{Level: "info", Output: "c", Development: true},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides and normalizes the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	for _, w := range cfg.Normalize() {
		logger.Warn("Config normalized:", w)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("VALUEBET_ENV"); ok {
		c.Env = v
	}
	if v, ok := os.LookupEnv("VALUEBET_DB_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := os.LookupEnv("VALUEBET_DB_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := os.LookupEnv("VALUEBET_REDIS_ADDR"); ok {
		c.Cache.RedisAddr = v
		c.Cache.Enabled = v != ""
	}
	if v, ok := os.LookupEnv("VALUEBET_KAFKA_BROKERS"); ok && v != "" {
		c.Publish.KafkaBrokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("VALUEBET_TELEGRAM_TOKEN"); ok {
		c.Notify.TelegramToken = v
	}
	if v, ok := os.LookupEnv("VALUEBET_TELEGRAM_CHAT_ID"); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.ChatID = id
		} else {
			logger.Warn("Ignoring malformed VALUEBET_TELEGRAM_CHAT_ID", v)
		}
	}
}

// Normalize repairs out-of-range settings instead of rejecting them and reports what it changed
func (c *Config) Normalize() []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	// model weights
	mw := []*float64{&c.Models.Basic, &c.Models.Poisson, &c.Models.XG}
	if normalizeWeights(mw) {
		warn("model weights renormalized to basic=%.3f poisson=%.3f xg=%.3f", c.Models.Basic, c.Models.Poisson, c.Models.XG)
	}

	fw := &c.Heuristic.Weights
	hw := []*float64{&fw.HomeAdvantage, &fw.Form, &fw.H2H, &fw.Position, &fw.AttackDefense}
	if normalizeWeights(hw) {
		warn("heuristic factor weights renormalized")
	}

	// probability-like thresholds
	for _, t := range []struct {
		name string
		p    *float64
	}{
		{"value.min_edge", &c.Value.MinEdge},
		{"value.min_probability", &c.Value.MinProbability},
		{"value.max_probability", &c.Value.MaxProbability},
		{"value.max_margin", &c.Value.MaxMargin},
		{"xg.blend_weight", &c.XG.BlendWeight},
		{"poisson.h2h_max_weight", &c.Poisson.H2HMaxWeight},
		{"heuristic.clamp_min", &c.Heuristic.ClampMin},
		{"heuristic.clamp_max", &c.Heuristic.ClampMax},
		{"heuristic.h2h_regression", &c.Heuristic.H2HRegression},
	} {
		if clamped := clamp01(*t.p); clamped != *t.p {
			warn("%s=%v clamped to %v", t.name, *t.p, clamped)
			*t.p = clamped
		}
	}
	if c.Value.MinValue < 0 || math.IsNaN(c.Value.MinValue) {
		warn("value.min_value=%v raised to 0", c.Value.MinValue)
		c.Value.MinValue = 0
	}
	if c.Value.MinProbability > c.Value.MaxProbability {
		warn("value probability band reversed, swapping")
		c.Value.MinProbability, c.Value.MaxProbability = c.Value.MaxProbability, c.Value.MinProbability
	}
	if c.Heuristic.ClampMin > c.Heuristic.ClampMax {
		warn("heuristic clamp bounds reversed, swapping")
		c.Heuristic.ClampMin, c.Heuristic.ClampMax = c.Heuristic.ClampMax, c.Heuristic.ClampMin
	}
	if c.Value.DefaultReliability <= 0 || c.Value.DefaultReliability > 1 {
		warn("value.default_reliability=%v reset to 0.7", c.Value.DefaultReliability)
		c.Value.DefaultReliability = 0.7
	}
	c.Value.BookmakerReliability = normalizeBookmakers(c.Value.BookmakerReliability, warn)

	// goal cutoff and windows
	if c.Poisson.MaxGoals < 5 {
		warn("poisson.max_goals=%d raised to 5", c.Poisson.MaxGoals)
		c.Poisson.MaxGoals = 5
	}
	if c.Poisson.CalibrationWindowDays <= 0 {
		warn("poisson.calibration_window_days reset to 180")
		c.Poisson.CalibrationWindowDays = 180
	}
	if c.Poisson.StaleAfterDays <= 0 {
		warn("poisson.stale_after_days reset to 7")
		c.Poisson.StaleAfterDays = 7
	}
	if c.Poisson.MinTeamMatches < 1 {
		warn("poisson.min_team_matches reset to 3")
		c.Poisson.MinTeamMatches = 3
	}
	if c.Poisson.MakeSensibleDefault <= 0 {
		warn("poisson.make_sensible_default reset to 1.0")
		c.Poisson.MakeSensibleDefault = 1.0
	}
	if c.XG.DecayPerPeriod <= 0 || c.XG.DecayPerPeriod > 1 {
		warn("xg.decay_per_period reset to 0.9")
		c.XG.DecayPerPeriod = 0.9
	}
	if c.XG.DecayPeriodDays <= 0 {
		warn("xg.decay_period_days reset to 30")
		c.XG.DecayPeriodDays = 30
	}
	if c.Value.DailyLimit <= 0 {
		warn("value.daily_limit reset to 10")
		c.Value.DailyLimit = 10
	}
	return warnings
}

// Validate reports settings that cannot be repaired
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Publish.Enabled && len(c.Publish.KafkaBrokers) == 0 {
		return fmt.Errorf("publishing enabled without kafka brokers")
	}
	if c.Notify.Enabled && c.Notify.TelegramToken == "" {
		return fmt.Errorf("telegram notifications enabled without a token")
	}
	return nil
}

// Reliability returns the configured weight for a bookmaker, or the default for unknown ones
func (c *Config) Reliability(bookmaker string) float64 {
	return c.Value.Reliability(bookmaker)
}

func (v ValueConfig) Reliability(bookmaker string) float64 {
	if r, ok := v.BookmakerReliability[BookmakerKey(bookmaker)]; ok {
		return r
	}
	return v.DefaultReliability
}

// BookmakerKey is the lookup form of a bookmaker name: lower case without spaces
func BookmakerKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
}

// normalizeBookmakers rekeys the reliability table by BookmakerKey and clamps the weights.
// Keys written as configured, such as "Bet365", win over the defaults they collide with.
func normalizeBookmakers(in map[string]float64, warn func(string, ...any)) map[string]float64 {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ki, kj := BookmakerKey(names[i]) == names[i], BookmakerKey(names[j]) == names[j]
		if ki != kj {
			return ki
		}
		return names[i] < names[j]
	})

	out := make(map[string]float64, len(in))
	for _, name := range names {
		r := in[name]
		if clamped := clamp01(r); clamped != r {
			warn("reliability for %s clamped to %v", name, clamped)
			r = clamped
		}
		out[BookmakerKey(name)] = r
	}
	return out
}

// StaleAfter returns the calibration max age
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Poisson.StaleAfterDays) * 24 * time.Hour
}

// LogLevel maps the configured level name onto the logger's levels
func (c *Config) LogLevel() logger.LogLevel {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// normalizeWeights scales the weights to sum to 1. Negative weights become 0; all-zero weights become equal.
func normalizeWeights(ws []*float64) bool {
	changed := false
	total := 0.0
	for _, w := range ws {
		if *w < 0 || math.IsNaN(*w) {
			*w = 0
			changed = true
		}
		total += *w
	}
	if total == 0 {
		for _, w := range ws {
			*w = 1.0 / float64(len(ws))
		}
		return true
	}
	if math.Abs(total-1) > 1e-9 {
		for _, w := range ws {
			*w /= total
		}
		changed = true
	}
	return changed
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
