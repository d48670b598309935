// Package metrics exposes prediction and value detection counters to Prometheus
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/richard-senior/valuebet/pkg/model"
)

// Registry holds every valuebet metric on its own prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	Predictions     *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
	ValueBets       *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	OddsFetch       *prometheus.HistogramVec
	CalibratedTeams *prometheus.GaugeVec
	CalibrationTime *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valuebet_predictions_total",
			Help: "Predictions produced, by league",
		}, []string{"league"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valuebet_model_fallbacks_total",
			Help: "Model fallbacks taken, by model and reason",
		}, []string{"model", "reason"}),
		ValueBets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valuebet_value_bets_total",
			Help: "Value bets found, by market and confidence",
		}, []string{"market", "confidence"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valuebet_prediction_cache_lookups_total",
			Help: "Prediction cache lookups by result",
		}, []string{"result"}),
		OddsFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "valuebet_odds_fetch_duration_seconds",
			Help:    "Time spent fetching odds for one match",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"result"}),
		CalibratedTeams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "valuebet_calibrated_teams",
			Help: "Teams with goal strengths in the latest calibration, by league",
		}, []string{"league"}),
		CalibrationTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "valuebet_calibration_timestamp_seconds",
			Help: "Unix time of the latest calibration, by league",
		}, []string{"league"}),
	}
	r.reg.MustRegister(r.Predictions, r.Fallbacks, r.ValueBets, r.CacheLookups, r.OddsFetch, r.CalibratedTeams, r.CalibrationTime)
	return r
}

// Gatherer exposes the underlying registry for promhttp and tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObservePrediction(league string, fallbacks []model.Fallback) {
	if r == nil {
		return
	}
	r.Predictions.WithLabelValues(league).Inc()
	for _, f := range fallbacks {
		r.Fallbacks.WithLabelValues(f.Model, f.Reason).Inc()
	}
}

func (r *Registry) ObserveValueBet(market, confidence string) {
	if r == nil {
		return
	}
	r.ValueBets.WithLabelValues(market, confidence).Inc()
}

// ObserveCache records a prediction cache hit or miss
func (r *Registry) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveOddsFetch records how long an odds fetch took since start
func (r *Registry) ObserveOddsFetch(start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.OddsFetch.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

func (r *Registry) ObserveCalibration(league string, teams int, at time.Time) {
	if r == nil {
		return
	}
	r.CalibratedTeams.WithLabelValues(league).Set(float64(teams))
	r.CalibrationTime.WithLabelValues(league).Set(float64(at.Unix()))
}
