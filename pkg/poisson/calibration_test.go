package poisson

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/richard-senior/valuebet/internal/config"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var calibrationNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func finished(id, home, away string, hg, ag int, daysAgo int) model.FinishedMatch {
	return model.FinishedMatch{
		MatchID:    id,
		LeagueID:   "E0",
		Date:       calibrationNow.AddDate(0, 0, -daysAgo),
		HomeTeamID: home,
		AwayTeamID: away,
		HomeGoals:  hg,
		AwayGoals:  ag,
	}
}

func TestCalibrateComputesVenueWeightedStrengths(t *testing.T) {
	matches := []model.FinishedMatch{
		finished("1", "ars", "che", 2, 0, 40),
		finished("2", "che", "ars", 1, 1, 30),
		finished("3", "ars", "che", 3, 1, 20),
		finished("4", "che", "ars", 0, 1, 10),
		finished("old", "ars", "che", 9, 0, 400),
		{MatchID: "other", LeagueID: "SP1", Date: calibrationNow, HomeTeamID: "rma", AwayTeamID: "bar", HomeGoals: 5},
	}

	cal := Calibrate(matches, "E0", calibrationNow, config.DefaultConfig().Poisson)

	assert.Equal(t, 4, cal.League.Matches)
	assert.InDelta(t, 1.5, cal.League.AvgHomeGoals, 1e-12)
	assert.InDelta(t, 0.75, cal.League.AvgAwayGoals, 1e-12)
	assert.False(t, cal.League.Valid(10))
	assert.Equal(t, []string{"ars", "che"}, cal.TeamIDs())

	ars := cal.Teams["ars"]
	assert.InDelta(t, 1.5, ars.Attack, 1e-9)
	assert.InDelta(t, 0.5, ars.Defense, 1e-9)
	assert.Equal(t, 4, ars.Matches)

	che := cal.Teams["che"]
	assert.InDelta(t, 0.5, che.Attack, 1e-9)
	assert.InDelta(t, 1.5, che.Defense, 1e-9)
	assert.Equal(t, calibrationNow, che.UpdatedAt)
}

func TestCalibrateSkipsTeamsBelowMinimum(t *testing.T) {
	matches := []model.FinishedMatch{
		finished("1", "ars", "che", 2, 0, 10),
		finished("2", "ars", "liv", 1, 1, 9),
		finished("3", "ars", "che", 0, 2, 8),
	}
	cal := Calibrate(matches, "E0", calibrationNow, config.DefaultConfig().Poisson)
	assert.Contains(t, cal.Teams, "ars")
	assert.NotContains(t, cal.Teams, "che")
	assert.NotContains(t, cal.Teams, "liv")
}

func TestCalibrateUsesNeutralMultiplierOnGoallessLeague(t *testing.T) {
	var matches []model.FinishedMatch
	for i := 0; i < 4; i++ {
		matches = append(matches, finished(fmt.Sprint(i), "ars", "che", 0, 0, i+1))
	}
	cal := Calibrate(matches, "E0", calibrationNow, config.DefaultConfig().Poisson)
	assert.Equal(t, 0.0, cal.League.AvgHomeGoals)
	assert.InDelta(t, 1.0, cal.Teams["ars"].Attack, 1e-12)
	assert.InDelta(t, 1.0, cal.Teams["che"].Defense, 1e-12)
	assert.False(t, cal.League.Valid(1))
}

func TestCalibrateEmptyWindowUsesDefaults(t *testing.T) {
	cfg := config.DefaultConfig().Poisson
	cal := Calibrate(nil, "E0", calibrationNow, cfg)
	assert.Equal(t, 0, cal.League.Matches)
	assert.Equal(t, cfg.DefaultHomeGoals, cal.League.AvgHomeGoals)
	assert.Empty(t, cal.Teams)
}

func TestStrengthCacheStoreAndLookup(t *testing.T) {
	c := NewStrengthCache()
	assert.True(t, c.Stale("E0", calibrationNow, 7*24*time.Hour))
	_, ok := c.League("E0")
	assert.False(t, ok)

	cal := Calibration{
		League: model.LeagueStrength{LeagueID: "E0", AvgHomeGoals: 1.5, AvgAwayGoals: 1.1, Matches: 20, UpdatedAt: calibrationNow},
		Teams: map[string]model.TeamGoalStrength{
			"ars": model.NewTeamGoalStrength("E0", "ars", 1.3, 0.8, 10, calibrationNow),
		},
	}
	c.Store(cal)

	l, ok := c.League("E0")
	require.True(t, ok)
	assert.Equal(t, 20, l.Matches)
	team, ok := c.Team("E0", "ars")
	require.True(t, ok)
	assert.Equal(t, 1.3, team.Attack)
	_, ok = c.Team("E0", "che")
	assert.False(t, ok)

	assert.False(t, c.Stale("E0", calibrationNow.Add(24*time.Hour), 7*24*time.Hour))
	assert.True(t, c.Stale("E0", calibrationNow.Add(8*24*time.Hour), 7*24*time.Hour))
	assert.Equal(t, []string{"E0"}, c.Leagues())

	// mutating the caller's map after Store must not leak into the cache
	cal.Teams["che"] = model.NewTeamGoalStrength("E0", "che", 1, 1, 10, calibrationNow)
	_, ok = c.Team("E0", "che")
	assert.False(t, ok)
}

func TestStrengthCacheReadersNeverSeePartialUpdates(t *testing.T) {
	c := NewStrengthCache()
	version := func(v int) Calibration {
		teams := map[string]model.TeamGoalStrength{}
		for i := 0; i < 20; i++ {
			id := fmt.Sprintf("t%d", i)
			teams[id] = model.NewTeamGoalStrength("E0", id, 1, 1, v, calibrationNow)
		}
		return Calibration{League: model.LeagueStrength{LeagueID: "E0", Matches: v, AvgHomeGoals: 1, AvgAwayGoals: 1}, Teams: teams}
	}
	c.Store(version(1))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 8)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cal, ok := c.Calibration("E0")
				if !ok {
					errs <- "league missing"
					return
				}
				for _, team := range cal.Teams {
					if team.Matches != cal.League.Matches {
						errs <- fmt.Sprintf("team version %d, league version %d", team.Matches, cal.League.Matches)
						return
					}
				}
			}
		}()
	}

	for v := 2; v <= 200; v++ {
		c.Store(version(v))
	}
	close(stop)
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
	l, _ := c.League("E0")
	assert.Equal(t, 200, l.Matches)
}
