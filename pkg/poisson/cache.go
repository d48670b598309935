package poisson

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
)

// strengths is an immutable view of every calibrated league. It is never modified once published.
type strengths struct {
	leagues map[string]model.LeagueStrength
	teams   map[string]map[string]model.TeamGoalStrength // league -> team
}

// StrengthCache is the read-mostly store of league and team strengths shared by predictions.
// Readers load the current snapshot without locking. Writers build a new snapshot and swap it in,
// so a reader sees either the old calibration or the new one, never a mix.
type StrengthCache struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[strengths]
}

func NewStrengthCache() *StrengthCache {
	c := &StrengthCache{}
	c.snap.Store(&strengths{
		leagues: map[string]model.LeagueStrength{},
		teams:   map[string]map[string]model.TeamGoalStrength{},
	})
	return c
}

// Store publishes a league calibration, replacing whatever was held for that league
func (c *StrengthCache) Store(cal Calibration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.snap.Load()
	next := &strengths{
		leagues: make(map[string]model.LeagueStrength, len(old.leagues)+1),
		teams:   make(map[string]map[string]model.TeamGoalStrength, len(old.teams)+1),
	}
	for id, l := range old.leagues {
		next.leagues[id] = l
	}
	for id, t := range old.teams {
		next.teams[id] = t // inner maps are never mutated so sharing them is safe
	}

	teams := make(map[string]model.TeamGoalStrength, len(cal.Teams))
	for id, t := range cal.Teams {
		teams[id] = t
	}
	next.leagues[cal.League.LeagueID] = cal.League
	next.teams[cal.League.LeagueID] = teams

	c.snap.Store(next)
}

// League returns a copy of the league strength, if calibrated
func (c *StrengthCache) League(leagueID string) (*model.LeagueStrength, bool) {
	l, ok := c.snap.Load().leagues[leagueID]
	if !ok {
		return nil, false
	}
	return &l, true
}

// Team returns a copy of a team's strength within a league, if calibrated
func (c *StrengthCache) Team(leagueID, teamID string) (*model.TeamGoalStrength, bool) {
	t, ok := c.snap.Load().teams[leagueID][teamID]
	if !ok {
		return nil, false
	}
	return &t, true
}

// Calibration returns the league and all of its teams from a single snapshot
func (c *StrengthCache) Calibration(leagueID string) (Calibration, bool) {
	s := c.snap.Load()
	l, ok := s.leagues[leagueID]
	if !ok {
		return Calibration{}, false
	}
	return Calibration{League: l, Teams: s.teams[leagueID]}, true
}

// Stale reports whether the league was never calibrated or its calibration is older than maxAge
func (c *StrengthCache) Stale(leagueID string, now time.Time, maxAge time.Duration) bool {
	l, ok := c.League(leagueID)
	return !ok || l.Stale(now, maxAge)
}

// Leagues lists the calibrated league ids
func (c *StrengthCache) Leagues() []string {
	s := c.snap.Load()
	ids := make([]string, 0, len(s.leagues))
	for id := range s.leagues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
