package model

import (
	"sort"
	"strings"
	"time"
)

// OddsQuote is one bookmaker's decimal odds for the selections of one market
type OddsQuote struct {
	Bookmaker  string             `json:"bookmaker"`
	Market     string             `json:"market"`
	Selections map[string]float64 `json:"selections"`
}

// OddsBook is bookmaker -> market -> selection -> decimal odds
type OddsBook map[string]map[string]map[string]float64

// Add records a single price, creating the nested maps as needed. Bookmaker names are lower-cased.
func (b OddsBook) Add(bookmaker, market, selection string, odds float64) {
	bookmaker = strings.ToLower(strings.TrimSpace(bookmaker))
	if b[bookmaker] == nil {
		b[bookmaker] = map[string]map[string]float64{}
	}
	if b[bookmaker][market] == nil {
		b[bookmaker][market] = map[string]float64{}
	}
	b[bookmaker][market][selection] = odds
}

// Quotes flattens the book in bookmaker then market order so iteration is deterministic
func (b OddsBook) Quotes() []OddsQuote {
	var out []OddsQuote
	for _, bookmaker := range sortedKeys(b) {
		markets := b[bookmaker]
		for _, market := range sortedKeys(markets) {
			out = append(out, OddsQuote{Bookmaker: bookmaker, Market: market, Selections: markets[market]})
		}
	}
	return out
}

// Merge copies every price of o into b, o winning on conflicts
func (b OddsBook) Merge(o OddsBook) {
	for bookmaker, markets := range o {
		for market, sels := range markets {
			for sel, odds := range sels {
				b.Add(bookmaker, market, sel, odds)
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValueBet is a priced selection where the model sees positive expected value
type ValueBet struct {
	ID                 string    `json:"id,omitempty"`
	MatchID            string    `json:"matchId"`
	HomeTeam           string    `json:"homeTeam"`
	AwayTeam           string    `json:"awayTeam"`
	KickOff            time.Time `json:"kickOff"`
	Market             string    `json:"market"`
	Selection          string    `json:"selection"`
	Bookmaker          string    `json:"bookmaker"`
	Odds               float64   `json:"odds"`
	ModelProbability   float64   `json:"modelProbability"`
	ImpliedProbability float64   `json:"impliedProbability"`
	Edge               float64   `json:"edge"`
	Value              float64   `json:"value"`
	Rating             float64   `json:"rating"`
	Rank               int       `json:"rank"`
	Confidence         string    `json:"confidence"`
	Description        string    `json:"description"`
}
