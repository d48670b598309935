// Package teams matches the team names used by different sources to one stored team id
package teams

import (
	"math"
	"regexp"
	"strings"

	"github.com/richard-senior/valuebet/internal/logger"
)

// DefaultMinScore is the lowest similarity Resolve accepts
const DefaultMinScore = 0.8

// two candidates closer than this are ambiguous
const ambiguityGap = 0.05

var (
	punctuation = regexp.MustCompile(`[^a-z0-9 ]+`)
	// affixes that sources add or drop at will
	noise = map[string]bool{"fc": true, "afc": true, "cf": true, "sc": true}
)

// Candidate is a known team
type Candidate struct {
	ID   string
	Name string
}

// Resolver finds the known team a name refers to
type Resolver struct {
	candidates []Candidate
	normalized []string
	minScore   float64
}

// NewResolver creates a resolver over the known teams. A minScore of zero or less uses DefaultMinScore.
func NewResolver(candidates []Candidate, minScore float64) *Resolver {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	r := &Resolver{candidates: candidates, minScore: minScore}
	for _, c := range candidates {
		r.normalized = append(r.normalized, Normalize(c.Name))
	}
	return r
}

// Resolve returns the id of the known team that best matches name. It fails when no team scores
// at least the minimum or when the best two are too close to call.
func (r *Resolver) Resolve(name string) (string, bool) {
	n := Normalize(name)
	if n == "" {
		return "", false
	}
	best, second := -1.0, -1.0
	bestID := ""
	for i, c := range r.candidates {
		score := FuzzyMatchScore(n, r.normalized[i])
		if n == Normalize(c.ID) {
			score = 1
		}
		if score > best {
			second = best
			best, bestID = score, c.ID
		} else if score > second {
			second = score
		}
	}
	if best < r.minScore {
		return "", false
	}
	if best-second < ambiguityGap {
		logger.Debug("Ambiguous team name", name, best, second)
		return "", false
	}
	return bestID, true
}

// Normalize lower-cases a name, drops punctuation and club affixes and collapses spaces
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "-", " ")
	s = punctuation.ReplaceAllString(s, "")
	var words []string
	for _, w := range strings.Fields(s) {
		if !noise[w] {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

// FuzzyMatch returns the edit distance between the shorter string and the best matching
// substring of the longer one
func FuzzyMatch(str1, str2 string) int {
	shorter, longer := str1, str2
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	minDistance := math.MaxInt32
	for i := 0; i <= len(longer)-len(shorter); i++ {
		distance := LevenshteinDistance(shorter, longer[i:i+len(shorter)])
		if distance < minDistance {
			minDistance = distance
		}
		if minDistance == 0 {
			break
		}
	}
	return minDistance
}

// FuzzyMatchScore is a similarity between 0 and 1 where 1 is a perfect match
func FuzzyMatchScore(str1, str2 string) float64 {
	maxLen := max(len(str1), len(str2))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(FuzzyMatch(str1, str2))/float64(maxLen)
}

// LevenshteinDistance calculates the Levenshtein distance between two strings
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
