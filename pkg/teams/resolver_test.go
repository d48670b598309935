package teams

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, LevenshteinDistance("forest", "forest"))
	assert.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 5, LevenshteinDistance("", "spurs"))
	assert.Equal(t, 5, LevenshteinDistance("spurs", ""))
}

func TestFuzzyMatchSlidesShorterString(t *testing.T) {
	assert.Equal(t, 0, FuzzyMatch("forest", "nottingham forest"))
	assert.Equal(t, 0, FuzzyMatch("nottingham forest", "forest"))
	assert.Equal(t, 1.0, FuzzyMatchScore("", ""))
	assert.InDelta(t, 1.0, FuzzyMatchScore("arsenal", "arsenal"), 1e-9)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nottm forest", Normalize("Nott'm Forest"))
	assert.Equal(t, "arsenal", Normalize(" Arsenal FC "))
	assert.Equal(t, "brighton hove albion", Normalize("Brighton & Hove Albion"))
	assert.Equal(t, "nottm forest", Normalize("nottm-forest"))
}

func TestResolve(t *testing.T) {
	r := NewResolver([]Candidate{
		{ID: "arsenal", Name: "Arsenal"},
		{ID: "nottingham-forest", Name: "Nottingham Forest"},
		{ID: "manchester-united", Name: "Manchester United"},
		{ID: "manchester-city", Name: "Manchester City"},
	}, 0)

	id, ok := r.Resolve("Arsenal FC")
	assert.True(t, ok)
	assert.Equal(t, "arsenal", id)

	id, ok = r.Resolve("Nottm Forest")
	assert.True(t, ok)
	assert.Equal(t, "nottingham-forest", id)

	id, ok = r.Resolve("manchester-city")
	assert.True(t, ok)
	assert.Equal(t, "manchester-city", id)

	_, ok = r.Resolve("Manchester")
	assert.False(t, ok, "matches both Manchester clubs equally")

	_, ok = r.Resolve("Liverpool")
	assert.False(t, ok)

	_, ok = r.Resolve("  ")
	assert.False(t, ok)
}
