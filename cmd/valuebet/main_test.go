package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/oddsfeed"
	"github.com/richard-senior/valuebet/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Div,Date,Time,HomeTeam,AwayTeam,FTHG,FTAG,B365H,B365D,B365A\n" +
	"E0,01/03/2025,12:30,Arsenal,Chelsea,2,0,1.90,3.60,4.20\n" +
	"E0,08/03/2025,15:00,Chelsea,Arsenal,,,2.60,3.40,2.70\n"

func TestImportRows(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SaveTeam(ctx, store.Team{TeamID: "ars", Name: "Arsenal FC", LeagueID: "E0", LeaguePosition: 2}))

	rows, err := oddsfeed.ParseFootballData(strings.NewReader(sampleCSV), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	played, fixtures, err := importRows(ctx, db, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, played)
	assert.Equal(t, 1, fixtures)

	// the stored spelling wins and keeps its details
	team, err := db.Team(ctx, "ars")
	require.NoError(t, err)
	assert.Equal(t, 2, team.LeaguePosition)
	_, err = db.Team(ctx, "arsenal")
	assert.ErrorIs(t, err, store.ErrNotFound)

	team, err = db.Team(ctx, "chelsea")
	require.NoError(t, err)
	assert.Equal(t, "Chelsea", team.Name)

	results, err := db.Matches(ctx, "E0", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].HomeGoals)
	assert.Equal(t, "ars", results[0].HomeTeamID)
	assert.Equal(t, "20250301_ars_chelsea", results[0].MatchID)

	upcoming, err := db.Fixtures(ctx, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.False(t, upcoming[0].Finished)

	book, err := db.Odds(ctx, upcoming[0].MatchID)
	require.NoError(t, err)
	assert.Equal(t, 2.7, book["bet365"][model.Market1X2][model.SelAway])

	// importing again keeps one copy of everything
	_, _, err = importRows(ctx, db, rows)
	require.NoError(t, err)
	results, err = db.Matches(ctx, "E0", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestParseDay(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	day, err := parseDay("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), day)

	day, err = parseDay("2025-04-12", now)
	require.NoError(t, err)
	assert.Equal(t, 12, day.Day())

	_, err = parseDay("12/04/2025", now)
	assert.Error(t, err)
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "https://odds.example", domain("https://odds.example/match/%s"))
	assert.Equal(t, "", domain(""))
}

func TestReadOdds(t *testing.T) {
	book, err := readOdds("")
	require.NoError(t, err)
	assert.Nil(t, book)

	path := filepath.Join(t.TempDir(), "odds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Bet365":{"1x2":{"home":2.2,"draw":3.5,"away":3.1}}}`), 0o644))
	book, err = readOdds(path)
	require.NoError(t, err)
	assert.Equal(t, 2.2, book["bet365"][model.Market1X2][model.SelHome])

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = readOdds(path)
	assert.Error(t, err)
}
