package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/oddsfeed"
	"github.com/richard-senior/valuebet/pkg/store"
	"github.com/richard-senior/valuebet/pkg/teams"
	"github.com/richard-senior/valuebet/pkg/transport"
	"github.com/spf13/cobra"
)

var (
	importLeague      string
	importRecalibrate bool
)

var importCmd = &cobra.Command{
	Use:   "import SOURCE...",
	Short: "Load results and fixtures from football-data.co.uk CSV files",
	Long: `Load results and fixtures from football-data.co.uk CSV files or URLs.
Played rows become finished matches used for calibration, unplayed rows become fixtures.
The bookmaker prices of every row are stored and used before the live odds feed.

Examples:
  valuebet import --league E0 E0.csv
  valuebet import --league E0 --recalibrate https://www.football-data.co.uk/mmz4281/2425/E0.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importLeague, "league", "", "League id the rows belong to (default: the Div column)")
	importCmd.Flags().BoolVar(&importRecalibrate, "recalibrate", false, "Recalibrate the imported leagues afterwards")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	client := transport.NewClient(transport.OptionsFromConfig(a.cfg.Feed))
	leagues := map[string]bool{}
	for _, src := range args {
		r, err := openSource(ctx, client, src)
		if err != nil {
			return err
		}
		rows, err := oddsfeed.ParseFootballData(r, importLeague)
		r.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", src, err)
		}
		played, fixtures, err := importRows(ctx, a.db, rows)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", src, err)
		}
		for _, m := range rows {
			leagues[m.Fixture.LeagueID] = true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d results, %d fixtures\n", src, played, fixtures)
	}

	if importRecalibrate {
		for league := range leagues {
			if league == "" {
				continue
			}
			if _, err := a.svc.Recalibrate(ctx, league, 0); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recalibrated %s\n", league)
		}
	}
	return nil
}

// openSource opens a local file or downloads an http(s) URL
func openSource(ctx context.Context, client *transport.Client, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err := client.GetHTML(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", src, err)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	return f, nil
}

// resolveTeams points rows at teams already stored under another spelling
func resolveTeams(ctx context.Context, db *store.DB, rows []oddsfeed.ImportedMatch) error {
	resolvers := map[string]*teams.Resolver{}
	for i := range rows {
		fx := &rows[i].Fixture
		r, ok := resolvers[fx.LeagueID]
		if !ok {
			known, err := db.Teams(ctx, fx.LeagueID)
			if err != nil {
				return err
			}
			candidates := make([]teams.Candidate, len(known))
			for j, t := range known {
				candidates[j] = teams.Candidate{ID: t.TeamID, Name: t.Name}
			}
			r = teams.NewResolver(candidates, 0)
			resolvers[fx.LeagueID] = r
		}
		if id, ok := r.Resolve(rows[i].HomeName); ok {
			fx.HomeTeamID = id
		}
		if id, ok := r.Resolve(rows[i].AwayName); ok {
			fx.AwayTeamID = id
		}
		fx.MatchID = oddsfeed.MatchID(fx.KickOff, fx.HomeTeamID, fx.AwayTeamID)
	}
	return nil
}

// importRows stores teams, fixtures and results. Existing teams keep their details.
func importRows(ctx context.Context, db *store.DB, rows []oddsfeed.ImportedMatch) (played, fixtures int, err error) {
	if err := resolveTeams(ctx, db, rows); err != nil {
		return 0, 0, err
	}
	seen := map[string]bool{}
	var results []model.FinishedMatch
	for _, m := range rows {
		for id, name := range map[string]string{m.Fixture.HomeTeamID: m.HomeName, m.Fixture.AwayTeamID: m.AwayName} {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, err := db.Team(ctx, id); err == nil {
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return 0, 0, err
			}
			if err := db.SaveTeam(ctx, store.Team{TeamID: id, Name: name, LeagueID: m.Fixture.LeagueID}); err != nil {
				return 0, 0, err
			}
		}

		if err := db.SaveFixture(ctx, m.Fixture); err != nil {
			return 0, 0, err
		}
		if len(m.Odds) > 0 {
			if err := db.SaveOdds(ctx, m.Fixture.MatchID, m.Odds); err != nil {
				return 0, 0, err
			}
		}
		if m.Played() {
			results = append(results, m.Result())
		} else {
			fixtures++
		}
	}
	if err := db.SaveMatches(ctx, results); err != nil {
		return 0, 0, err
	}
	logger.Info("Imported rows", len(rows), len(results), fixtures)
	return len(results), fixtures, nil
}
