package main

import (
	"fmt"
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/spf13/cobra"
)

var (
	dailyDate   string
	dailyLimit  int
	dailyStored bool
	dailyFormat string

	recalibrateDays int
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Find the best value bets of a day",
	Long: `Evaluate every unfinished fixture of a day against the odds feed, store the value bets
found and publish the best of them to the enabled publishers.

Examples:
  valuebet daily
  valuebet daily --date 2025-03-01 --limit 5 --format markdown
  valuebet daily --stored`,
	RunE: runDaily,
}

var recalibrateCmd = &cobra.Command{
	Use:   "recalibrate LEAGUE...",
	Short: "Recompute team strengths for one or more leagues",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecalibrate,
}

func init() {
	rootCmd.AddCommand(dailyCmd, recalibrateCmd)

	dailyCmd.Flags().StringVar(&dailyDate, "date", "", "Day as YYYY-MM-DD (default: today, UTC)")
	dailyCmd.Flags().IntVar(&dailyLimit, "limit", 0, "Number of bets to return (default: configured daily limit)")
	dailyCmd.Flags().BoolVar(&dailyStored, "stored", false, "List stored bets instead of evaluating")
	dailyCmd.Flags().StringVar(&dailyFormat, "format", "json", "Output format: json or markdown")

	recalibrateCmd.Flags().IntVar(&recalibrateDays, "days", 0, "Days of results to use (default: configured window)")
}

func runDaily(cmd *cobra.Command, args []string) error {
	if dailyFormat != "json" && dailyFormat != "markdown" {
		return fmt.Errorf("unknown format %q, use json or markdown", dailyFormat)
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := parseDay(dailyDate, a.svc.Now())
	if err != nil {
		return err
	}

	var bets []model.ValueBet
	if dailyStored {
		bets, err = a.svc.StoredValueBets(ctx, day, dailyLimit)
	} else {
		bets, err = a.svc.FindDailyValueBets(ctx, day, dailyLimit)
	}
	if err != nil {
		return err
	}

	if dailyFormat == "markdown" {
		md, err := a.renderer.DailyMarkdown(model.MatchDay(day), bets)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), md)
		return err
	}
	return writeJSON(cmd.OutOrStdout(), bets)
}

func runRecalibrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, league := range args {
		strength, err := a.svc.Recalibrate(ctx, league, recalibrateDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d matches, home %.2f, away %.2f goals per match\n",
			league, strength.Matches, strength.AvgHomeGoals, strength.AvgAwayGoals)
	}
	return nil
}

// parseDay reads a YYYY-MM-DD day, defaulting to the UTC day of now
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return day, nil
}
