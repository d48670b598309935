package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/service"
	"github.com/richard-senior/valuebet/pkg/value"
	"github.com/spf13/cobra"
)

var (
	predictHome   string
	predictAway   string
	predictLeague string
	valueOddsPath string
	reportFormat  string
	reportOdds    string
)

var predictCmd = &cobra.Command{
	Use:   "predict MATCH_ID",
	Short: "Predict a match and print the prediction as JSON",
	Long: `Predict a match and print the prediction as JSON.

Examples:
  valuebet predict 20250301_arsenal_chelsea
  valuebet predict x1 --home arsenal --away chelsea --league E0`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

var valueCmd = &cobra.Command{
	Use:   "value MATCH_ID",
	Short: "List the value bets of a match",
	Long: `List the value bets of a match, best rated first.
Odds are read from --odds, a JSON file of bookmaker -> market -> selection -> decimal price,
or fetched from the odds feed when no file is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runValue,
}

var reportCmd = &cobra.Command{
	Use:   "report MATCH_ID",
	Short: "Print a readable match report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(predictCmd, valueCmd, reportCmd)

	predictCmd.Flags().StringVar(&predictHome, "home", "", "Home team id, when the match is not a stored fixture")
	predictCmd.Flags().StringVar(&predictAway, "away", "", "Away team id, when the match is not a stored fixture")
	predictCmd.Flags().StringVar(&predictLeague, "league", "", "League id")

	valueCmd.Flags().StringVar(&valueOddsPath, "odds", "", "JSON file with the odds to compare against")

	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown", "Output format: markdown or html")
	reportCmd.Flags().StringVar(&reportOdds, "odds", "", "JSON file with the odds to compare against")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	pred, err := a.svc.Predict(ctx, args[0], predictHome, predictAway, predictLeague)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), pred)
}

func runValue(cmd *cobra.Command, args []string) error {
	book, err := readOdds(valueOddsPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	bets, err := a.svc.FindValueBets(ctx, args[0], book)
	if err != nil {
		return err
	}
	if len(bets) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No value found.")
	}
	return writeJSON(cmd.OutOrStdout(), bets)
}

func runReport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(reportFormat)
	if format != "markdown" && format != "html" {
		return fmt.Errorf("unknown format %q, use markdown or html", reportFormat)
	}
	book, err := readOdds(reportOdds)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	var rep *value.Report
	pred, r, err := a.svc.Evaluate(ctx, args[0], book)
	switch {
	case err == nil:
		rep = &r
	case errors.Is(err, service.ErrUnknownMatch), ctx.Err() != nil:
		return err
	default:
		logger.Warn("Reporting without value bets", args[0], err)
		if pred, err = a.svc.Predict(ctx, args[0], "", "", ""); err != nil {
			return err
		}
	}

	var out string
	if format == "html" {
		out, err = a.renderer.MatchHTML(pred, rep)
	} else {
		out, err = a.renderer.MatchMarkdown(pred, rep)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// readOdds loads an odds book from a JSON file. An empty path yields a nil book.
func readOdds(path string) (model.OddsBook, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read odds %s: %w", path, err)
	}
	var raw model.OddsBook
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse odds %s: %w", path, err)
	}
	book := model.OddsBook{}
	book.Merge(raw)
	return book, nil
}
