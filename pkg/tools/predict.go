package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/protocol"
	"github.com/richard-senior/valuebet/pkg/service"
	"github.com/richard-senior/valuebet/pkg/value"
)

func PredictMatchTool() protocol.Tool {
	return protocol.Tool{
		Name: "predict_match",
		Description: `
		Predicts a football match by combining a form heuristic, a Poisson goals model and an expected goals model.
		Returns home/draw/away probabilities, expected goals, the score distribution and derived market probabilities
		(over/under, both teams to score, asian handicap and so on).
		Teams and league are looked up from the fixture when only match_id is given.
		`,
		InputSchema: objectSchema(map[string]protocol.ToolProperty{
			"match_id": {
				Type:        "string",
				Description: "The id of the match, ie. 20250301_arsenal_chelsea",
			},
			"home_team": {
				Type:        "string",
				Description: "Home team id. Optional when the match is a known fixture.",
			},
			"away_team": {
				Type:        "string",
				Description: "Away team id. Optional when the match is a known fixture.",
			},
			"league": {
				Type:        "string",
				Description: "League id such as E0. Optional when the match is a known fixture.",
			},
		}, "match_id"),
	}
}

// HandlePredictMatch handles the predict_match tool invocation
func (h *Handlers) HandlePredictMatch(ctx context.Context, params any) (any, error) {
	logger.Info("Handling predict_match tool invocation")
	args, err := arguments(params)
	if err != nil {
		return nil, err
	}
	matchID, err := stringArg(args, "match_id", true)
	if err != nil {
		return nil, err
	}
	home, err := stringArg(args, "home_team", false)
	if err != nil {
		return nil, err
	}
	away, err := stringArg(args, "away_team", false)
	if err != nil {
		return nil, err
	}
	league, err := stringArg(args, "league", false)
	if err != nil {
		return nil, err
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	return h.svc.Predict(ctx, matchID, home, away, league)
}

func PredictionReportTool() protocol.Tool {
	return protocol.Tool{
		Name: "prediction_report",
		Description: `
		Writes a readable report for a match: outcome probabilities, the most likely scores, what each model said
		and any value bets against the supplied or fetched odds.
		Use this when the user wants an explanation rather than raw numbers.
		`,
		InputSchema: objectSchema(map[string]protocol.ToolProperty{
			"match_id": {
				Type:        "string",
				Description: "The id of the match",
			},
			"odds": {
				Type:        "object",
				Description: "Optional odds as bookmaker -> market -> selection -> price. Fetched from the odds feed when omitted.",
			},
			"format": {
				Type:        "string",
				Description: "markdown (default) or html",
			},
		}, "match_id"),
	}
}

// HandlePredictionReport renders a match report. Odds failures only drop the value section.
func (h *Handlers) HandlePredictionReport(ctx context.Context, params any) (any, error) {
	logger.Info("Handling prediction_report tool invocation")
	args, err := arguments(params)
	if err != nil {
		return nil, err
	}
	matchID, err := stringArg(args, "match_id", true)
	if err != nil {
		return nil, err
	}
	book, err := oddsArg(args, "odds")
	if err != nil {
		return nil, err
	}
	format, err := stringArg(args, "format", false)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "html" {
		return nil, fmt.Errorf("unknown format %q, use markdown or html", format)
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	var rep *value.Report
	pred, r, err := h.svc.Evaluate(ctx, matchID, book)
	switch {
	case err == nil:
		rep = &r
	case errors.Is(err, service.ErrUnknownMatch), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		logger.Warn("Reporting without value bets", matchID, err)
		if pred, err = h.svc.Predict(ctx, matchID, "", "", ""); err != nil {
			return nil, err
		}
	}
	return h.render(format, pred, rep)
}

func (h *Handlers) render(format string, pred model.MatchPrediction, rep *value.Report) (string, error) {
	if format == "html" {
		return h.renderer.MatchHTML(pred, rep)
	}
	return h.renderer.MatchMarkdown(pred, rep)
}
