package tools

import (
	"context"
	"fmt"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/protocol"
)

func FindValueBetsTool() protocol.Tool {
	return protocol.Tool{
		Name: "find_value_bets",
		Description: `
		Compares the model's probabilities for a match with bookmaker odds and returns the bets where the
		odds are longer than the model thinks they should be, best rated first.
		Markets whose bookmaker margin is too high are left out.
		`,
		InputSchema: objectSchema(map[string]protocol.ToolProperty{
			"match_id": {
				Type:        "string",
				Description: "The id of the match",
			},
			"odds": {
				Type: "object",
				Description: `Optional odds as bookmaker -> market -> selection -> price, ie.
				{"bet365": {"1x2": {"home": 2.2, "draw": "7/2", "away": "EVS"}}}.
				Fetched from the odds feed when omitted.`,
			},
		}, "match_id"),
	}
}

// HandleFindValueBets handles the find_value_bets tool invocation
func (h *Handlers) HandleFindValueBets(ctx context.Context, params any) (any, error) {
	logger.Info("Handling find_value_bets tool invocation")
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

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	pred, rep, err := h.svc.Evaluate(ctx, matchID, book)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"matchId":       matchID,
		"homeTeam":      pred.HomeTeam,
		"awayTeam":      pred.AwayTeam,
		"probabilities": pred.Probabilities,
		"bets":          nonNil(rep.Bets),
		"excluded":      rep.Excluded,
	}, nil
}

func DailyValueBetsTool() protocol.Tool {
	return protocol.Tool{
		Name: "daily_value_bets",
		Description: `
		Finds the best value bets across every match of a day, ranked by rating.
		By default the day's fixtures are evaluated against fresh odds and the results stored and published.
		Set stored to true to list what was already found without evaluating anything.
		`,
		InputSchema: objectSchema(map[string]protocol.ToolProperty{
			"date": {
				Type:        "string",
				Description: "The day as YYYY-MM-DD. Defaults to today.",
			},
			"limit": {
				Type:        "number",
				Description: "How many bets to return. Defaults to the configured daily limit.",
			},
			"stored": {
				Type:        "boolean",
				Description: "Return previously stored bets instead of evaluating",
			},
			"format": {
				Type:        "string",
				Description: "json (default) or markdown",
			},
		}),
	}
}

// HandleDailyValueBets handles the daily_value_bets tool invocation
func (h *Handlers) HandleDailyValueBets(ctx context.Context, params any) (any, error) {
	logger.Info("Handling daily_value_bets tool invocation")
	args, err := arguments(params)
	if err != nil {
		return nil, err
	}
	day, err := dayArg(args, "date", h.svc.Now())
	if err != nil {
		return nil, err
	}
	limit, err := intArg(args, "limit", 0)
	if err != nil {
		return nil, err
	}
	stored, _ := args["stored"].(bool)
	format, err := stringArg(args, "format", false)
	if err != nil {
		return nil, err
	}
	if format != "" && format != "json" && format != "markdown" {
		return nil, fmt.Errorf("unknown format %q, use json or markdown", format)
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	var bets []model.ValueBet
	if stored {
		bets, err = h.svc.StoredValueBets(ctx, day, limit)
	} else {
		bets, err = h.svc.FindDailyValueBets(ctx, day, limit)
	}
	if err != nil {
		return nil, err
	}

	if format == "markdown" {
		return h.renderer.DailyMarkdown(model.MatchDay(day), bets)
	}
	return map[string]any{
		"date":  model.MatchDay(day),
		"count": len(bets),
		"bets":  nonNil(bets),
	}, nil
}

func nonNil(bets []model.ValueBet) []model.ValueBet {
	if bets == nil {
		return []model.ValueBet{}
	}
	return bets
}
