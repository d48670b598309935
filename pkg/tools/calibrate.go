package tools

import (
	"context"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/protocol"
)

func RecalibrateLeagueTool() protocol.Tool {
	return protocol.Tool{
		Name: "recalibrate_league",
		Description: `
		Recomputes the attack and defence strengths of every team in a league from recent results
		and stores them. Cached predictions for the league are dropped.
		`,
		InputSchema: objectSchema(map[string]protocol.ToolProperty{
			"league": {
				Type:        "string",
				Description: "League id such as E0",
			},
			"lookback_days": {
				Type:        "number",
				Description: "How many days of results to use. Defaults to the configured window.",
			},
		}, "league"),
	}
}

// HandleRecalibrateLeague handles the recalibrate_league tool invocation
func (h *Handlers) HandleRecalibrateLeague(ctx context.Context, params any) (any, error) {
	logger.Info("Handling recalibrate_league tool invocation")
	args, err := arguments(params)
	if err != nil {
		return nil, err
	}
	league, err := stringArg(args, "league", true)
	if err != nil {
		return nil, err
	}
	lookback, err := intArg(args, "lookback_days", 0)
	if err != nil {
		return nil, err
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	strength, err := h.svc.Recalibrate(ctx, league, lookback)
	if err != nil {
		return nil, err
	}
	teams := 0
	if cal, ok := h.svc.Strengths().Calibration(league); ok {
		teams = len(cal.Teams)
	}
	return map[string]any{
		"league":   strength,
		"teams":    teams,
		"lookback": lookback,
	}, nil
}
