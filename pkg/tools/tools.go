// Package tools exposes the prediction service as JSON-RPC tools
package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/oddsfeed"
	"github.com/richard-senior/valuebet/pkg/protocol"
	"github.com/richard-senior/valuebet/pkg/report"
	"github.com/richard-senior/valuebet/pkg/server"
	"github.com/richard-senior/valuebet/pkg/service"
)

const defaultTimeout = 60 * time.Second

// Handlers binds the tool handlers to a service
type Handlers struct {
	svc      *service.Service
	renderer *report.Renderer
	timeout  time.Duration
}

func NewHandlers(svc *service.Service, renderer *report.Renderer) *Handlers {
	return &Handlers{svc: svc, renderer: renderer, timeout: defaultTimeout}
}

// Register adds every tool to the server
func (h *Handlers) Register(s *server.Server) {
	s.RegisterTool(PredictMatchTool(), h.HandlePredictMatch)
	s.RegisterTool(FindValueBetsTool(), h.HandleFindValueBets)
	s.RegisterTool(DailyValueBetsTool(), h.HandleDailyValueBets)
	s.RegisterTool(RecalibrateLeagueTool(), h.HandleRecalibrateLeague)
	s.RegisterTool(PredictionReportTool(), h.HandlePredictionReport)
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.timeout)
}

func arguments(params any) (map[string]any, error) {
	if params == nil {
		return nil, fmt.Errorf("no params given")
	}
	m, ok := params.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid parameters format")
	}
	return m, nil
}

func stringArg(args map[string]any, name string, required bool) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%s parameter is required", name)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s parameter must be a string", name)
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", fmt.Errorf("%s parameter is required", name)
	}
	return s, nil
}

// intArg accepts JSON numbers and numeric strings
func intArg(args map[string]any, name string, def int) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return def, nil
	case float64:
		return int(v), nil
	case string:
		if v == "" {
			return def, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s parameter must be a whole number", name)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s parameter must be a number", name)
	}
}

// dayArg parses a 2006-01-02 date, defaulting to today's UTC date
func dayArg(args map[string]any, name string, now time.Time) (time.Time, error) {
	s, err := stringArg(args, name, false)
	if err != nil {
		return time.Time{}, err
	}
	if s == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date like 2025-03-01", name)
	}
	return day, nil
}

// oddsArg reads bookmaker -> market -> selection -> price. Prices may be decimal numbers or strings
// in any format ParseOdds understands.
func oddsArg(args map[string]any, name string) (model.OddsBook, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	bookmakers, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object of bookmaker -> market -> selection -> price", name)
	}
	book := model.OddsBook{}
	for bookmaker, mv := range bookmakers {
		markets, ok := mv.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s.%s must be an object of markets", name, bookmaker)
		}
		for market, sv := range markets {
			sels, ok := sv.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s.%s.%s must be an object of selections", name, bookmaker, market)
			}
			for sel, pv := range sels {
				price, err := price(pv)
				if err != nil {
					return nil, fmt.Errorf("%s.%s.%s.%s: %w", name, bookmaker, market, sel, err)
				}
				book.Add(bookmaker, market, sel, price)
			}
		}
	}
	return book, nil
}

func price(v any) (float64, error) {
	switch p := v.(type) {
	case float64:
		if p <= 1 {
			return 0, fmt.Errorf("decimal odds must be greater than 1, got %v", p)
		}
		return p, nil
	case string:
		return oddsfeed.ParseOdds(p)
	default:
		return 0, fmt.Errorf("unsupported price %v", v)
	}
}

func objectSchema(props map[string]protocol.ToolProperty, required ...string) protocol.InputSchema {
	if required == nil {
		required = []string{}
	}
	return protocol.InputSchema{Type: "object", Properties: props, Required: required}
}
