package oddsfeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
)

// Fetcher gets a page. *transport.Client satisfies it.
type Fetcher interface {
	GetHTML(ctx context.Context, url string) ([]byte, error)
}

// Feed reads odds pages addressed by match id
type Feed struct {
	client      Fetcher
	urlTemplate string
}

// New creates a feed. urlTemplate contains one %s that is replaced by the match id.
func New(client Fetcher, urlTemplate string) *Feed {
	return &Feed{client: client, urlTemplate: urlTemplate}
}

// Odds fetches and parses the odds page of a match
func (f *Feed) Odds(ctx context.Context, matchID string) (model.OddsBook, error) {
	if f.urlTemplate == "" || !strings.Contains(f.urlTemplate, "%s") {
		return nil, fmt.Errorf("odds feed has no url template")
	}
	url := fmt.Sprintf(f.urlTemplate, matchID)
	logger.Inform("Fetching odds from", url)

	body, err := f.client.GetHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for %s: %w", matchID, err)
	}
	book, err := ParseOddsHTML(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", matchID, err)
	}
	return book, nil
}

// Provider prices a match
type Provider interface {
	Odds(ctx context.Context, matchID string) (model.OddsBook, error)
}

// Chain asks each provider in turn and returns the first book with prices. When none has any
// the error wraps ErrNoOdds along with whatever the providers failed with.
type Chain []Provider

func (c Chain) Odds(ctx context.Context, matchID string) (model.OddsBook, error) {
	var errs []error
	for _, p := range c {
		book, err := p.Odds(ctx, matchID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			if !errors.Is(err, ErrNoOdds) {
				logger.Warn("Odds provider failed", matchID, err)
				errs = append(errs, err)
			}
			continue
		}
		if len(book) > 0 {
			return book, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w for %s: %w", ErrNoOdds, matchID, errors.Join(errs...))
	}
	return nil, fmt.Errorf("%w for %s", ErrNoOdds, matchID)
}
