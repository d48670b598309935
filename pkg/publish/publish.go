// Package publish hands value bets to downstream consumers: a Kafka topic and a Telegram chat
package publish

import (
	"context"
	"errors"

	"github.com/richard-senior/valuebet/pkg/model"
)

// Publisher delivers a batch of ranked value bets
type Publisher interface {
	Publish(ctx context.Context, bets []model.ValueBet) error
}

// Multi publishes to every publisher and joins their errors. One failing publisher does not stop the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, bets []model.ValueBet) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, bets); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
