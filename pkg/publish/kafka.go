package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per bet, keyed by match id
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return &KafkaPublisher{w: w, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, bets []model.ValueBet) error {
	if len(bets) == 0 {
		return nil
	}
	now := time.Now()
	msgs := make([]kafka.Message, 0, len(bets))
	for _, b := range bets {
		payload, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal value bet %s: %w", b.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(b.MatchID),
			Value: payload,
			Time:  now,
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	logger.Info("Published value bets to", p.topic, len(msgs))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
