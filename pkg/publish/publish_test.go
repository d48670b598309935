package publish

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBets() []model.ValueBet {
	return []model.ValueBet{
		{ID: "b1", MatchID: "m1", HomeTeam: "Arsenal", AwayTeam: "Chelsea", Market: model.Market1X2, Selection: model.SelHome,
			Bookmaker: "bet365", Odds: 2.2, ModelProbability: 0.52, Edge: 0.065, Rating: 71, Confidence: "high"},
		{ID: "b2", MatchID: "m2", HomeTeam: "Leeds", AwayTeam: "Hull", Market: model.OverUnderKey(2.5), Selection: model.SelOver,
			Bookmaker: "pinnacle", Odds: 1.95, ModelProbability: 0.55, Edge: 0.037, Rating: 35, Confidence: "low"},
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, topic: "value-bets"}

	require.NoError(t, p.Publish(context.Background(), nil))
	assert.Empty(t, w.msgs)

	require.NoError(t, p.Publish(context.Background(), sampleBets()))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "m1", string(w.msgs[0].Key))

	var back model.ValueBet
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &back))
	assert.Equal(t, "b2", back.ID)
	assert.Equal(t, 1.95, back.Odds)

	w.err = errors.New("broker down")
	err := p.Publish(context.Background(), sampleBets())
	assert.ErrorContains(t, err, "value-bets")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifierFiltersByRating(t *testing.T) {
	s := &fakeSender{}
	n := &TelegramNotifier{bot: s, chatID: 42, minRating: 50}

	require.NoError(t, n.Publish(context.Background(), sampleBets()))
	require.Len(t, s.sent, 1)
	msg, ok := s.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "Arsenal to win @ 2.20 (bet365)")
	assert.NotContains(t, msg.Text, "Leeds")

	// nothing qualifies
	n.minRating = 90
	require.NoError(t, n.Publish(context.Background(), sampleBets()))
	assert.Len(t, s.sent, 1)
}

func TestTelegramNotifierSendError(t *testing.T) {
	n := &TelegramNotifier{bot: &fakeSender{err: errors.New("forbidden")}, chatID: 1}
	assert.ErrorContains(t, n.Publish(context.Background(), sampleBets()), "forbidden")
}

func TestFormatBetsTruncates(t *testing.T) {
	var bets []model.ValueBet
	for i := 0; i < 200; i++ {
		bets = append(bets, sampleBets()[0])
	}
	text := FormatBets(bets)
	assert.LessOrEqual(t, len(text), maxMessageLength+32)
	assert.True(t, strings.Contains(text, "more"))
	assert.True(t, strings.HasPrefix(text, "200 value bet(s)"))
}

type recorder struct {
	calls int
	err   error
}

func (r *recorder) Publish(context.Context, []model.ValueBet) error {
	r.calls++
	return r.err
}

func TestMultiPublishesToAll(t *testing.T) {
	a := &recorder{err: errors.New("a failed")}
	b := &recorder{}
	err := Multi{a, b}.Publish(context.Background(), sampleBets())
	assert.ErrorContains(t, err, "a failed")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	assert.NoError(t, Multi{}.Publish(context.Background(), nil))
}
