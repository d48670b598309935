package publish

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/value"
)

// telegram rejects longer messages
const maxMessageLength = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts bets rated at or above minRating to one chat
type TelegramNotifier struct {
	bot       sender
	chatID    int64
	minRating float64
}

func NewTelegramNotifier(token string, chatID int64, minRating float64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false
	logger.Info("Authorized on telegram account", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: chatID, minRating: minRating}, nil
}

func (n *TelegramNotifier) Publish(ctx context.Context, bets []model.ValueBet) error {
	var keep []model.ValueBet
	for _, b := range bets {
		if b.Rating >= n.minRating {
			keep = append(keep, b)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatBets(keep))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatBets renders bets as plain text, one block per bet, cut to fit a single message
func FormatBets(bets []model.ValueBet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d value bet(s)\n", len(bets))
	for i, bet := range bets {
		var entry strings.Builder
		fmt.Fprintf(&entry, "\n%d. %s v %s\n", i+1, bet.HomeTeam, bet.AwayTeam)
		fmt.Fprintf(&entry, "%s @ %.2f (%s)\n", value.SelectionLabel(bet.Market, bet.Selection, bet.HomeTeam, bet.AwayTeam), bet.Odds, bet.Bookmaker)
		fmt.Fprintf(&entry, "model %.1f%% | edge %.1f%% | rating %.0f %s\n", bet.ModelProbability*100, bet.Edge*100, bet.Rating, bet.Confidence)
		if b.Len()+entry.Len() > maxMessageLength {
			fmt.Fprintf(&b, "\n... and %d more", len(bets)-i)
			break
		}
		b.WriteString(entry.String())
	}
	return b.String()
}
