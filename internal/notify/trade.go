package notify

import (
	"context"
	"fmt"
	"log/slog"

	"snipebot/internal/sniper"
)

// TradeMessenger delivers trade confirmations. Each confirmation is sent to
// the Telegram chat of the user who triggered the trade; a copy is broadcast
// through the shared Notifier so operator channels (Discord webhook, ops
// Telegram group) see every fill.
type TradeMessenger struct {
	telegram *TelegramSender
	notifier *Notifier
	logger   *slog.Logger
}

// NewTradeMessenger wires per-user Telegram delivery plus the operator
// broadcast channels. telegram may be nil when no bot token is configured;
// notifier may be nil when no operator channels are configured.
func NewTradeMessenger(telegram *TelegramSender, notifier *Notifier, logger *slog.Logger) *TradeMessenger {
	return &TradeMessenger{
		telegram: telegram,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "trade_messenger")),
	}
}

// NotifyTrade formats and delivers one trade confirmation.
func (m *TradeMessenger) NotifyTrade(ctx context.Context, n sniper.TradeNotification) error {
	text := formatTradeMessage(n)

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, "trade", "Trade Successful", text); err != nil {
			m.logger.Warn("operator broadcast failed", slog.String("error", err.Error()))
		}
	}

	if m.telegram == nil || n.UserID == "" {
		return nil
	}
	if err := m.telegram.SendTo(ctx, n.UserID, "*Trade Successful*\n"+text); err != nil {
		return fmt.Errorf("notify: trade message to %s: %w", n.UserID, err)
	}
	return nil
}

func formatTradeMessage(n sniper.TradeNotification) string {
	return fmt.Sprintf(
		"CA: %s\nAmount: %s %s\nTransaction hash: %s\nChain: %s",
		n.ContractAddress,
		n.Amount,
		n.Chain.NativeSymbol(),
		n.Hash,
		n.Chain.Label(),
	)
}
