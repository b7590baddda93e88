package sniper

import (
	"context"
	"errors"
)

// MultiNotifier fans each trade notification out to every collaborator
// (messenger, audit log). All collaborators run even when one fails.
type MultiNotifier []TradeNotifier

// NotifyTrade delivers to every collaborator and joins their errors.
func (m MultiNotifier) NotifyTrade(ctx context.Context, n TradeNotification) error {
	var errs []error
	for _, t := range m {
		if err := t.NotifyTrade(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
