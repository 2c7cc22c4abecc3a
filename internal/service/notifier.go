package service

import (
	"context"
	"fmt"
	"time"

	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/notify"
	"github.com/finance-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

const notifyTimeout = 5 * time.Second

// Dispatcher turns committed account changes into notification events.
// Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	notifier  notify.Notifier
	threshold decimal.Decimal
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher. A nil notifier disables delivery.
func NewDispatcher(notifier notify.Notifier, lowBalanceThreshold decimal.Decimal) *Dispatcher {
	return &Dispatcher{
		notifier:  notifier,
		threshold: lowBalanceThreshold,
		now:       time.Now,
	}
}

// Threshold returns the low balance alert threshold
func (d *Dispatcher) Threshold() decimal.Decimal {
	return d.threshold
}

// AccountCreated announces a new account
func (d *Dispatcher) AccountCreated(ctx context.Context, account *models.Account) {
	balance := account.CurrentBalance
	d.send(ctx, notify.Event{
		Kind:        notify.KindAccountCreated,
		UserID:      account.UserID,
		AccountID:   account.ID,
		AccountName: account.Name,
		Message:     fmt.Sprintf("Account %q created with balance %s", account.Name, balance.StringFixed(2)),
		NewBalance:  &balance,
	})
}

// AccountDeleted announces a soft-deleted account
func (d *Dispatcher) AccountDeleted(ctx context.Context, account *models.Account) {
	d.send(ctx, notify.Event{
		Kind:        notify.KindAccountDeleted,
		UserID:      account.UserID,
		AccountID:   account.ID,
		AccountName: account.Name,
		Message:     fmt.Sprintf("Account %q deleted", account.Name),
	})
}

// BalanceUpdated announces a balance change, followed by a low balance alert
// when the change crosses the threshold downward
func (d *Dispatcher) BalanceUpdated(ctx context.Context, account *models.Account, previous, next decimal.Decimal) {
	diff := next.Sub(previous)
	d.send(ctx, notify.Event{
		Kind:            notify.KindBalanceUpdated,
		UserID:          account.UserID,
		AccountID:       account.ID,
		AccountName:     account.Name,
		Message:         fmt.Sprintf("Balance of %q changed from %s to %s", account.Name, previous.StringFixed(2), next.StringFixed(2)),
		PreviousBalance: &previous,
		NewBalance:      &next,
		Difference:      &diff,
		Direction:       notify.DirectionOf(diff),
	})

	if !d.crossedBelowThreshold(previous, next) {
		return
	}
	threshold := d.threshold
	d.send(ctx, notify.Event{
		Kind:            notify.KindLowBalanceAlert,
		UserID:          account.UserID,
		AccountID:       account.ID,
		AccountName:     account.Name,
		Message:         fmt.Sprintf("Balance of %q fell below %s", account.Name, threshold.StringFixed(2)),
		PreviousBalance: &previous,
		NewBalance:      &next,
		Threshold:       &threshold,
	})
}

func (d *Dispatcher) crossedBelowThreshold(previous, next decimal.Decimal) bool {
	return next.LessThan(d.threshold) && previous.GreaterThanOrEqual(d.threshold)
}

func (d *Dispatcher) send(ctx context.Context, event notify.Event) {
	if d.notifier == nil {
		return
	}
	event.Timestamp = d.now().UTC()

	// the change is already committed; a cancelled request must not drop the event
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := d.notifier.Notify(sendCtx, event); err != nil {
		logger.Error("[Dispatcher] %v", fmt.Errorf("%w: %s for user %d: %v", ErrNotification, event.Kind, event.UserID, err))
	}
}
