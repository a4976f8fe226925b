// Package worker delivers beneficiary notifications for cardless
// withdrawals recorded by the portal.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"portal/internal/amqp"
	"portal/internal/core"
	"portal/internal/storage"
)

// Notifier delivers a text message to a phone number. The real SMS gateway
// lives outside the portal; LogNotifier stands in when none is configured.
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, phone, message string) error {
	slog.InfoContext(ctx, "Notification delivered (log only)",
		"phone", phone,
		"message", message)
	return nil
}

// NotifyWorker handles delivery of withdrawal notifications from the queue,
// with a periodic sweep over unnotified rows as a backup mechanism in case
// AMQP messages are lost.
type NotifyWorker struct {
	storage   *storage.Repository
	notifier  Notifier
	batchSize int
}

func NewNotifyWorker(st *storage.Repository, notifier Notifier, batchSize int) *NotifyWorker {
	return &NotifyWorker{
		storage:   st,
		notifier:  notifier,
		batchSize: batchSize,
	}
}

// HandleNotifyMessage processes a single withdrawal notify message from AMQP.
func (w *NotifyWorker) HandleNotifyMessage(ctx context.Context, msg *amqp.WithdrawalNotifyMessage) error {
	slog.InfoContext(ctx, "Processing notify message", "withdrawal_id", msg.WithdrawalID)

	withdrawal, err := w.storage.GetWithdrawal(ctx, msg.WithdrawalID)
	if err != nil {
		return fmt.Errorf("get withdrawal from storage: %w", err)
	}

	return w.notify(ctx, withdrawal)
}

// ProcessPendingNotifications sweeps rows the queue never delivered.
func (w *NotifyWorker) ProcessPendingNotifications(ctx context.Context) error {
	pending, err := w.storage.PendingNotifications(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending notifications: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending notifications", "count", len(pending))

	for i := range pending {
		if err := w.notify(ctx, &pending[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to notify", "withdrawal_id", pending[i].ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupNotifyCheck drains the backlog at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *NotifyWorker) StartupNotifyCheck(ctx context.Context) error {
	pending, err := w.storage.PendingNotifications(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending notifications for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending notifications found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending notifications on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for i := range pending {
		if err := w.notify(ctx, &pending[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to notify during startup",
				"withdrawal_id", pending[i].ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup notify check completed",
		"total", len(pending),
		"notified", successCount,
		"errors", errorCount)

	return nil
}

func (w *NotifyWorker) notify(ctx context.Context, withdrawal *storage.Withdrawal) error {
	if withdrawal.Notified {
		slog.DebugContext(ctx, "Withdrawal already notified, skipping", "withdrawal_id", withdrawal.ID)
		return nil
	}

	message := withdrawalMessage(withdrawal)
	if err := w.notifier.Send(ctx, withdrawal.BeneficiaryPhone, message); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	if err := w.storage.MarkNotified(ctx, withdrawal.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as notified", "withdrawal_id", withdrawal.ID, "error", err)
		// Don't return error here - the notification actually went out
	}

	slog.InfoContext(ctx, "Beneficiary notified",
		"withdrawal_id", withdrawal.ID,
		"phone", withdrawal.BeneficiaryPhone,
		"amount_cents", withdrawal.AmountCents)

	return nil
}

func withdrawalMessage(w *storage.Withdrawal) string {
	amount := core.Money{Cents: w.AmountCents}
	msg := fmt.Sprintf("Retiro sin tarjeta por $%.2f disponible.", amount.Dollars())
	if w.UpstreamRef != "" {
		msg += fmt.Sprintf(" Referencia: %s.", w.UpstreamRef)
	}
	return msg
}
