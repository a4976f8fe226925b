package services

import (
	"context"
	"fmt"
	"log/slog"

	"portal/internal/api"
	"portal/internal/storage"
)

// WithdrawalUpstream forwards cardless withdrawals to the core banking API.
type WithdrawalUpstream interface {
	RequestCardlessWithdrawal(ctx context.Context, token string, w api.CardlessWithdrawal) (string, error)
}

// NotifyPublisher queues a beneficiary notification for a recorded
// withdrawal.
type NotifyPublisher interface {
	PublishWithdrawalNotify(ctx context.Context, withdrawalID int64) error
}

// WithdrawalService records cardless withdrawals locally, forwards them to
// the upstream and queues the beneficiary SMS notification. The local row is
// written before the upstream call so a crash mid-flight leaves an auditable
// record.
type WithdrawalService struct {
	storage   *storage.Repository
	upstream  WithdrawalUpstream
	publisher NotifyPublisher
}

func NewWithdrawalService(st *storage.Repository, upstream WithdrawalUpstream, publisher NotifyPublisher) *WithdrawalService {
	return &WithdrawalService{
		storage:   st,
		upstream:  upstream,
		publisher: publisher,
	}
}

// Request performs a cardless withdrawal end to end. The upstream reference
// of the created transaction is returned. Notification publish failures do
// not fail the request; the notify worker sweeps unnotified rows.
func (s *WithdrawalService) Request(ctx context.Context, token string, w api.CardlessWithdrawal) (string, error) {
	if w.AmountCents <= 0 {
		return "", fmt.Errorf("withdrawal amount must be positive")
	}
	if w.BeneficiaryPhone == "" {
		return "", fmt.Errorf("beneficiary phone is required")
	}

	id, err := s.storage.CreateWithdrawal(ctx, storage.Withdrawal{
		AccountID:        w.AccountID,
		AmountCents:      w.AmountCents,
		Description:      w.Description,
		BeneficiaryPhone: w.BeneficiaryPhone,
	})
	if err != nil {
		return "", fmt.Errorf("record withdrawal: %w", err)
	}

	ref, err := s.upstream.RequestCardlessWithdrawal(ctx, token, w)
	if err != nil {
		return "", fmt.Errorf("forward withdrawal: %w", err)
	}

	if err := s.storage.SetUpstreamRef(ctx, id, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to store upstream reference",
			"withdrawal_id", id, "upstream_ref", ref, "error", err)
		// The withdrawal went through upstream, keep going.
	}

	if err := s.publishNotify(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish withdrawal notify message",
			"withdrawal_id", id, "error", err)
		// Don't fail the request, the worker sweep picks it up.
	}

	slog.InfoContext(ctx, "Cardless withdrawal completed",
		"withdrawal_id", id,
		"account_id", w.AccountID,
		"amount_cents", w.AmountCents,
		"upstream_ref", ref)

	return ref, nil
}

func (s *WithdrawalService) publishNotify(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping notify message")
		return nil
	}
	return s.publisher.PublishWithdrawalNotify(ctx, id)
}
