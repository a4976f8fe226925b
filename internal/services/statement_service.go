// Package services orchestrates the portal's operations across the upstream
// banking API, the local SQLite store and the AMQP broker.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"portal/internal/cache"
	"portal/internal/core"
)

// TransactionSource lists the raw transactions of an account. Satisfied by
// the upstream API client.
type TransactionSource interface {
	Transactions(ctx context.Context, token, accountID string) ([]core.Transaction, error)
}

// StatementService builds monthly statements: it fetches the account's raw
// ledger, applies the sign normalization and groups rows by calendar month.
// Built statements are cached per account so repeated views within the TTL
// do not hit the upstream.
type StatementService struct {
	source TransactionSource
	cache  cache.Cache[[]core.StatementSection]
}

func NewStatementService(source TransactionSource, c cache.Cache[[]core.StatementSection]) *StatementService {
	return &StatementService{
		source: source,
		cache:  c,
	}
}

// Statement returns the account's transactions grouped into monthly
// sections, with withdrawal amounts and fees forced negative.
func (s *StatementService) Statement(ctx context.Context, token, accountID string) ([]core.StatementSection, error) {
	if s.cache != nil {
		if sections, ok := s.cache.Get(accountID); ok {
			slog.DebugContext(ctx, "Statement served from cache", "account_id", accountID)
			return sections, nil
		}
	}

	txs, err := s.source.Transactions(ctx, token, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	sections := core.GroupByMonth(core.Normalize(txs))

	if s.cache != nil {
		s.cache.Set(accountID, sections)
	}

	slog.InfoContext(ctx, "Statement built",
		"account_id", accountID,
		"transactions", len(txs),
		"sections", len(sections))

	return sections, nil
}

// Invalidate drops the cached statement of an account. Called after a
// withdrawal so the next view reflects it.
func (s *StatementService) Invalidate(accountID string) {
	if s.cache != nil {
		s.cache.Delete(accountID)
	}
}
