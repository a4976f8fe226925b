package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"portal/internal/cache"
	"portal/internal/core"
)

type fakeSource struct {
	txs   []core.Transaction
	err   error
	calls int
}

func (f *fakeSource) Transactions(ctx context.Context, token, accountID string) ([]core.Transaction, error) {
	f.calls++
	return f.txs, f.err
}

func TestStatementNormalizesAndGroups(t *testing.T) {
	source := &fakeSource{txs: []core.Transaction{
		{
			ID:          "t1",
			Date:        time.Date(2025, time.August, 14, 0, 0, 0, 0, time.UTC),
			Description: "Retiro",
			Kind:        core.KindWithdrawal,
			Amount:      core.Money{Cents: 1000},
			Fee:         core.Money{Cents: 35},
		},
		{
			ID:          "t2",
			Date:        time.Date(2025, time.August, 20, 0, 0, 0, 0, time.UTC),
			Description: "Deposito",
			Kind:        core.KindDeposit,
			Amount:      core.Money{Cents: 1000},
		},
	}}

	svc := NewStatementService(source, nil)
	sections, err := svc.Statement(context.Background(), "abc123", "c1")
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}

	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Label != "agosto de 2025" {
		t.Errorf("unexpected label %q", sections[0].Label)
	}
	if got := sections[0].Transactions[0].Amount.Cents; got != -1000 {
		t.Errorf("withdrawal amount = %d, want -1000", got)
	}
	if got := sections[0].Transactions[0].Fee.Cents; got != -35 {
		t.Errorf("withdrawal fee = %d, want -35", got)
	}
	if got := sections[0].Transactions[1].Amount.Cents; got != 1000 {
		t.Errorf("deposit amount = %d, want 1000", got)
	}
}

func TestStatementUsesCache(t *testing.T) {
	source := &fakeSource{txs: []core.Transaction{
		{ID: "t1", Date: time.Date(2025, time.August, 14, 0, 0, 0, 0, time.UTC)},
	}}
	svc := NewStatementService(source, cache.NewLRUCache[[]core.StatementSection](10, time.Minute))

	ctx := context.Background()
	if _, err := svc.Statement(ctx, "abc123", "c1"); err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if _, err := svc.Statement(ctx, "abc123", "c1"); err != nil {
		t.Fatalf("Statement: %v", err)
	}

	if source.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", source.calls)
	}

	svc.Invalidate("c1")
	if _, err := svc.Statement(ctx, "abc123", "c1"); err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if source.calls != 2 {
		t.Errorf("expected refetch after invalidation, got %d calls", source.calls)
	}
}

func TestStatementUpstreamError(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	svc := NewStatementService(source, nil)

	if _, err := svc.Statement(context.Background(), "abc123", "c1"); err == nil {
		t.Error("expected error from upstream")
	}
}
