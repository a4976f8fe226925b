package google

import (
	"context"
	"testing"
	"time"

	"portal/internal/core"
)

func TestStatementRows(t *testing.T) {
	sections := []core.StatementSection{
		{
			Label: "agosto de 2025",
			Year:  2025,
			Month: time.August,
			Transactions: []core.Transaction{
				{
					Date:        time.Date(2025, time.August, 14, 10, 0, 0, 0, time.UTC),
					Description: "Retiro",
					Amount:      core.Money{Cents: -1000},
					Fee:         core.Money{Cents: -35},
				},
				{
					Date:        time.Date(2025, time.August, 20, 10, 0, 0, 0, time.UTC),
					Description: "Deposito",
					Amount:      core.Money{Cents: 1000},
				},
			},
		},
		{
			Label: core.UnknownPeriodLabel,
			Transactions: []core.Transaction{
				{Description: "Ajuste", Amount: core.Money{Cents: 50}},
			},
		},
	}

	rows := statementRows(sections)
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}

	if rows[0][0] != "agosto de 2025" {
		t.Errorf("unexpected section header: %v", rows[0])
	}
	if rows[1][1] != "2025-08-14" || rows[1][3] != -10.0 || rows[1][4] != -0.35 {
		t.Errorf("unexpected withdrawal row: %v", rows[1])
	}
	if rows[3][0] != core.UnknownPeriodLabel {
		t.Errorf("expected fallback section header, got %v", rows[3])
	}
	if rows[4][1] != "" {
		t.Errorf("zero date should render empty, got %v", rows[4][1])
	}
}

func TestStatementRowsEmpty(t *testing.T) {
	if rows := statementRows(nil); len(rows) != 0 {
		t.Errorf("expected no rows for empty statement, got %d", len(rows))
	}
}

func TestNewFromEnvMissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Error("expected error without GOOGLE_SPREADSHEET_ID")
	}
}
