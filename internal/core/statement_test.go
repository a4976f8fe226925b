package core

import (
	"testing"
	"time"
)

func dated(day int, month time.Month, year int, desc string) Transaction {
	return Transaction{
		Date:        time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Kind:        KindFromDescription(desc),
	}
}

func TestMonthLabel(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC), "agosto de 2025"},
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), "enero de 2024"},
		{time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC), "diciembre de 2023"},
		{time.Time{}, UnknownPeriodLabel},
	}
	for i, tc := range cases {
		if got := MonthLabel(tc.date); got != tc.want {
			t.Errorf("case %d: MonthLabel = %q, want %q", i, got, tc.want)
		}
	}
}

func TestGroupByMonthPartition(t *testing.T) {
	in := []Transaction{
		dated(28, time.August, 2025, "Retiro"),
		dated(15, time.August, 2025, "Deposito"),
		dated(30, time.July, 2025, "Pago"),
		dated(1, time.August, 2025, "Deposito"),
		dated(2, time.July, 2025, "Retiro"),
	}

	sections := GroupByMonth(in)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}

	// Sections appear in first-encounter order.
	if sections[0].Label != "agosto de 2025" {
		t.Errorf("first section = %q, want agosto de 2025", sections[0].Label)
	}
	if sections[1].Label != "julio de 2025" {
		t.Errorf("second section = %q, want julio de 2025", sections[1].Label)
	}

	// Exact partition: every row lands in exactly one bucket.
	total := 0
	for _, s := range sections {
		total += len(s.Transactions)
	}
	if total != len(in) {
		t.Errorf("partition total = %d, want %d", total, len(in))
	}
}

func TestGroupByMonthKeepsInputOrderWithinSection(t *testing.T) {
	in := []Transaction{
		dated(28, time.August, 2025, "tercero"),
		dated(1, time.August, 2025, "primero"),
		dated(15, time.August, 2025, "segundo"),
	}

	sections := GroupByMonth(in)
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}

	want := []string{"tercero", "primero", "segundo"}
	for i, tr := range sections[0].Transactions {
		if tr.Description != want[i] {
			t.Errorf("row %d = %q, want %q (insertion order, no re-sort)", i, tr.Description, want[i])
		}
	}
}

func TestGroupByMonthZeroDateFallback(t *testing.T) {
	in := []Transaction{
		dated(10, time.August, 2025, "Deposito"),
		{Description: "sin fecha valida"},
	}

	sections := GroupByMonth(in)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	last := sections[1]
	if last.Label != UnknownPeriodLabel {
		t.Errorf("fallback label = %q, want %q", last.Label, UnknownPeriodLabel)
	}
	if len(last.Transactions) != 1 {
		t.Errorf("fallback section rows = %d, want 1 (record must not be dropped)", len(last.Transactions))
	}
}

func TestGroupByMonthEmpty(t *testing.T) {
	if got := GroupByMonth(nil); len(got) != 0 {
		t.Errorf("expected no sections, got %d", len(got))
	}
}
