package core

import (
	"fmt"
	"time"
)

// UnknownPeriodLabel is the statement section for rows whose date is missing
// or unparseable. Such rows are kept, never dropped.
const UnknownPeriodLabel = "Sin fecha"

// StatementSection is the set of transactions grouped under one calendar
// month for display.
type StatementSection struct {
	Label        string
	Year         int
	Month        time.Month
	Transactions []Transaction
}

// Month names in the upstream display locale (es-EC).
var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthLabel formats the statement label for a transaction date, for
// example "agosto de 2025". A zero date maps to UnknownPeriodLabel.
func MonthLabel(t time.Time) string {
	if t.IsZero() {
		return UnknownPeriodLabel
	}
	return fmt.Sprintf("%s de %d", monthNames[t.Month()-1], t.Year())
}

// GroupByMonth partitions transactions into statement sections keyed by the
// calendar month of each transaction date. Sections appear in the order their
// month is first encountered, and rows keep the order of the input within a
// section; nothing is re-sorted. Callers that want newest-first statements
// must pass transactions already ordered that way.
//
// Every input row lands in exactly one section; rows with a zero date go to
// the UnknownPeriodLabel section.
func GroupByMonth(txs []Transaction) []StatementSection {
	index := make(map[string]int)
	sections := make([]StatementSection, 0)

	for _, t := range txs {
		label := MonthLabel(t.Date)
		i, ok := index[label]
		if !ok {
			i = len(sections)
			index[label] = i
			s := StatementSection{Label: label}
			if !t.Date.IsZero() {
				s.Year = t.Date.Year()
				s.Month = t.Date.Month()
			}
			sections = append(sections, s)
		}
		sections[i].Transactions = append(sections[i].Transactions, t)
	}

	return sections
}
