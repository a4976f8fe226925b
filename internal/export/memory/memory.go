// Package memory is an in-memory statement writer used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"portal/internal/core"
)

type Store struct {
	mu         sync.Mutex
	statements map[string][][]core.StatementSection
}

func New() *Store {
	return &Store{statements: make(map[string][][]core.StatementSection)}
}

// WriteStatement stores the statement and returns a synthetic reference.
func (s *Store) WriteStatement(_ context.Context, accountID string, sections []core.StatementSection) (string, error) {
	if accountID == "" {
		return "", errors.New("missing account id")
	}
	if len(sections) == 0 {
		return "", errors.New("statement is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements[accountID] = append(s.statements[accountID], sections)
	return fmt.Sprintf("mem:%s:%d", accountID, len(s.statements[accountID])), nil
}

// Statements returns every statement written for the account, in order.
func (s *Store) Statements(accountID string) [][]core.StatementSection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]core.StatementSection, len(s.statements[accountID]))
	copy(out, s.statements[accountID])
	return out
}
