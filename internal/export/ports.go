package export

import (
	"context"

	"portal/internal/core"
)

// Ports for outbound statement export adapters.
type (
	// StatementWriter appends a full monthly statement for an account and
	// returns a reference to where it landed.
	StatementWriter interface {
		WriteStatement(ctx context.Context, accountID string, sections []core.StatementSection) (ref string, err error)
	}
)
