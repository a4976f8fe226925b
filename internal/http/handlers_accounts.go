package http

import (
	"log/slog"
	"net/http"
	"time"

	"portal/internal/api"
	"portal/internal/core"
)

type accountJSON struct {
	ID      string  `json:"id"`
	Number  string  `json:"number"`
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

type transactionJSON struct {
	ID          string  `json:"id"`
	Date        string  `json:"date,omitempty"`
	Description string  `json:"description"`
	Kind        string  `json:"kind"`
	Amount      float64 `json:"amount"`
	Fee         float64 `json:"fee"`
	Debit       bool    `json:"debit"`
}

type statementSectionJSON struct {
	Label        string            `json:"label"`
	Year         int               `json:"year,omitempty"`
	Month        int               `json:"month,omitempty"`
	Transactions []transactionJSON `json:"transactions"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	current, _ := s.sessions.Current()

	accounts, err := s.bank.Accounts(r.Context(), current.Token, current.HolderID)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	out := make([]accountJSON, len(accounts))
	for i, a := range accounts {
		out[i] = accountJSON{
			ID:      a.ID,
			Number:  a.Number,
			Type:    a.Type,
			Balance: a.Balance.Dollars(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	current, _ := s.sessions.Current()
	accountID := r.PathValue("id")

	sections, err := s.statements.Statement(r.Context(), current.Token, accountID)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statementToJSON(sections))
}

// handleExportStatement pushes the account's statement to the configured
// spreadsheet.
func (s *Server) handleExportStatement(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "statement export is not configured")
		return
	}

	current, _ := s.sessions.Current()
	accountID := r.PathValue("id")

	sections, err := s.statements.Statement(r.Context(), current.Token, accountID)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	ref, err := s.exporter.WriteStatement(r.Context(), accountID, sections)
	if err != nil {
		slog.ErrorContext(r.Context(), "Statement export failed", "account_id", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "statement export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"ref": ref})
}

type withdrawalRequest struct {
	Amount           float64 `json:"amount"`
	Description      string  `json:"description"`
	BeneficiaryPhone string  `json:"beneficiary_phone"`
}

func (s *Server) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	current, _ := s.sessions.Current()
	accountID := r.PathValue("id")

	var req withdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}
	if req.BeneficiaryPhone == "" {
		writeError(w, http.StatusUnprocessableEntity, "beneficiary phone is required")
		return
	}

	ref, err := s.withdrawals.Request(r.Context(), current.Token, api.CardlessWithdrawal{
		AccountID:        accountID,
		AmountCents:      dollarsToCents(req.Amount),
		Description:      req.Description,
		BeneficiaryPhone: req.BeneficiaryPhone,
	})
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	// The cached statement no longer reflects the ledger.
	s.statements.Invalidate(accountID)

	writeJSON(w, http.StatusCreated, map[string]string{"upstream_ref": ref})
}

func statementToJSON(sections []core.StatementSection) []statementSectionJSON {
	out := make([]statementSectionJSON, len(sections))
	for i, section := range sections {
		txs := make([]transactionJSON, len(section.Transactions))
		for j, tx := range section.Transactions {
			date := ""
			if !tx.Date.IsZero() {
				date = tx.Date.Format(time.RFC3339)
			}
			txs[j] = transactionJSON{
				ID:          tx.ID,
				Date:        date,
				Description: tx.Description,
				Kind:        string(tx.Kind),
				Amount:      tx.Amount.Dollars(),
				Fee:         tx.Fee.Dollars(),
				Debit:       tx.IsDebit(),
			}
		}
		out[i] = statementSectionJSON{
			Label:        section.Label,
			Year:         section.Year,
			Month:        int(section.Month),
			Transactions: txs,
		}
	}
	return out
}
