// Package api is the typed client for the core banking REST API. It is the
// single place that understands the upstream JSON shapes: amounts are parsed
// leniently (malformed values coerce to 0, never fail the batch) and the
// transaction kind is derived from the description here, once, so the rest
// of the portal works with an explicit kind instead of display text.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portal/internal/core"
)

// ErrUnauthorized reports that the upstream rejected the session token.
var ErrUnauthorized = errors.New("upstream rejected credentials")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Credentials is the result of a successful login exchange.
type Credentials struct {
	Token      string
	HolderID   string
	HolderName string
}

// CardlessWithdrawal is a withdrawal request without a physical card; the
// beneficiary receives a code on their phone.
type CardlessWithdrawal struct {
	AccountID        string
	AmountCents      int64
	Description      string
	BeneficiaryPhone string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Cliente     struct {
		ClienteID     string `json:"cliente_id"`
		ClienteNombre string `json:"cliente_nombre"`
	} `json:"cliente"`
}

type accountDTO struct {
	CuentaID     string `json:"cuenta_id"`
	ClienteID    string `json:"cliente_id"`
	CuentaNumero string `json:"cuenta_numero"`
	CuentaTipo   string `json:"cuenta_tipo"`
	CuentaSaldo  any    `json:"cuenta_saldo"`
}

type transactionDTO struct {
	TransaccionID          string `json:"transaccion_id"`
	CuentaID               string `json:"cuenta_id"`
	TransaccionFecha       string `json:"transaccion_fecha"`
	TransaccionDescripcion string `json:"transaccion_descripcion"`
	TransaccionMonto       any    `json:"transaccion_monto"`
	TransaccionCosto       any    `json:"transaccion_costo"`
}

type withdrawalRequest struct {
	CuentaID            string  `json:"cuenta_id"`
	Monto               float64 `json:"monto"`
	Descripcion         string  `json:"descripcion"`
	CelularBeneficiario string  `json:"celular_beneficiario"`
}

type withdrawalResponse struct {
	TransaccionID string `json:"transaccion_id"`
}

// Login exchanges customer credentials for a session token and holder id.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/token", "", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return Credentials{}, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return Credentials{}, fmt.Errorf("login: %w", ErrUnauthorized)
	}

	return Credentials{
		Token:      resp.AccessToken,
		HolderID:   resp.Cliente.ClienteID,
		HolderName: resp.Cliente.ClienteNombre,
	}, nil
}

// Accounts lists the holder's accounts.
func (c *Client) Accounts(ctx context.Context, token, holderID string) ([]core.Account, error) {
	var dtos []accountDTO
	path := "/clientes/" + url.PathEscape(holderID) + "/cuentas"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &dtos); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]core.Account, len(dtos))
	for i, d := range dtos {
		accounts[i] = core.Account{
			ID:       d.CuentaID,
			HolderID: d.ClienteID,
			Number:   d.CuentaNumero,
			Type:     d.CuentaTipo,
			Balance:  core.Money{Cents: core.ParseSignedToCents(amountString(d.CuentaSaldo))},
		}
	}
	return accounts, nil
}

// Transactions lists the raw ledger rows of an account, already coerced into
// the portal's transaction model; the relative order delivered by the
// upstream is preserved.
func (c *Client) Transactions(ctx context.Context, token, accountID string) ([]core.Transaction, error) {
	var dtos []transactionDTO
	path := "/cuentas/" + url.PathEscape(accountID) + "/transacciones"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &dtos); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs := make([]core.Transaction, len(dtos))
	for i, d := range dtos {
		txs[i] = core.Transaction{
			ID:          d.TransaccionID,
			AccountID:   d.CuentaID,
			Date:        parseUpstreamDate(d.TransaccionFecha),
			Description: d.TransaccionDescripcion,
			Kind:        core.KindFromDescription(d.TransaccionDescripcion),
			Amount:      core.Money{Cents: core.ParseSignedToCents(amountString(d.TransaccionMonto))},
			Fee:         core.Money{Cents: core.ParseSignedToCents(amountString(d.TransaccionCosto))},
		}
	}
	return txs, nil
}

// RequestCardlessWithdrawal forwards a cardless withdrawal to the upstream
// and returns its transaction reference.
func (c *Client) RequestCardlessWithdrawal(ctx context.Context, token string, w CardlessWithdrawal) (string, error) {
	req := withdrawalRequest{
		CuentaID:            w.AccountID,
		Monto:               core.Money{Cents: w.AmountCents}.Dollars(),
		Descripcion:         w.Description,
		CelularBeneficiario: w.BeneficiaryPhone,
	}

	var resp withdrawalResponse
	path := "/cuentas/" + url.PathEscape(w.AccountID) + "/retiro-sin-tarjeta"
	if err := c.do(ctx, http.MethodPost, path, token, req, &resp); err != nil {
		return "", fmt.Errorf("cardless withdrawal: %w", err)
	}
	return resp.TransaccionID, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call upstream: %w", err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Upstream call completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// amountString renders whatever the upstream sent in a numeric field so the
// lenient parser can have a go at it. Unknown shapes coerce to "".
func amountString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case json.Number:
		return n.String()
	case float64:
		return fmt.Sprintf("%.2f", n)
	default:
		return ""
	}
}

// Upstream timestamps arrive in a couple of shapes depending on the
// endpoint; anything unreadable maps to the zero time and lands in the
// statement's fallback section downstream.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseUpstreamDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
