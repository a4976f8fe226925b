package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portal/internal/api"
	"portal/internal/core"
	"portal/internal/export/memory"
	"portal/internal/session"
)

type fakeBank struct {
	creds    api.Credentials
	loginErr error
	accounts []core.Account
}

func (f *fakeBank) Login(ctx context.Context, email, password string) (api.Credentials, error) {
	if f.loginErr != nil {
		return api.Credentials{}, f.loginErr
	}
	return f.creds, nil
}

func (f *fakeBank) Accounts(ctx context.Context, token, holderID string) ([]core.Account, error) {
	return f.accounts, nil
}

type fakeStatements struct {
	sections    []core.StatementSection
	invalidated []string
}

func (f *fakeStatements) Statement(ctx context.Context, token, accountID string) ([]core.StatementSection, error) {
	return f.sections, nil
}

func (f *fakeStatements) Invalidate(accountID string) {
	f.invalidated = append(f.invalidated, accountID)
}

type fakeWithdrawals struct {
	ref  string
	last api.CardlessWithdrawal
}

func (f *fakeWithdrawals) Request(ctx context.Context, token string, w api.CardlessWithdrawal) (string, error) {
	f.last = w
	return f.ref, nil
}

type fakeRouter struct {
	branch   core.Branch
	distance float64
	found    bool
}

func (f *fakeRouter) Nearest(ctx context.Context, ref core.Point, branches []core.Branch) (core.Branch, float64, bool) {
	return f.branch, f.distance, f.found
}

func testBranches() []core.Branch {
	return []core.Branch{
		{Name: "A", Location: core.Point{Lat: -0.30828, Lng: -78.45077}},
		{Name: "B", Location: core.Point{Lat: -0.29095, Lng: -78.46586}},
	}
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(session.NewMemoryStorage())
	}
	if deps.Reference == (core.Point{}) {
		deps.Reference = core.Point{Lat: -0.3275504, Lng: -78.4429118}
	}
	if deps.Branches == nil {
		deps.Branches = testBranches()
	}
	s := NewServer(":0", deps)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func login(t *testing.T, s *Server) {
	t.Helper()
	if err := s.sessions.Login(context.Background(), "abc123", "42"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginOpensSession(t *testing.T) {
	bank := &fakeBank{creds: api.Credentials{Token: "abc123", HolderID: "42", HolderName: "Ana"}}
	s := newTestServer(t, Deps{Bank: bank})

	rec := doRequest(s, http.MethodPost, "/session", `{"email":"ana@example.com","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Authenticated || resp.HolderID != "42" || resp.HolderName != "Ana" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !s.sessions.IsAuthenticated() {
		t.Error("expected session to be open")
	}
}

func TestLoginRejectedUpstream(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{loginErr: api.ErrUnauthorized}})

	rec := doRequest(s, http.MethodPost, "/session", `{"email":"ana@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if s.sessions.IsAuthenticated() {
		t.Error("session must stay closed after a rejected login")
	}
}

func TestLoginValidation(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	rec := doRequest(s, http.MethodPost, "/session", `{"email":"","password":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/session", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSessionInfoAndLogout(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	rec := doRequest(s, http.MethodGet, "/session", "")
	var resp sessionResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Authenticated {
		t.Error("expected unauthenticated session")
	}

	login(t, s)
	rec = doRequest(s, http.MethodGet, "/session", "")
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Authenticated || resp.HolderID != "42" {
		t.Errorf("unexpected session info: %+v", resp)
	}

	// Logout twice, both are 204
	for i := 0; i < 2; i++ {
		rec = doRequest(s, http.MethodDelete, "/session", "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("logout status = %d, want 204", rec.Code)
		}
	}
	if s.sessions.IsAuthenticated() {
		t.Error("expected session closed after logout")
	}
}

func TestAccountsRequiresSession(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	rec := doRequest(s, http.MethodGet, "/accounts", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAccounts(t *testing.T) {
	bank := &fakeBank{accounts: []core.Account{
		{ID: "c1", Number: "2201234567", Type: "Ahorros", Balance: core.Money{Cents: 15075}},
	}}
	s := newTestServer(t, Deps{Bank: bank})
	login(t, s)

	rec := doRequest(s, http.MethodGet, "/accounts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var accounts []accountJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &accounts); err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || accounts[0].Balance != 150.75 {
		t.Errorf("unexpected accounts: %+v", accounts)
	}
}

func TestStatement(t *testing.T) {
	statements := &fakeStatements{sections: []core.StatementSection{
		{
			Label: "agosto de 2025",
			Year:  2025,
			Month: time.August,
			Transactions: []core.Transaction{
				{ID: "t1", Description: "Retiro", Kind: core.KindWithdrawal, Amount: core.Money{Cents: -1000}, Fee: core.Money{Cents: -35}},
			},
		},
	}}
	s := newTestServer(t, Deps{Bank: &fakeBank{}, Statements: statements})
	login(t, s)

	rec := doRequest(s, http.MethodGet, "/accounts/c1/statement", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var sections []statementSectionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &sections); err != nil {
		t.Fatal(err)
	}
	if len(sections) != 1 || sections[0].Label != "agosto de 2025" {
		t.Fatalf("unexpected sections: %+v", sections)
	}
	tx := sections[0].Transactions[0]
	if tx.Amount != -10.0 || tx.Fee != -0.35 || tx.Kind != "withdrawal" {
		t.Errorf("unexpected transaction: %+v", tx)
	}
	if !tx.Debit {
		t.Errorf("withdrawal not flagged as debit: %+v", tx)
	}
}

func TestWithdrawal(t *testing.T) {
	statements := &fakeStatements{}
	withdrawals := &fakeWithdrawals{ref: "w-77"}
	s := newTestServer(t, Deps{Bank: &fakeBank{}, Statements: statements, Withdrawals: withdrawals})
	login(t, s)

	rec := doRequest(s, http.MethodPost, "/accounts/c1/withdrawals",
		`{"amount":25.00,"description":"Retiro sin tarjeta","beneficiary_phone":"0991234567"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	if withdrawals.last.AmountCents != 2500 || withdrawals.last.AccountID != "c1" {
		t.Errorf("unexpected forwarded withdrawal: %+v", withdrawals.last)
	}
	if len(statements.invalidated) != 1 || statements.invalidated[0] != "c1" {
		t.Errorf("expected statement cache invalidation for c1, got %v", statements.invalidated)
	}
}

func TestWithdrawalValidation(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}, Statements: &fakeStatements{}, Withdrawals: &fakeWithdrawals{}})
	login(t, s)

	rec := doRequest(s, http.MethodPost, "/accounts/c1/withdrawals",
		`{"amount":0,"beneficiary_phone":"0991234567"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/accounts/c1/withdrawals", `{"amount":10}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestExportStatement(t *testing.T) {
	statements := &fakeStatements{sections: []core.StatementSection{{Label: "agosto de 2025"}}}
	store := memory.New()
	s := newTestServer(t, Deps{Bank: &fakeBank{}, Statements: statements, Exporter: store})
	login(t, s)

	rec := doRequest(s, http.MethodPost, "/accounts/c1/statement/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := store.Statements("c1"); len(got) != 1 {
		t.Errorf("expected 1 exported statement, got %d", len(got))
	}
}

func TestExportStatementNotConfigured(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}, Statements: &fakeStatements{}})
	login(t, s)

	rec := doRequest(s, http.MethodPost, "/accounts/c1/statement/export", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestBranchesList(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	rec := doRequest(s, http.MethodGet, "/branches", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var branches []branchJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &branches); err != nil {
		t.Fatal(err)
	}
	if len(branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(branches))
	}
	for _, b := range branches {
		if b.DistanceM <= 0 {
			t.Errorf("branch %s has non-positive distance %f", b.Name, b.DistanceM)
		}
	}
}

func TestNearestBranchLine(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	rec := doRequest(s, http.MethodGet, "/branches/nearest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp nearestJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Name != "A" || resp.Method != "line" {
		t.Errorf("unexpected nearest: %+v", resp)
	}
}

func TestNearestBranchRoad(t *testing.T) {
	router := &fakeRouter{
		branch:   core.Branch{Name: "B", Location: core.Point{Lat: -0.29095, Lng: -78.46586}},
		distance: 4900,
		found:    true,
	}
	s := newTestServer(t, Deps{Bank: &fakeBank{}, RoadRouter: router})

	rec := doRequest(s, http.MethodGet, "/branches/nearest?by=road", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp nearestJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Name != "B" || resp.Method != "road" || resp.DistanceM != 4900 {
		t.Errorf("unexpected nearest: %+v", resp)
	}
}

func TestNearestBranchRoadNotConfigured(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	rec := doRequest(s, http.MethodGet, "/branches/nearest?by=road", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestNearestBranchUnknownMethod(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	rec := doRequest(s, http.MethodGet, "/branches/nearest?by=teleport", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestNearestBranchEmptyCatalog(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}, Branches: []core.Branch{}})

	rec := doRequest(s, http.MethodGet, "/branches/nearest", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNearestBranchCustomReference(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	// Reference next to B flips the winner.
	rec := doRequest(s, http.MethodGet, "/branches/nearest?lat=-0.29100&lng=-78.46580", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp nearestJSON
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Name != "B" {
		t.Errorf("expected B, got %s", resp.Name)
	}

	rec = doRequest(s, http.MethodGet, "/branches/nearest?lat=95&lng=0", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for out-of-range latitude", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/branches/nearest?lat=abc&lng=0", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for malformed latitude", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, Deps{Bank: &fakeBank{}})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}
