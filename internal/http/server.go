// Package http exposes the portal's JSON API: session lifecycle, account
// statements, cardless withdrawals and branch proximity.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"portal/internal/api"
	"portal/internal/core"
	"portal/internal/export"
	"portal/internal/session"
)

// BankGateway is the slice of the upstream API the handlers need.
type BankGateway interface {
	Login(ctx context.Context, email, password string) (api.Credentials, error)
	Accounts(ctx context.Context, token, holderID string) ([]core.Account, error)
}

// StatementProvider builds grouped monthly statements.
type StatementProvider interface {
	Statement(ctx context.Context, token, accountID string) ([]core.StatementSection, error)
	Invalidate(accountID string)
}

// WithdrawalRequester performs cardless withdrawals.
type WithdrawalRequester interface {
	Request(ctx context.Context, token string, w api.CardlessWithdrawal) (string, error)
}

// RoadRouter ranks branches by road distance.
type RoadRouter interface {
	Nearest(ctx context.Context, ref core.Point, branches []core.Branch) (core.Branch, float64, bool)
}

type Server struct {
	http.Server
	sessions    *session.Store
	bank        BankGateway
	statements  StatementProvider
	withdrawals WithdrawalRequester
	exporter    export.StatementWriter
	roadRouter  RoadRouter
	branches    []core.Branch
	reference   core.Point
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// Deps bundles the collaborators of the server. Exporter and RoadRouter are
// optional; the matching endpoints answer 503 when absent.
type Deps struct {
	Sessions    *session.Store
	Bank        BankGateway
	Statements  StatementProvider
	Withdrawals WithdrawalRequester
	Exporter    export.StatementWriter
	RoadRouter  RoadRouter
	Branches    []core.Branch
	Reference   core.Point
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		sessions:    deps.Sessions,
		bank:        deps.Bank,
		statements:  deps.Statements,
		withdrawals: deps.Withdrawals,
		exporter:    deps.Exporter,
		roadRouter:  deps.RoadRouter,
		branches:    deps.Branches,
		reference:   deps.Reference,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /session", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("GET /session", s.withSecurityHeaders(s.handleSessionInfo))
	mux.HandleFunc("DELETE /session", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("GET /accounts", s.withSecurityHeaders(s.requireSession(s.handleAccounts)))
	mux.HandleFunc("GET /accounts/{id}/statement", s.withSecurityHeaders(s.requireSession(s.handleStatement)))
	mux.HandleFunc("POST /accounts/{id}/statement/export", s.withSecurityHeaders(s.requireSession(s.handleExportStatement)))
	mux.HandleFunc("POST /accounts/{id}/withdrawals", s.withSecurityHeaders(s.requireSession(s.handleWithdrawal)))

	mux.HandleFunc("GET /branches", s.withSecurityHeaders(s.handleBranches))
	mux.HandleFunc("GET /branches/nearest", s.withSecurityHeaders(s.handleNearestBranch))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating requests
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireSession rejects requests when no customer is logged in.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.IsAuthenticated() {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next(w, r)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
