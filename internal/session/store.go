// Package session is the single source of truth for "is this customer
// authenticated". It holds the upstream-issued credential token and the
// account holder id, gates every other fetch, and survives a restart through
// a pluggable storage backend. It never validates token contents or expiry;
// that is the issuing server's property.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Session is the credential pair issued by the upstream login exchange.
// Invariant: HolderID is set if and only if Token is set.
type Session struct {
	Token    string
	HolderID string
}

// IsZero reports whether the session is empty (unauthenticated).
func (s Session) IsZero() bool {
	return s.Token == ""
}

var (
	ErrMissingToken    = errors.New("missing token")
	ErrMissingHolderID = errors.New("missing holder id")
)

// Storage persists exactly one session across restarts. Load returns a zero
// Session (and no error) when nothing is persisted.
type Storage interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (Session, error)
	Clear(ctx context.Context) error
}

// Store is the process-wide session holder. Construct one per process and
// inject it into consumers; do not reach for ambient globals.
type Store struct {
	mu      sync.RWMutex
	current Session
	storage Storage
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Restore populates in-memory state from storage so a restart does not force
// re-authentication. Storage failures degrade to "not authenticated" and are
// only logged; Restore never fails.
func (st *Store) Restore(ctx context.Context) {
	if st.storage == nil {
		return
	}

	s, err := st.storage.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Session restore failed, starting unauthenticated", "error", err)
		return
	}
	if s.IsZero() {
		return
	}
	if s.HolderID == "" {
		// A persisted token without its holder id breaks the invariant and
		// cannot serve subsequent queries. Discard it.
		slog.WarnContext(ctx, "Persisted session missing holder id, discarding")
		_ = st.storage.Clear(ctx)
		return
	}

	st.mu.Lock()
	st.current = s
	st.mu.Unlock()

	slog.InfoContext(ctx, "Session restored", "holder_id", s.HolderID)
}

// Login stores the credential pair in memory and persists it. A persistence
// failure is logged but does not fail the login: the in-memory session is
// authoritative for this process lifetime.
func (st *Store) Login(ctx context.Context, token, holderID string) error {
	if token == "" {
		return ErrMissingToken
	}
	if holderID == "" {
		return ErrMissingHolderID
	}

	s := Session{Token: token, HolderID: holderID}

	st.mu.Lock()
	st.current = s
	st.mu.Unlock()

	if st.storage != nil {
		if err := st.storage.Save(ctx, s); err != nil {
			slog.WarnContext(ctx, "Failed to persist session", "error", err)
		}
	}

	slog.InfoContext(ctx, "Session established", "holder_id", holderID)
	return nil
}

// Logout clears both in-memory and persisted state. Calling it while already
// logged out is a no-op, not an error.
func (st *Store) Logout(ctx context.Context) {
	st.mu.Lock()
	wasEmpty := st.current.IsZero()
	st.current = Session{}
	st.mu.Unlock()

	if st.storage != nil {
		if err := st.storage.Clear(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to clear persisted session", "error", err)
		}
	}

	if !wasEmpty {
		slog.InfoContext(ctx, "Session closed")
	}
}

// IsAuthenticated reports whether a token is present.
func (st *Store) IsAuthenticated() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return !st.current.IsZero()
}

// Current returns the session and whether it is populated.
func (st *Store) Current() (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current, !st.current.IsZero()
}
