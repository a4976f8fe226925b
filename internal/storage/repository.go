package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"portal/internal/session"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSession upserts the single persisted session row.
func (r *Repository) SaveSession(ctx context.Context, s session.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portal_session (id, token, holder_id, saved_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			holder_id = excluded.holder_id,
			saved_at = CURRENT_TIMESTAMP`,
		s.Token, s.HolderID)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	slog.InfoContext(ctx, "Session persisted", "holder_id", s.HolderID)
	return nil
}

// LoadSession returns the persisted session, or a zero session when none is
// stored.
func (r *Repository) LoadSession(ctx context.Context) (session.Session, error) {
	var s session.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT token, holder_id FROM portal_session WHERE id = 1`).
		Scan(&s.Token, &s.HolderID)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, nil
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// ClearSession removes the persisted session. Clearing an empty table is not
// an error.
func (r *Repository) ClearSession(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM portal_session WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SessionStorage adapts the repository to the session.Storage port.
type SessionStorage struct {
	repo *Repository
}

var _ session.Storage = (*SessionStorage)(nil)

func (r *Repository) SessionStorage() *SessionStorage {
	return &SessionStorage{repo: r}
}

func (s *SessionStorage) Save(ctx context.Context, sess session.Session) error {
	return s.repo.SaveSession(ctx, sess)
}

func (s *SessionStorage) Load(ctx context.Context) (session.Session, error) {
	return s.repo.LoadSession(ctx)
}

func (s *SessionStorage) Clear(ctx context.Context) error {
	return s.repo.ClearSession(ctx)
}

// Withdrawal is a locally recorded cardless withdrawal request.
type Withdrawal struct {
	ID               int64
	AccountID        string
	AmountCents      int64
	Description      string
	BeneficiaryPhone string
	UpstreamRef      string
	Notified         bool
	CreatedAt        time.Time
}

// CreateWithdrawal records a withdrawal request before the upstream call and
// returns its local id.
func (r *Repository) CreateWithdrawal(ctx context.Context, w Withdrawal) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO withdrawals (account_id, amount_cents, description, beneficiary_phone, upstream_ref)
		VALUES (?, ?, ?, ?, ?)`,
		w.AccountID, w.AmountCents, w.Description, w.BeneficiaryPhone, w.UpstreamRef)
	if err != nil {
		return 0, fmt.Errorf("create withdrawal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("withdrawal id: %w", err)
	}

	slog.InfoContext(ctx, "Withdrawal recorded",
		"id", id,
		"account_id", w.AccountID,
		"amount_cents", w.AmountCents)

	return id, nil
}

// GetWithdrawal retrieves a single withdrawal by local id.
func (r *Repository) GetWithdrawal(ctx context.Context, id int64) (*Withdrawal, error) {
	var w Withdrawal
	var notified int64
	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, amount_cents, description, beneficiary_phone, upstream_ref, notified, created_at
		FROM withdrawals WHERE id = ?`, id).
		Scan(&w.ID, &w.AccountID, &w.AmountCents, &w.Description, &w.BeneficiaryPhone, &w.UpstreamRef, &notified, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("get withdrawal by id: %w", err)
	}
	w.Notified = notified != 0
	w.CreatedAt = parseTimestamp(createdAt)
	return &w, nil
}

// SetUpstreamRef stores the reference the core banking API returned for a
// withdrawal request.
func (r *Repository) SetUpstreamRef(ctx context.Context, id int64, ref string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE withdrawals SET upstream_ref = ? WHERE id = ?`, ref, id); err != nil {
		return fmt.Errorf("set upstream ref: %w", err)
	}
	return nil
}

// MarkNotified marks a withdrawal's beneficiary notification as delivered.
func (r *Repository) MarkNotified(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE withdrawals SET notified = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark withdrawal notified: %w", err)
	}

	slog.InfoContext(ctx, "Withdrawal marked as notified", "id", id)
	return nil
}

// PendingNotifications returns withdrawals whose beneficiary has not been
// notified yet, oldest first.
func (r *Repository) PendingNotifications(ctx context.Context, limit int) ([]Withdrawal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, amount_cents, description, beneficiary_phone, upstream_ref, notified, created_at
		FROM withdrawals WHERE notified = 0 ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending notifications: %w", err)
	}
	defer rows.Close()

	var out []Withdrawal
	for rows.Next() {
		var w Withdrawal
		var notified int64
		var createdAt string
		if err := rows.Scan(&w.ID, &w.AccountID, &w.AmountCents, &w.Description, &w.BeneficiaryPhone, &w.UpstreamRef, &notified, &createdAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		w.Notified = notified != 0
		w.CreatedAt = parseTimestamp(createdAt)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawals: %w", err)
	}

	return out, nil
}

// parseTimestamp reads SQLite's CURRENT_TIMESTAMP text form. A value that
// does not parse yields a zero time rather than an error.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
