// Package store persists chat sessions and their messages for the
// reference session store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guilhermegouw/chatkeeper/internal/session"
)

// DefaultTitle is used when a session is created without a title or a
// first message.
const DefaultTitle = "New Chat"

var (
	// ErrNotFound is returned when a session is not found.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidRole is returned when appending a message with an unknown role.
	ErrInvalidRole = errors.New("invalid message role")
	// ErrMissingToken is returned when creating a session without an owner.
	ErrMissingToken = errors.New("owner token is required")
)

// CreateParams describes a new session.
type CreateParams struct {
	OwnerToken   string
	FocusMode    string
	Title        string
	FirstMessage string
	// CreatedAt defaults to the current time.
	CreatedAt time.Time
}

// ChatExport is one session with its full conversation.
type ChatExport struct {
	Record   session.Record
	Messages []Message
}

// SQLiteStore stores sessions in SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-backed session store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

const sessionColumns = `id, owner_token, title, focus_mode, archived, shared, created_at`

// Create inserts a new session. Without a title, one is derived from the
// first message, which is also stored as the opening user turn.
func (s *SQLiteStore) Create(ctx context.Context, p CreateParams) (session.Record, error) {
	if p.OwnerToken == "" {
		return session.Record{}, ErrMissingToken
	}

	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = session.DeriveTitle(p.FirstMessage)
	}
	if title == "" {
		title = DefaultTitle
	}

	rec := session.Record{
		ID:         uuid.New().String(),
		Title:      title,
		CreatedAt:  time.UnixMilli(p.CreatedAt.UnixMilli()).UTC(),
		FocusMode:  p.FocusMode,
		OwnerToken: p.OwnerToken,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return session.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_token, title, focus_mode, archived, shared, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		rec.ID, rec.OwnerToken, rec.Title, rec.FocusMode, rec.CreatedAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return session.Record{}, fmt.Errorf("creating session: %w", err)
	}

	if first := strings.TrimSpace(p.FirstMessage); first != "" {
		if _, err := insertMessage(ctx, tx, rec.ID, RoleUser, first, rec.CreatedAt); err != nil {
			return session.Record{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return session.Record{}, fmt.Errorf("committing session: %w", err)
	}
	return rec, nil
}

// Get retrieves a session by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (session.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Record{}, ErrNotFound
		}
		return session.Record{}, fmt.Errorf("getting session: %w", err)
	}
	return rec, nil
}

// List returns the owner's sessions with the given archived flag, newest
// first.
func (s *SQLiteStore) List(ctx context.Context, ownerToken string, archived bool) ([]session.Record, error) {
	return s.query(ctx, "listing sessions",
		`SELECT `+sessionColumns+` FROM sessions WHERE owner_token = ? AND archived = ?
		 ORDER BY created_at DESC, id ASC`,
		ownerToken, boolInt(archived))
}

// ListShared returns the owner's shared sessions, newest first.
func (s *SQLiteStore) ListShared(ctx context.Context, ownerToken string) ([]session.Record, error) {
	return s.query(ctx, "listing shared sessions",
		`SELECT `+sessionColumns+` FROM sessions WHERE owner_token = ? AND shared = 1
		 ORDER BY created_at DESC, id ASC`,
		ownerToken)
}

// SetArchived sets the archived flag. Setting the current value succeeds.
func (s *SQLiteStore) SetArchived(ctx context.Context, id string, archived bool) error {
	return s.update(ctx, "archiving session",
		`UPDATE sessions SET archived = ?, updated_at = ? WHERE id = ?`,
		boolInt(archived), s.now().UnixMilli(), id)
}

// SetShared sets the shared flag.
func (s *SQLiteStore) SetShared(ctx context.Context, id string, shared bool) error {
	return s.update(ctx, "sharing session",
		`UPDATE sessions SET shared = ?, updated_at = ? WHERE id = ?`,
		boolInt(shared), s.now().UnixMilli(), id)
}

// Rename sets the session title.
func (s *SQLiteStore) Rename(ctx context.Context, id, title string) error {
	return s.update(ctx, "renaming session",
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		title, s.now().UnixMilli(), id)
}

// Delete removes a session and, by cascade, its messages.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.update(ctx, "deleting session", `DELETE FROM sessions WHERE id = ?`, id)
}

// DeleteAll removes every session of the owner and returns how many were
// removed.
func (s *SQLiteStore) DeleteAll(ctx context.Context, ownerToken string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE owner_token = ?`, ownerToken)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	return n, nil
}

// AppendMessage adds a turn to a session.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if _, err := s.Get(ctx, sessionID); err != nil {
		return Message{}, err
	}
	return insertMessage(ctx, s.db, sessionID, role, content, s.now())
}

// Messages returns the turns of a session in order.
func (s *SQLiteStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM messages
		 WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var (
			m         Message
			role      string
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = Role(role)
		m.CreatedAt = time.UnixMilli(createdAt).UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// Export returns every session of the owner, archived ones included, with
// their messages.
func (s *SQLiteStore) Export(ctx context.Context, ownerToken string) ([]ChatExport, error) {
	records, err := s.query(ctx, "exporting sessions",
		`SELECT `+sessionColumns+` FROM sessions WHERE owner_token = ?
		 ORDER BY created_at DESC, id ASC`,
		ownerToken)
	if err != nil {
		return nil, err
	}

	out := make([]ChatExport, 0, len(records))
	for _, rec := range records {
		msgs, err := s.Messages(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ChatExport{Record: rec, Messages: msgs})
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMessage(ctx context.Context, db execer, sessionID string, role Role, content string, at time.Time) (Message, error) {
	m := Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.UnixMilli(at.UnixMilli()).UTC(),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, string(m.Role), m.Content, m.CreatedAt.UnixMilli())
	if err != nil {
		return Message{}, fmt.Errorf("creating message: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) query(ctx context.Context, what, query string, args ...any) ([]session.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	records := []session.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return records, nil
}

// update runs a single-row statement and reports ErrNotFound when no row
// matched.
func (s *SQLiteStore) update(ctx context.Context, what, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (session.Record, error) {
	var (
		rec       session.Record
		archived  int64
		shared    int64
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &rec.OwnerToken, &rec.Title, &rec.FocusMode, &archived, &shared, &createdAt); err != nil {
		return session.Record{}, err
	}
	rec.Archived = archived != 0
	rec.Shared = shared != 0
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
