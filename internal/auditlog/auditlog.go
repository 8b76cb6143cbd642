// Package auditlog persists the management audit trail.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-manage/internal/manage"
)

// Categories and actions written by this module.
const (
	CategoryAdministrator = "Administrator"
	ActionLogin           = "Login"
	ActionLoginFailed     = "LoginFailed"
)

// ErrInvalidEntry is returned for entries missing a category or action.
var ErrInvalidEntry = errors.New("auditlog: category and action are required")

// Entry is one audit record.
type Entry struct {
	ID       int64          `json:"id"`
	ActorID  int64          `json:"actor_id,omitempty"`
	Category string         `json:"category"`
	Action   string         `json:"action"`
	Subject  string         `json:"subject,omitempty"`
	IP       string         `json:"ip,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

func (e *Entry) GetCategory() string { return e.Category }
func (e *Entry) GetAction() string   { return e.Action }

var _ manage.Log = (*Entry)(nil)

// Recorder stores audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Logger writes records into admin_logs.
type Logger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewLogger returns a new Logger.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool, now: time.Now}
}

// Record persists the log entry. A zero At is stamped with the current time.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil || l.pool == nil {
		return errors.New("auditlog: logger not initialised")
	}
	if err := entry.validate(); err != nil {
		return err
	}
	if entry.At.IsZero() {
		entry.At = l.now()
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("auditlog: encode meta: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
INSERT INTO admin_logs (actor_id, category, action, subject, ip, meta, occurred_at)
VALUES (NULLIF($1, 0), $2, $3, $4, $5, $6, $7)`,
		entry.ActorID, entry.Category, entry.Action, entry.Subject, entry.IP, meta, entry.At)
	return err
}

// Recent returns the latest entries, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
SELECT id, COALESCE(actor_id, 0), category, action, subject, ip, meta, occurred_at
FROM admin_logs ORDER BY occurred_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Category, &e.Action, &e.Subject, &e.IP, &meta, &e.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("auditlog: decode meta: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (e Entry) validate() error {
	if e.Category == "" || e.Action == "" {
		return ErrInvalidEntry
	}
	return nil
}

type remoteAddrKey struct{}

// WithRemoteAddr stores the client address recorded on entries.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteAddrKey{}, addr)
}

// RemoteAddr returns the client address stored by WithRemoteAddr.
func RemoteAddr(ctx context.Context) string {
	addr, _ := ctx.Value(remoteAddrKey{}).(string)
	return addr
}
