package admins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-manage/internal/platform/db"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

const adminColumns = `id, account, name, password_hash, COALESCE(role_id, 0), is_active, logins, last_login_at, last_login_ip, created_at, updated_at`

// Repository defines persistence operations for administrators.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Administrator, error)
	FindByAccount(ctx context.Context, account string) (*Administrator, error)
	RecordLogin(ctx context.Context, id int64, at time.Time, ip string) error
	Create(ctx context.Context, input CreateInput, passwordHash string) (*Administrator, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByID fetches an administrator by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Administrator, error) {
	return scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM administrators WHERE id = $1`, id))
}

// FindByAccount fetches an administrator by login account, ignoring case.
func (r *PGRepository) FindByAccount(ctx context.Context, account string) (*Administrator, error) {
	return scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM administrators WHERE lower(account) = lower($1)`, account))
}

// RecordLogin bumps the login counter and stores the last login time and address.
func (r *PGRepository) RecordLogin(ctx context.Context, id int64, at time.Time, ip string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE administrators
SET logins = logins + 1, last_login_at = $2, last_login_ip = $3, updated_at = NOW()
WHERE id = $1`, id, at.UTC(), ip)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Create inserts an administrator with an already hashed password.
func (r *PGRepository) Create(ctx context.Context, input CreateInput, passwordHash string) (*Administrator, error) {
	admin, err := scanAdmin(r.pool.QueryRow(ctx, `
INSERT INTO administrators (account, name, password_hash, role_id, is_active, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, 0), $5, NOW(), NOW())
RETURNING `+adminColumns,
		input.Account, input.Name, passwordHash, input.RoleID, !input.Disabled))
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("admins: account %q: %w", input.Account, shared.ErrDuplicate)
		}
		return nil, err
	}
	return admin, nil
}

func scanAdmin(row pgx.Row) (*Administrator, error) {
	var (
		admin     Administrator
		lastLogin pgtype.Timestamptz
		lastIP    pgtype.Text
	)
	err := row.Scan(&admin.ID, &admin.Account, &admin.Name, &admin.PasswordHash, &admin.RoleID,
		&admin.IsActive, &admin.Logins, &lastLogin, &lastIP, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		at := lastLogin.Time
		admin.LastLoginAt = &at
	}
	admin.LastLoginIP = lastIP.String
	return &admin, nil
}

var _ Repository = (*PGRepository)(nil)
