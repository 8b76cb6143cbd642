package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-manage/internal/platform/db"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

const roleSelect = `
SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
       COALESCE(array_agg(rr.resource ORDER BY rr.resource) FILTER (WHERE rr.resource IS NOT NULL), '{}')
FROM roles r
LEFT JOIN role_resources rr ON rr.role_id = r.id`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, roleSelect+` GROUP BY r.id ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// FindByID returns the role with id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Role, error) {
	return r.findOne(ctx, roleSelect+` WHERE r.id = $1 GROUP BY r.id`, id)
}

// FindByName returns the role called name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Role, error) {
	return r.findOne(ctx, roleSelect+` WHERE r.name = $1 GROUP BY r.id`, name)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// Create inserts a role and its resources in one transaction.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO roles (name, description, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW())
RETURNING id, name, description, created_at, updated_at`, input.Name, input.Description,
		).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return err
		}
		for _, res := range input.Resources {
			if _, err := tx.Exec(ctx, `INSERT INTO role_resources (role_id, resource) VALUES ($1, $2) ON CONFLICT DO NOTHING`, role.ID, res); err != nil {
				return err
			}
		}
		role.Resources = input.Resources
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "roles_name_key") {
			return nil, fmt.Errorf("roles: name %q: %w", input.Name, shared.ErrDuplicate)
		}
		return nil, err
	}
	return &role, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt, &role.Resources); err != nil {
		return Role{}, err
	}
	return role, nil
}
