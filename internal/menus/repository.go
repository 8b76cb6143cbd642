package menus

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

const menuColumns = `id, parent_id, name, url, resource, sort, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAll returns every menu row, unordered.
func (r *Repository) ListAll(ctx context.Context) ([]Menu, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuColumns+` FROM menus`)
	if err != nil {
		return nil, err
	}
	return collectMenus(rows)
}

// Tree returns the virtual root with the full menu tree attached.
func (r *Repository) Tree(ctx context.Context) (*Menu, error) {
	rows, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(NewRoot(), rows), nil
}

// FindByID returns the menu with id and all of its descendants.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Menu, error) {
	rows, err := r.pool.Query(ctx, `
WITH RECURSIVE subtree AS (
    SELECT `+menuColumns+`, ARRAY[id] AS path FROM menus WHERE id = $1
    UNION ALL
    SELECT m.id, m.parent_id, m.name, m.url, m.resource, m.sort, m.created_at, m.updated_at, s.path || m.id
    FROM menus m
    JOIN subtree s ON m.parent_id = s.id
    WHERE NOT m.id = ANY(s.path)
)
SELECT `+menuColumns+` FROM subtree`, id)
	if err != nil {
		return nil, err
	}
	list, err := collectMenus(rows)
	if err != nil {
		return nil, err
	}
	var node *Menu
	for i := range list {
		if list[i].ID == id {
			node = &list[i]
			break
		}
	}
	if node == nil {
		return nil, shared.ErrNotFound
	}
	root := *node
	return BuildTree(&root, list), nil
}

// Create inserts a new menu.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Menu, error) {
	var m Menu
	err := r.pool.QueryRow(ctx, `
INSERT INTO menus (parent_id, name, url, resource, sort, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING `+menuColumns,
		input.ParentID, input.Name, input.URL, input.Resource, input.Sort,
	).Scan(&m.ID, &m.ParentID, &m.Name, &m.URL, &m.Resource, &m.Sort, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("menus: create %q: %w", input.Name, err)
	}
	return &m, nil
}

func collectMenus(rows pgx.Rows) ([]Menu, error) {
	defer rows.Close()
	var out []Menu
	for rows.Next() {
		var m Menu
		if err := rows.Scan(&m.ID, &m.ParentID, &m.Name, &m.URL, &m.Resource, &m.Sort, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ErrParentNotFound is returned when a menu is created under an unknown parent.
var ErrParentNotFound = errors.New("menus: parent not found")
