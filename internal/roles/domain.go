package roles

import (
	"time"

	"github.com/odyssey-erp/odyssey-manage/internal/manage"
)

// Role represents a role for management. Resources are the menu and route
// guards the role grants.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Resources   []string  `json:"resources"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput carries the fields of a new role.
type CreateInput struct {
	Name        string   `json:"name" validate:"required,max=64"`
	Description string   `json:"description" validate:"max=255"`
	Resources   []string `json:"resources" validate:"dive,required,max=128"`
}

func (r *Role) GetID() int64   { return r.ID }
func (r *Role) GetName() string { return r.Name }

// GetResources returns the granted resources.
func (r *Role) GetResources() []string { return r.Resources }

var _ manage.Role = (*Role)(nil)
