// Package admins stores management administrators and verifies their
// credentials.
package admins

import (
	"time"

	"github.com/odyssey-erp/odyssey-manage/internal/manage"
)

// Administrator represents an account allowed into the management UI.
type Administrator struct {
	ID           int64      `json:"id"`
	Account      string     `json:"account"`
	Name         string     `json:"name,omitempty"`
	PasswordHash string     `json:"-"`
	RoleID       int64      `json:"role_id"`
	IsActive     bool       `json:"is_active"`
	Logins       int64      `json:"logins"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP  string     `json:"last_login_ip,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateInput carries the fields of a new administrator.
type CreateInput struct {
	Account  string
	Name     string
	Password string
	RoleID   int64
	Disabled bool
}

func (a *Administrator) GetID() int64       { return a.ID }
func (a *Administrator) GetAccount() string { return a.Account }
func (a *Administrator) GetRoleID() int64   { return a.RoleID }
func (a *Administrator) IsEnabled() bool    { return a.IsActive }

var _ manage.Administrator = (*Administrator)(nil)
