// Package menus stores the management menu tree. Every node is guarded by a
// resource name; a role sees a node when it holds that resource.
package menus

import (
	"slices"
	"time"

	"github.com/odyssey-erp/odyssey-manage/internal/manage"
)

// RootID is the id of the virtual node that parents top level menus.
const RootID int64 = 0

// Menu is a node of the menu tree.
type Menu struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Sort      int       `json:"sort"`
	Children  []*Menu   `json:"children,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries the fields of a new menu.
type CreateInput struct {
	ParentID int64
	Name     string
	URL      string
	Resource string
	Sort     int
}

func (m *Menu) GetID() int64        { return m.ID }
func (m *Menu) GetParentID() int64  { return m.ParentID }
func (m *Menu) GetName() string     { return m.Name }
func (m *Menu) GetURL() string      { return m.URL }
func (m *Menu) GetResource() string { return m.Resource }

// GetChildren returns the direct children in display order.
func (m *Menu) GetChildren() []manage.Menu {
	out := make([]manage.Menu, 0, len(m.Children))
	for _, child := range m.Children {
		out = append(out, child)
	}
	return out
}

// MySubMenus returns copies of the children whose resource is in resources,
// each with its own children filtered the same way. A hidden node hides its
// whole subtree. The receiver is never modified.
func (m *Menu) MySubMenus(resources []string) []manage.Menu {
	visible := m.visibleChildren(resources)
	out := make([]manage.Menu, 0, len(visible))
	for _, child := range visible {
		out = append(out, child)
	}
	return out
}

func (m *Menu) visibleChildren(resources []string) []*Menu {
	var out []*Menu
	for _, child := range m.Children {
		if child == nil || !slices.Contains(resources, child.Resource) {
			continue
		}
		clone := *child
		clone.Children = child.visibleChildren(resources)
		out = append(out, &clone)
	}
	return out
}

// Walk visits m and its descendants depth first.
func (m *Menu) Walk(fn func(*Menu)) {
	if m == nil {
		return
	}
	fn(m)
	for _, child := range m.Children {
		child.Walk(fn)
	}
}

var _ manage.Menu = (*Menu)(nil)
