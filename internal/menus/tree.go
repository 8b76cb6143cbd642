package menus

import (
	"cmp"
	"slices"
)

// NewRoot returns the virtual root node.
func NewRoot() *Menu {
	return &Menu{ID: RootID, ParentID: RootID, Name: "root"}
}

// BuildTree attaches rows below root by parent id. Rows that cannot be
// reached from root (orphans or cycles) are dropped. Siblings are ordered by
// Sort, then ID. The rows are copied.
func BuildTree(root *Menu, rows []Menu) *Menu {
	byParent := make(map[int64][]*Menu, len(rows))
	for i := range rows {
		row := rows[i]
		if row.ID == root.ID {
			continue
		}
		row.Children = nil
		byParent[row.ParentID] = append(byParent[row.ParentID], &row)
	}
	for _, siblings := range byParent {
		slices.SortFunc(siblings, func(a, b *Menu) int {
			if c := cmp.Compare(a.Sort, b.Sort); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}

	seen := map[int64]bool{root.ID: true}
	queue := []*Menu{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		node.Children = nil
		for _, child := range byParent[node.ID] {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			node.Children = append(node.Children, child)
			queue = append(queue, child)
		}
	}
	return root
}

// Find returns the node with the given id below (or at) m.
func (m *Menu) Find(id int64) *Menu {
	var found *Menu
	m.Walk(func(node *Menu) {
		if found == nil && node.ID == id {
			found = node
		}
	})
	return found
}
