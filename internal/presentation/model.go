// Package presentation exposes the configuration tree to a view layer as
// rows and columns. Items are materialized lazily, one per domain object,
// and are addressed by Index values that carry a row path rather than
// pointers into the tree.
package presentation

import (
	"slices"

	"configedit/pkg/domain"
)

// Index addresses one cell: the row path from the project down to the item
// and a column. The zero Index addresses the project itself.
type Index struct {
	path   []int
	column int
	valid  bool
}

// IsValid reports whether the index addresses an item below the project.
func (i Index) IsValid() bool { return i.valid }

// Row is the position of the item among its siblings.
func (i Index) Row() int {
	if len(i.path) == 0 {
		return -1
	}
	return i.path[len(i.path)-1]
}

// Column is the addressed column.
func (i Index) Column() int { return i.column }

// Depth is the number of levels below the project.
func (i Index) Depth() int { return len(i.path) }

// Sibling returns the index of another column of the same row.
func (i Index) Sibling(column int) Index {
	return Index{path: i.path, column: column, valid: i.valid}
}

func (i Index) child(row, column int) Index {
	path := make([]int, len(i.path)+1)
	copy(path, i.path)
	path[len(i.path)] = row
	return Index{path: path, column: column, valid: true}
}

// Observer is notified when rows appear, disappear, or a subtree is rebuilt.
type Observer interface {
	RowInserted(parent Index, row int)
	RowRemoved(parent Index, row int)
	ChildrenReset(parent Index)
}

type item struct {
	entity       any
	parent       *item
	children     []*item
	materialized bool
}

func (it *item) row() int {
	if it.parent == nil {
		return 0
	}
	return slices.Index(it.parent.children, it)
}

func (it *item) materialize() []*item {
	if it.materialized {
		return it.children
	}
	it.materialized = true
	for _, e := range childEntities(it.entity) {
		it.children = append(it.children, &item{entity: e, parent: it})
	}
	return it.children
}

func childEntities(entity any) []any {
	var out []any
	switch e := entity.(type) {
	case *domain.Project:
		for _, s := range e.Sites {
			out = append(out, s)
		}
	case *domain.Site:
		for _, d := range e.DSMs {
			out = append(out, d)
		}
	case *domain.DSM:
		for _, s := range e.Sensors {
			out = append(out, s)
		}
	case *domain.Sensor:
		for _, v := range e.Variables() {
			out = append(out, v)
		}
	}
	return out
}

// Model is the presentation tree over one project.
type Model struct {
	root      *item
	observers []Observer
}

// NewModel builds a model rooted at project. Nothing below the root is
// materialized until it is asked for.
func NewModel(project *domain.Project) *Model {
	return &Model{root: &item{entity: project}}
}

// Subscribe registers an observer.
func (m *Model) Subscribe(o Observer) {
	m.observers = append(m.observers, o)
}

// Reset replaces the project and drops every materialized item.
func (m *Model) Reset(project *domain.Project) {
	m.root = &item{entity: project}
	for _, o := range m.observers {
		o.ChildrenReset(Index{})
	}
}

func (m *Model) resolve(idx Index) *item {
	cur := m.root
	for _, row := range idx.path {
		children := cur.materialize()
		if row < 0 || row >= len(children) {
			return nil
		}
		cur = children[row]
	}
	return cur
}

func (m *Model) indexOfItem(it *item) Index {
	var path []int
	for cur := it; cur.parent != nil; cur = cur.parent {
		path = append(path, cur.row())
	}
	slices.Reverse(path)
	return Index{path: path, valid: len(path) > 0}
}

// find returns the materialized item holding entity. Ancestors are
// materialized on the way down so the lookup always succeeds for entities
// attached to the project.
func (m *Model) find(entity any) *item {
	if entity == m.root.entity {
		return m.root
	}
	parent := parentEntity(entity)
	if parent == nil {
		return nil
	}
	p := m.find(parent)
	if p == nil {
		return nil
	}
	for _, c := range p.materialize() {
		if c.entity == entity {
			return c
		}
	}
	return nil
}

func parentEntity(entity any) any {
	switch e := entity.(type) {
	case *domain.Site:
		if p := e.Project(); p != nil {
			return p
		}
	case *domain.DSM:
		if s := e.Site(); s != nil {
			return s
		}
	case *domain.Sensor:
		if d := e.DSM(); d != nil {
			return d
		}
	case *domain.Variable:
		if smp := e.Sample(); smp != nil && smp.Sensor() != nil {
			return smp.Sensor()
		}
	}
	return nil
}

// Index returns the index of the child at row, column of parent, or an
// invalid index when out of range.
func (m *Model) Index(row, column int, parent Index) Index {
	it := m.resolve(parent)
	if it == nil || row < 0 || row >= len(it.materialize()) {
		return Index{}
	}
	if column < 0 || column >= m.ColumnCount(parent) {
		return Index{}
	}
	return parent.child(row, column)
}

// Parent returns the index of the item's parent, column 0.
func (m *Model) Parent(idx Index) Index {
	if len(idx.path) <= 1 {
		return Index{}
	}
	return Index{path: idx.path[:len(idx.path)-1], valid: true}
}

// RowCount is the number of children of parent.
func (m *Model) RowCount(parent Index) int {
	it := m.resolve(parent)
	if it == nil {
		return 0
	}
	return len(it.materialize())
}

// ColumnCount is the number of columns shown for the children of parent.
func (m *Model) ColumnCount(parent Index) int {
	return len(m.headers(parent))
}

// HeaderData returns the title of a column of the children of parent.
func (m *Model) HeaderData(parent Index, section int) string {
	h := m.headers(parent)
	if section < 0 || section >= len(h) {
		return ""
	}
	return h[section]
}

func (m *Model) headers(parent Index) []string {
	it := m.resolve(parent)
	if it == nil {
		return nil
	}
	return childHeaders(it.entity)
}

// Entity returns the domain object addressed by idx; the project for the
// zero index, nil when idx no longer resolves.
func (m *Model) Entity(idx Index) any {
	it := m.resolve(idx)
	if it == nil {
		return nil
	}
	return it.entity
}

// IndexOf returns the column 0 index of a domain object.
func (m *Model) IndexOf(entity any) (Index, bool) {
	it := m.find(entity)
	if it == nil {
		return Index{}, false
	}
	return m.indexOfItem(it), true
}

// Data renders the cell addressed by idx.
func (m *Model) Data(idx Index) string {
	it := m.resolve(idx)
	if it == nil || it.parent == nil {
		return ""
	}
	return cellText(it.entity, idx.column)
}

// AppendRow adds a display item for child under parent. Nothing happens when
// the parent has not been materialized yet; the child shows up when it is.
func (m *Model) AppendRow(parent, child any) {
	p := m.find(parent)
	if p == nil || !p.materialized {
		return
	}
	p.children = append(p.children, &item{entity: child, parent: p})
	pidx := m.indexOfItem(p)
	for _, o := range m.observers {
		o.RowInserted(pidx, len(p.children)-1)
	}
}

// RemoveRow drops the display item of child under parent.
func (m *Model) RemoveRow(parent, child any) {
	p := m.find(parent)
	if p == nil || !p.materialized {
		return
	}
	row := slices.IndexFunc(p.children, func(c *item) bool { return c.entity == child })
	if row < 0 {
		return
	}
	pidx := m.indexOfItem(p)
	p.children = slices.Delete(p.children, row, row+1)
	for _, o := range m.observers {
		o.RowRemoved(pidx, row)
	}
}

// Refresh discards the materialized children of entity so they are rebuilt
// from the domain tree on next access.
func (m *Model) Refresh(entity any) {
	it := m.find(entity)
	if it == nil {
		return
	}
	it.children = nil
	it.materialized = false
	idx := m.indexOfItem(it)
	for _, o := range m.observers {
		o.ChildrenReset(idx)
	}
}
