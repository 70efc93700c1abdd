package xmldom

import (
	"fmt"

	"github.com/beevik/etree"
)

// Snapshot remembers an element as it was before a tentative edit, or that
// the element did not exist at all, so the edit can be undone.
type Snapshot struct {
	parent  *etree.Element
	index   int
	saved   *etree.Element
	current *etree.Element
}

// Capture records a deep copy of el and its position under its parent.
func Capture(el *etree.Element) Snapshot {
	return Snapshot{
		parent:  el.Parent(),
		index:   el.Index(),
		saved:   el.Copy(),
		current: el,
	}
}

// Added records that el was newly inserted; restoring removes it.
func Added(el *etree.Element) Snapshot {
	return Snapshot{parent: el.Parent(), index: el.Index(), current: el}
}

// IsAdd reports whether the snapshot marks a newly inserted element.
func (s Snapshot) IsAdd() bool { return s.saved == nil }

// Restore puts the tree back the way it was when the snapshot was taken and
// returns the element now occupying that position, nil for an undone add.
func (s *Snapshot) Restore() (*etree.Element, error) {
	if s.parent == nil {
		return nil, fmt.Errorf("snapshot of a detached element")
	}
	if s.current != nil && s.current.Parent() == s.parent {
		s.parent.RemoveChild(s.current)
	}
	if s.saved == nil {
		s.current = nil
		return nil, nil
	}
	restored := s.saved
	s.saved = restored.Copy()
	idx := s.index
	if idx > len(s.parent.Child) {
		idx = len(s.parent.Child)
	}
	s.parent.InsertChildAt(idx, restored)
	s.current = restored
	return restored, nil
}
