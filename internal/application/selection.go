package application

import (
	"time"

	"prtrack/internal/domain/model"
)

// SelectionSession tracks the records marked by the user across scope
// browses. Items survive page navigation and refreshes because each holds a
// value copy frozen at mark time. The session is driven from the single
// interactive flow and needs no locking.
type SelectionSession struct {
	items map[model.Identity]model.SelectionItem
	order []model.Identity // first-marked order
	now   func() time.Time
}

// NewSelectionSession creates an empty selection.
func NewSelectionSession() *SelectionSession {
	return &SelectionSession{
		items: make(map[model.Identity]model.SelectionItem),
		now:   time.Now,
	}
}

// Toggle marks the record, freezing its title, URL, and approval count, or
// unmarks it when already marked. Returns true when the record ends marked.
// Unmarking then re-marking recaptures the then-current approval count.
func (s *SelectionSession) Toggle(pr model.PullRequest) bool {
	id := pr.Identity()
	if _, ok := s.items[id]; ok {
		delete(s.items, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}

	s.items[id] = model.NewSelectionItem(pr, s.now())
	s.order = append(s.order, id)
	return true
}

// Marked reports whether the identity is currently in the selection.
func (s *SelectionSession) Marked(id model.Identity) bool {
	_, ok := s.items[id]
	return ok
}

// List returns the frozen items in first-marked order.
func (s *SelectionSession) List() []model.SelectionItem {
	out := make([]model.SelectionItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Len returns the number of marked records.
func (s *SelectionSession) Len() int {
	return len(s.order)
}

// Clear empties the selection.
func (s *SelectionSession) Clear() {
	s.items = make(map[model.Identity]model.SelectionItem)
	s.order = nil
}
