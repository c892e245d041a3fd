package model

import "time"

// SelectionItem is a value copy frozen at mark time. Later refreshes of the
// live record never alter an item already in the selection; re-marking
// recaptures the then-current values.
type SelectionItem struct {
	ID        Identity
	Title     string
	URL       string
	Approvals int
	MarkedAt  time.Time
}

// NewSelectionItem captures a frozen snapshot of the record at mark time.
func NewSelectionItem(pr PullRequest, now time.Time) SelectionItem {
	return SelectionItem{
		ID:        pr.Identity(),
		Title:     pr.Title,
		URL:       pr.URL,
		Approvals: pr.Approvals,
		MarkedAt:  now,
	}
}
