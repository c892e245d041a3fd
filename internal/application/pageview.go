package application

import (
	"context"

	"prtrack/internal/domain/model"
	"prtrack/internal/domain/port/driven"
)

// DefaultPageSize is the page size used when configuration supplies none.
const DefaultPageSize = 10

// Page is one fixed-size window over a scope's records.
type Page struct {
	Items   []model.PullRequest
	Index   int // 0-based, clamped to the last valid page
	Total   int // total records in the scope
	HasNext bool
	HasPrev bool
}

// PageView exposes a stable paginated read over the record store for one
// scope at a time. Boundaries are recomputed on every call, so a refresh
// between page turns is reflected immediately.
type PageView struct {
	store driven.RecordStore
}

// NewPageView creates a PageView over the given store.
func NewPageView(store driven.RecordStore) *PageView {
	return &PageView{store: store}
}

// Page returns the pageIndex-th window of pageSize records for the scope.
// Indexes beyond the last page clamp to the last valid page; the last page
// may be shorter than pageSize.
func (v *PageView) Page(ctx context.Context, scope model.ScopeKey, pageSize, pageIndex int) (Page, error) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	records, err := v.store.ListByScope(ctx, scope)
	if err != nil {
		return Page{}, err
	}

	total := len(records)
	if total == 0 {
		return Page{Items: []model.PullRequest{}}, nil
	}

	lastPage := (total - 1) / pageSize
	if pageIndex > lastPage {
		pageIndex = lastPage
	}

	start := pageIndex * pageSize
	end := min(start+pageSize, total)

	return Page{
		Items:   records[start:end],
		Index:   pageIndex,
		Total:   total,
		HasNext: pageIndex < lastPage,
		HasPrev: pageIndex > 0,
	}, nil
}
