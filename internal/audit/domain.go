package audit

import "time"

// Entry is one operator action recorded in the console's own trail. The
// backend keeps its own logs; this trail answers "who did what from this
// console" even when the backend is unavailable for questioning.
type Entry struct {
	ID       string
	At       time.Time
	Operator string
	Action   string
	Entity   string
	EntityID string
	Detail   string
}

// Filters narrow the timeline listing.
type Filters struct {
	Operator string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo carries window state for the timeline pager.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result bundles timeline rows with paging info.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
