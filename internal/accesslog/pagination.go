package accesslog

// DefaultPageSize matches the fixed page size of every console listing.
const DefaultPageSize = 10

// PageWindow is the pagination cursor. It is not safe for concurrent use; the
// owning ListSession serializes access.
type PageWindow struct {
	pageIndex int
	pageSize  int
	total     int
}

// NewPageWindow returns a window at page 0.
func NewPageWindow(pageSize int) *PageWindow {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PageWindow{pageSize: pageSize}
}

// PageIndex returns the zero-based page index.
func (w *PageWindow) PageIndex() int { return w.pageIndex }

// PageSize returns the fixed page size.
func (w *PageWindow) PageSize() int { return w.pageSize }

// Total returns the last known total row count.
func (w *PageWindow) Total() int { return w.total }

// PageCount derives the page count, floored at 1 even for an empty result.
func (w *PageWindow) PageCount() int {
	count := (w.total + w.pageSize - 1) / w.pageSize
	if count < 1 {
		count = 1
	}
	return count
}

// SetTotal records a new total and clamps the index back into range when the
// result set shrank under the cursor.
func (w *PageWindow) SetTotal(total int) {
	if total < 0 {
		total = 0
	}
	w.total = total
	if max := w.PageCount() - 1; w.pageIndex > max {
		w.pageIndex = max
	}
}

// SetPageIndex moves to page n. Out-of-range requests are rejected and leave
// the window unchanged.
func (w *PageWindow) SetPageIndex(n int) bool {
	if n < 0 || n >= w.PageCount() {
		return false
	}
	w.pageIndex = n
	return true
}

// Next advances one page, respecting the upper bound.
func (w *PageWindow) Next() bool {
	return w.SetPageIndex(w.pageIndex + 1)
}

// Prev steps back one page, respecting the lower bound.
func (w *PageWindow) Prev() bool {
	return w.SetPageIndex(w.pageIndex - 1)
}

// Reset returns to page 0. Called on every filter change, before the next
// fetch is keyed.
func (w *PageWindow) Reset() {
	w.pageIndex = 0
}
