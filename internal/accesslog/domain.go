// Package accesslog implements the access-event retrieval pipeline: canonical
// query keys, per-key caching with request deduplication, pagination state,
// and stale-response rejection.
package accesslog

import "time"

// Event is one verified entry event captured by the door-side hardware.
// Events are created only by that hardware path; the console reads them and
// never mutates or deletes one.
type Event struct {
	ID        int64     `json:"id"`
	EmpName   string    `json:"emp_name"`
	EmpNumber string    `json:"emp_number"`
	RoomName  string    `json:"room_name"`
	ImageFile string    `json:"access_log_image_dir"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter is the operator's current search criteria. It lives entirely in the
// page URL; nothing here is persisted.
type Filter struct {
	Keyword   string
	StartDate string // YYYY-MM-DD, empty when unset
	EndDate   string // YYYY-MM-DD, empty when unset
	RoomID    int64  // 0 when unset
	UserID    int64  // 0 when unset
}

// IsZero reports whether no criteria are set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}
