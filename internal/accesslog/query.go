package accesslog

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is one fully-specified data request: filter criteria plus the page
// window. Its Key doubles as the literal request query string sent upstream.
type Query struct {
	PageSize  int
	PageIndex int
	Filter
}

// Key returns the canonical query string for this request. Parameter order is
// fixed (declaration order, not url.Values' sorted encoding) so that equal
// queries always produce byte-equal keys; cache lookups and singleflight
// deduplication depend on that.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString("limit=")
	b.WriteString(strconv.Itoa(q.PageSize))
	b.WriteString("&offset=")
	b.WriteString(strconv.Itoa(q.PageIndex * q.PageSize))
	if q.Keyword != "" {
		b.WriteString("&keyword=")
		b.WriteString(url.QueryEscape(q.Keyword))
	}
	if q.StartDate != "" {
		b.WriteString("&start_date=")
		b.WriteString(url.QueryEscape(q.StartDate))
	}
	if q.EndDate != "" {
		b.WriteString("&end_date=")
		b.WriteString(url.QueryEscape(q.EndDate))
	}
	if q.RoomID != 0 {
		b.WriteString("&room_id=")
		b.WriteString(strconv.FormatInt(q.RoomID, 10))
	}
	if q.UserID != 0 {
		b.WriteString("&user_id=")
		b.WriteString(strconv.FormatInt(q.UserID, 10))
	}
	return b.String()
}
