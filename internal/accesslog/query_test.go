package accesslog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyFieldOrderIsDeclarationOrder(t *testing.T) {
	q := Query{
		PageSize:  10,
		PageIndex: 2,
		Filter: Filter{
			Keyword:   "budi",
			StartDate: "2026-08-01",
			EndDate:   "2026-08-31",
			RoomID:    7,
			UserID:    42,
		},
	}
	require.Equal(t,
		"limit=10&offset=20&keyword=budi&start_date=2026-08-01&end_date=2026-08-31&room_id=7&user_id=42",
		q.Key())
}

func TestKeyOmitsEmptyFilterFields(t *testing.T) {
	q := Query{PageSize: 10, PageIndex: 0}
	require.Equal(t, "limit=10&offset=0", q.Key())

	q.Filter.RoomID = 3
	require.Equal(t, "limit=10&offset=0&room_id=3", q.Key())
}

func TestKeyEscapesKeyword(t *testing.T) {
	q := Query{PageSize: 10, Filter: Filter{Keyword: "meeting room 2"}}
	require.Equal(t, "limit=10&offset=0&keyword=meeting+room+2", q.Key())
}

func TestKeyIsDeterministic(t *testing.T) {
	q := Query{PageSize: 10, PageIndex: 1, Filter: Filter{Keyword: "x", UserID: 9}}
	first := q.Key()
	for i := 0; i < 50; i++ {
		require.Equal(t, first, q.Key())
	}
}
