package accesslog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageCountFlooredAtOne(t *testing.T) {
	w := NewPageWindow(10)
	require.Equal(t, 1, w.PageCount())

	w.SetTotal(0)
	require.Equal(t, 1, w.PageCount())
}

func TestPageCountCeiling(t *testing.T) {
	w := NewPageWindow(10)
	for total, want := range map[int]int{1: 1, 9: 1, 10: 1, 11: 2, 23: 3, 30: 3, 31: 4} {
		w.SetTotal(total)
		require.Equal(t, want, w.PageCount(), "total=%d", total)
	}
}

func TestSetPageIndexBounds(t *testing.T) {
	w := NewPageWindow(10)
	w.SetTotal(23)

	require.True(t, w.SetPageIndex(2))
	require.False(t, w.SetPageIndex(3))
	require.False(t, w.SetPageIndex(-1))
	require.Equal(t, 2, w.PageIndex())
}

func TestNextPrevRespectBounds(t *testing.T) {
	w := NewPageWindow(10)
	w.SetTotal(23)

	require.False(t, w.Prev())
	require.True(t, w.Next())
	require.True(t, w.Next())
	require.False(t, w.Next())
	require.Equal(t, 2, w.PageIndex())
}

func TestShrinkingTotalClampsIndex(t *testing.T) {
	w := NewPageWindow(10)
	w.SetTotal(50)
	require.True(t, w.SetPageIndex(4))

	w.SetTotal(12)
	require.Equal(t, 1, w.PageIndex())
}
