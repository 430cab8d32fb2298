package keyboard

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"braillekbd/braille"
)

func cells(t *testing.T, patterns ...string) []braille.Cell {
	t.Helper()
	out := make([]braille.Cell, len(patterns))
	for i, p := range patterns {
		c, err := braille.ParseCell(p)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func TestInputBuffer_AppendMovesCursorToEnd(t *testing.T) {
	b := NewInputBuffer(10)
	for i, c := range cells(t, "100000", "110000", "100100") {
		b.Append(c)
		require.Equal(t, i, b.Cursor())
	}
	require.Equal(t, 3, b.Len())
}

func TestInputBuffer_EvictsOldest(t *testing.T) {
	b := NewInputBuffer(2)
	in := cells(t, "100000", "010000", "001000")
	for _, c := range in {
		b.Append(c)
	}
	require.Equal(t, in[1:], b.Snapshot())
	require.Equal(t, 1, b.Cursor())
}

func TestInputBuffer_MoveAtBoundaries(t *testing.T) {
	b := NewInputBuffer(10)
	require.False(t, b.MoveLeft())
	require.False(t, b.MoveRight())
	require.Equal(t, 0, b.Cursor())

	for _, c := range cells(t, "100000", "010000") {
		b.Append(c)
	}
	require.False(t, b.MoveRight())
	require.Equal(t, 1, b.Cursor())
	require.True(t, b.MoveLeft())
	require.Equal(t, 0, b.Cursor())
	require.False(t, b.MoveLeft())
	require.Equal(t, 0, b.Cursor())
	require.True(t, b.MoveRight())
	require.Equal(t, 1, b.Cursor())
}

func TestInputBuffer_CursorStaysInRange(t *testing.T) {
	b := NewInputBuffer(8)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		switch rng.Intn(5) {
		case 0:
			b.Append(braille.Cell(rng.Intn(64)))
		case 1:
			before := b.Cursor()
			if !b.MoveLeft() {
				require.Equal(t, before, b.Cursor())
			}
		case 2:
			before := b.Cursor()
			if !b.MoveRight() {
				require.Equal(t, before, b.Cursor())
			}
		case 3:
			b.DeleteAtCursor()
		case 4:
			if rng.Intn(10) == 0 {
				b.Clear()
			}
		}

		upper := b.Len() - 1
		if upper < 0 {
			upper = 0
		}
		require.GreaterOrEqual(t, b.Cursor(), 0)
		require.LessOrEqual(t, b.Cursor(), upper)
	}
}

func TestInputBuffer_DeleteAtCursor(t *testing.T) {
	b := NewInputBuffer(10)
	require.False(t, b.DeleteAtCursor())
	require.Zero(t, b.Len())

	in := cells(t, "100000", "010000", "001000")
	for _, c := range in {
		b.Append(c)
	}

	// middle: cursor keeps its index
	require.True(t, b.MoveLeft())
	require.True(t, b.DeleteAtCursor())
	require.Equal(t, []braille.Cell{in[0], in[2]}, b.Snapshot())
	require.Equal(t, 1, b.Cursor())

	// last: cursor moves left
	require.True(t, b.DeleteAtCursor())
	require.Equal(t, []braille.Cell{in[0]}, b.Snapshot())
	require.Equal(t, 0, b.Cursor())

	require.True(t, b.DeleteAtCursor())
	require.Zero(t, b.Len())
	require.Equal(t, 0, b.Cursor())
	require.False(t, b.DeleteAtCursor())
}

func TestInputBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewInputBuffer(10)
	for _, c := range cells(t, "100000", "010000") {
		b.Append(c)
	}

	first := b.Snapshot()
	second := b.Snapshot()
	require.Equal(t, first, second)

	first[0] = braille.Cell(63)
	require.NotEqual(t, first, b.Snapshot())
}

func TestInputBuffer_Drain(t *testing.T) {
	b := NewInputBuffer(10)
	in := cells(t, "000101", "100000")
	for _, c := range in {
		b.Append(c)
	}

	require.Equal(t, in, b.Drain())
	require.Zero(t, b.Len())
	require.Equal(t, 0, b.Cursor())
	require.Empty(t, b.Drain())
}
