package keyboard

import "braillekbd/braille"

// InputBuffer is a bounded sequence of cells with an edit cursor. The cursor
// stays in [0, max(0, len-1)]. It is not safe for concurrent use; Driver
// guards it.
type InputBuffer struct {
	cells    []braille.Cell
	cursor   int
	capacity int
}

// NewInputBuffer creates an empty buffer holding at most capacity cells
func NewInputBuffer(capacity int) *InputBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &InputBuffer{
		cells:    make([]braille.Cell, 0, capacity),
		capacity: capacity,
	}
}

// Append adds c at the end, evicting the oldest cell when full, and moves
// the cursor onto it.
func (b *InputBuffer) Append(c braille.Cell) {
	if len(b.cells) == b.capacity {
		copy(b.cells, b.cells[1:])
		b.cells = b.cells[:len(b.cells)-1]
	}
	b.cells = append(b.cells, c)
	b.cursor = len(b.cells) - 1
}

// MoveLeft moves the cursor one cell left
func (b *InputBuffer) MoveLeft() bool {
	if b.cursor <= 0 {
		return false
	}
	b.cursor--
	return true
}

// MoveRight moves the cursor one cell right
func (b *InputBuffer) MoveRight() bool {
	if b.cursor >= len(b.cells)-1 {
		return false
	}
	b.cursor++
	return true
}

// DeleteAtCursor removes the cell under the cursor. The cursor keeps its
// index unless that is now past the end, in which case it moves left.
func (b *InputBuffer) DeleteAtCursor() bool {
	if len(b.cells) == 0 || b.cursor < 0 || b.cursor >= len(b.cells) {
		return false
	}
	b.cells = append(b.cells[:b.cursor], b.cells[b.cursor+1:]...)
	b.clamp()
	return true
}

// Snapshot returns a copy of the cells
func (b *InputBuffer) Snapshot() []braille.Cell {
	out := make([]braille.Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// Drain returns the cells and empties the buffer
func (b *InputBuffer) Drain() []braille.Cell {
	out := b.Snapshot()
	b.Clear()
	return out
}

// Clear empties the buffer and resets the cursor
func (b *InputBuffer) Clear() {
	b.cells = b.cells[:0]
	b.cursor = 0
}

// Len returns the number of cells
func (b *InputBuffer) Len() int {
	return len(b.cells)
}

// Cursor returns the cursor index
func (b *InputBuffer) Cursor() int {
	return b.cursor
}

// Capacity returns the maximum number of cells
func (b *InputBuffer) Capacity() int {
	return b.capacity
}

func (b *InputBuffer) clamp() {
	if b.cursor > len(b.cells)-1 {
		b.cursor = len(b.cells) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}
