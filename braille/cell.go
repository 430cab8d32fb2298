package braille

import (
	"errors"
	"fmt"
	"strings"
)

// DotCount is the number of dots in a cell
const DotCount = 6

const cellMask = 1<<DotCount - 1

var (
	// ErrMalformedCell is returned for dot strings that are not six '0'/'1' characters
	ErrMalformedCell = errors.New("malformed braille cell")

	// ErrInvalidDot is returned for dot numbers outside 1..6
	ErrInvalidDot = errors.New("dot number out of range 1-6")
)

// Cell is a six-dot Braille pattern. Bit k-1 is set when dot k is raised.
type Cell uint8

// ParseCell decodes the 6-character wire form. Character i carries dot i+1.
func ParseCell(s string) (Cell, error) {
	if len(s) != DotCount {
		return 0, fmt.Errorf("%w: %q has length %d", ErrMalformedCell, s, len(s))
	}

	var c Cell
	for i := 0; i < DotCount; i++ {
		switch s[i] {
		case '1':
			c |= 1 << i
		case '0':
		default:
			return 0, fmt.Errorf("%w: %q contains %q", ErrMalformedCell, s, s[i])
		}
	}
	return c, nil
}

// FromDots builds a cell from 1-indexed dot numbers
func FromDots(dots ...int) (Cell, error) {
	var c Cell
	for _, dot := range dots {
		if dot < 1 || dot > DotCount {
			return 0, fmt.Errorf("%w: %d", ErrInvalidDot, dot)
		}
		c |= 1 << (dot - 1)
	}
	return c, nil
}

// MustFromDots is FromDots for static tables; it panics on an invalid dot.
func MustFromDots(dots ...int) Cell {
	c, err := FromDots(dots...)
	if err != nil {
		panic(err)
	}
	return c
}

// Has reports whether dot (1..6) is raised
func (c Cell) Has(dot int) bool {
	if dot < 1 || dot > DotCount {
		return false
	}
	return c&(1<<(dot-1)) != 0
}

// Dots returns the raised dot numbers in ascending order
func (c Cell) Dots() []int {
	dots := make([]int, 0, DotCount)
	for dot := 1; dot <= DotCount; dot++ {
		if c.Has(dot) {
			dots = append(dots, dot)
		}
	}
	return dots
}

// Blank reports whether no dot is raised
func (c Cell) Blank() bool {
	return c&cellMask == 0
}

// String returns the wire form, e.g. "000101" for dots 4 and 6
func (c Cell) String() string {
	var b strings.Builder
	b.Grow(DotCount)
	for dot := 1; dot <= DotCount; dot++ {
		if c.Has(dot) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Rune returns the Unicode Braille Patterns character for the cell
func (c Cell) Rune() rune {
	return 0x2800 + rune(c&cellMask)
}

// Strings converts a cell sequence to wire strings
func Strings(cells []Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.String()
	}
	return out
}
