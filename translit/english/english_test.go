package english

import (
	"testing"

	"github.com/stretchr/testify/require"

	"braillekbd/braille"
)

func word(dots ...[]int) []braille.Cell {
	out := make([]braille.Cell, len(dots))
	for i, d := range dots {
		out[i] = braille.MustFromDots(d...)
	}
	return out
}

func TestEnglish_Translate(t *testing.T) {
	en := &English{}

	tests := []struct {
		name  string
		cells []braille.Cell
		want  string
	}{
		{"letters", word([]int{1, 2, 3}, []int{2, 4}, []int{1, 3, 5}, []int{1, 3, 4, 5}), "lion"},
		{"capital", word([]int{6}, []int{1, 2, 5}, []int{2, 4}), "Hi"},
		{"capital word", word([]int{6}, []int{6}, []int{1, 3, 5}, []int{1, 3}), "OK"},
		{"digits", word([]int{3, 4, 5, 6}, []int{1}, []int{2, 4, 5}), "10"},
		{"number ends at space", append(word([]int{3, 4, 5, 6}, []int{1, 2}), 0, braille.MustFromDots(1, 2)), "2 b"},
		{"letter sign", word([]int{3, 4, 5, 6}, []int{1}, []int{5, 6}, []int{1}), "1a"},
		{"punctuation", word([]int{2, 4}, []int{2, 3, 4, 5}, []int{3}, []int{2, 3, 4}, []int{2, 5, 6}), "it's."},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := en.Translate(tt.cells)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEnglish_UnknownCell(t *testing.T) {
	en := &English{}
	// dots 4,5 has no grade 1 meaning
	_, ok := en.Translate(word([]int{1}, []int{4, 5}))
	require.False(t, ok)
}
