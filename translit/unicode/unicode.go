// Package unicode registers "unicode", which renders cells as characters of
// the Unicode Braille Patterns block. Every cell has a rendering.
package unicode

import (
	"strings"

	"braillekbd/braille"
	"braillekbd/translit"
)

func init() {
	translit.MustRegister(&Patterns{})
}

// Patterns implements translit.Transliterator
type Patterns struct{}

// Name returns the table identifier
func (p *Patterns) Name() string {
	return "unicode"
}

// Description returns a human-readable description
func (p *Patterns) Description() string {
	return "Unicode Braille patterns (U+2800)"
}

// Translate never fails
func (p *Patterns) Translate(cells []braille.Cell) (string, bool) {
	var sb strings.Builder
	for _, c := range cells {
		sb.WriteRune(c.Rune())
	}
	return sb.String(), true
}
