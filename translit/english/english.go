// Package english registers "en", uncontracted (grade 1) English Braille.
package english

import (
	"strings"

	"braillekbd/braille"
	"braillekbd/translit"
)

func init() {
	translit.MustRegister(&English{})
}

var (
	capitalSign = braille.MustFromDots(6)
	numberSign  = braille.MustFromDots(3, 4, 5, 6)
	letterSign  = braille.MustFromDots(5, 6)
)

var letters = map[braille.Cell]rune{
	braille.MustFromDots(1):             'a',
	braille.MustFromDots(1, 2):          'b',
	braille.MustFromDots(1, 4):          'c',
	braille.MustFromDots(1, 4, 5):       'd',
	braille.MustFromDots(1, 5):          'e',
	braille.MustFromDots(1, 2, 4):       'f',
	braille.MustFromDots(1, 2, 4, 5):    'g',
	braille.MustFromDots(1, 2, 5):       'h',
	braille.MustFromDots(2, 4):          'i',
	braille.MustFromDots(2, 4, 5):       'j',
	braille.MustFromDots(1, 3):          'k',
	braille.MustFromDots(1, 2, 3):       'l',
	braille.MustFromDots(1, 3, 4):       'm',
	braille.MustFromDots(1, 3, 4, 5):    'n',
	braille.MustFromDots(1, 3, 5):       'o',
	braille.MustFromDots(1, 2, 3, 4):    'p',
	braille.MustFromDots(1, 2, 3, 4, 5): 'q',
	braille.MustFromDots(1, 2, 3, 5):    'r',
	braille.MustFromDots(2, 3, 4):       's',
	braille.MustFromDots(2, 3, 4, 5):    't',
	braille.MustFromDots(1, 3, 6):       'u',
	braille.MustFromDots(1, 2, 3, 6):    'v',
	braille.MustFromDots(2, 4, 5, 6):    'w',
	braille.MustFromDots(1, 3, 4, 6):    'x',
	braille.MustFromDots(1, 3, 4, 5, 6): 'y',
	braille.MustFromDots(1, 3, 5, 6):    'z',
}

var punctuation = map[braille.Cell]rune{
	braille.MustFromDots(2):       ',',
	braille.MustFromDots(2, 3):    ';',
	braille.MustFromDots(2, 5):    ':',
	braille.MustFromDots(2, 5, 6): '.',
	braille.MustFromDots(2, 3, 5): '!',
	braille.MustFromDots(2, 3, 6): '?',
	braille.MustFromDots(3):       '\'',
	braille.MustFromDots(3, 6):    '-',
}

// digits are a-j after the number sign
var digits = map[rune]rune{
	'a': '1', 'b': '2', 'c': '3', 'd': '4', 'e': '5',
	'f': '6', 'g': '7', 'h': '8', 'i': '9', 'j': '0',
}

// English implements translit.Transliterator
type English struct{}

// Name returns the table identifier
func (e *English) Name() string {
	return "en"
}

// Description returns a human-readable description
func (e *English) Description() string {
	return "English, uncontracted (grade 1)"
}

// Translate decodes letters, digits after the number sign, capitals after
// the capital sign (doubled for a whole word), and common punctuation. A
// blank cell is a space and ends number and capital-word modes.
func (e *English) Translate(cells []braille.Cell) (string, bool) {
	var sb strings.Builder
	numeric := false
	capNext := false
	capWord := false

	for _, c := range cells {
		switch {
		case c.Blank():
			sb.WriteByte(' ')
			numeric, capNext, capWord = false, false, false
			continue
		case c == numberSign:
			numeric = true
			continue
		case c == letterSign:
			numeric = false
			continue
		case c == capitalSign:
			if capNext {
				capWord = true
			}
			capNext = true
			continue
		}

		if r, ok := letters[c]; ok {
			if numeric {
				if d, isDigit := digits[r]; isDigit {
					sb.WriteRune(d)
					continue
				}
				numeric = false
			}
			if capNext || capWord {
				r = r - 'a' + 'A'
				capNext = false
			}
			sb.WriteRune(r)
			continue
		}

		if r, ok := punctuation[c]; ok {
			sb.WriteRune(r)
			numeric = false
			continue
		}

		return "", false
	}

	return sb.String(), true
}
