package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"braillekbd/braille"
)

func TestParse_Cell(t *testing.T) {
	ev, err := Parse("Braille Signal (6-bit): 000101\r\n")
	require.NoError(t, err)
	require.Equal(t, KindCell, ev.Kind)
	require.Equal(t, []int{4, 6}, ev.Cell.Dots())
}

func TestParse_Control(t *testing.T) {
	ev, err := Parse("Control Signal: Ctrl+Backspace")
	require.NoError(t, err)
	require.Equal(t, KindControl, ev.Kind)
	require.Equal(t, braille.CtrlBackspace, ev.Control)
}

func TestParse_Ignored(t *testing.T) {
	for _, line := range []string{"", "Keyboard ready", "Braille Signal: 000101", "control signal: Enter"} {
		ev, err := Parse(line)
		require.NoError(t, err, line)
		require.Equal(t, KindNone, ev.Kind, line)
	}
}

func TestParse_Malformed(t *testing.T) {
	ev, err := Parse("Braille Signal (6-bit): 00010")
	require.ErrorIs(t, err, braille.ErrMalformedCell)
	require.Equal(t, KindNone, ev.Kind)

	_, err = Parse("Braille Signal (6-bit): 0x0101")
	require.ErrorIs(t, err, braille.ErrMalformedCell)

	_, err = Parse("Control Signal: Escape")
	require.ErrorIs(t, err, ErrUnknownControl)
}

func TestFormat_RoundTrip(t *testing.T) {
	c := braille.MustFromDots(1, 2, 5)
	ev, err := Parse(FormatCell(c))
	require.NoError(t, err)
	require.Equal(t, c, ev.Cell)

	for _, e := range braille.ControlEvents() {
		ev, err := Parse(FormatControl(e))
		require.NoError(t, err)
		require.Equal(t, e, ev.Control)
	}
}
