package braille

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseControlEvent(t *testing.T) {
	require.Len(t, ControlEvents(), 15)

	for _, e := range ControlEvents() {
		got, ok := ParseControlEvent(e.String())
		require.True(t, ok, e)
		require.Equal(t, e, got)
	}

	for _, name := range []string{"", "enter", "Ctrl+Back", "Escape"} {
		_, ok := ParseControlEvent(name)
		require.False(t, ok, name)
	}
}

func TestControlEvents_ReturnsCopy(t *testing.T) {
	events := ControlEvents()
	events[0] = "mutated"
	require.Equal(t, Enter, ControlEvents()[0])
}
