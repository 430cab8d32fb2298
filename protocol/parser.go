// Package protocol implements the newline-delimited ASCII protocol spoken by
// the keyboard microcontroller.
//
// Device to host:
//
//	Braille Signal (6-bit): BBBBBB   B in {0,1}, character i is dot i+1
//	Control Signal: <Name>           Name is a braille.ControlEvent
//
// Host to device:
//
//	ON:1,3          light LEDs for dots 1 and 3
//	OFF:1,3         turn them off
//	VIBRATE:500     buzz for 500 ms
//
// Any other inbound line is ignored.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"braillekbd/braille"
)

const (
	CellPrefix    = "Braille Signal (6-bit): "
	ControlPrefix = "Control Signal: "
)

// ErrUnknownControl is returned for control lines naming no known event
var ErrUnknownControl = errors.New("unknown control signal")

// Kind classifies an inbound line
type Kind int

const (
	KindNone Kind = iota
	KindCell
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindCell:
		return "cell"
	case KindControl:
		return "control"
	default:
		return "none"
	}
}

// Event is one decoded inbound line
type Event struct {
	Kind    Kind
	Cell    braille.Cell
	Control braille.ControlEvent
	Raw     string
}

// Parse decodes one line. Lines that match neither prefix yield KindNone and
// a nil error. Malformed payloads yield KindNone and a wrapped
// braille.ErrMalformedCell or ErrUnknownControl.
func Parse(line string) (Event, error) {
	line = strings.TrimSpace(line)
	ev := Event{Raw: line}

	switch {
	case strings.HasPrefix(line, CellPrefix):
		cell, err := braille.ParseCell(strings.TrimPrefix(line, CellPrefix))
		if err != nil {
			return ev, err
		}
		ev.Kind = KindCell
		ev.Cell = cell

	case strings.HasPrefix(line, ControlPrefix):
		name := strings.TrimPrefix(line, ControlPrefix)
		ctrl, ok := braille.ParseControlEvent(name)
		if !ok {
			return ev, fmt.Errorf("%w: %q", ErrUnknownControl, name)
		}
		ev.Kind = KindControl
		ev.Control = ctrl
	}

	return ev, nil
}

// FormatCell renders the inbound line a keyboard sends for cell
func FormatCell(c braille.Cell) string {
	return CellPrefix + c.String()
}

// FormatControl renders the inbound line a keyboard sends for e
func FormatControl(e braille.ControlEvent) string {
	return ControlPrefix + string(e)
}
