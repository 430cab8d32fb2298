package protocol

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"braillekbd/braille"
)

// ErrEmptyDotSet is returned when an LED command names no dots
var ErrEmptyDotSet = errors.New("LED command needs at least one dot")

// LedAction switches LEDs on or off
type LedAction string

const (
	LedOn  LedAction = "ON"
	LedOff LedAction = "OFF"
)

const vibratePrefix = "VIBRATE:"

// ParseLedAction accepts "on"/"off" in any case
func ParseLedAction(s string) (LedAction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LedOn):
		return LedOn, nil
	case string(LedOff):
		return LedOff, nil
	default:
		return "", fmt.Errorf("invalid LED action: %q (must be ON or OFF)", s)
	}
}

// ParseDotList parses a comma-separated list such as "1,3"
func ParseDotList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyDotSet
	}

	var dots []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid dot number %q: %w", part, err)
		}
		dots = append(dots, n)
	}
	return NormalizeDots(dots)
}

// NormalizeDots validates dot numbers and returns them sorted without duplicates
func NormalizeDots(dots []int) ([]int, error) {
	if len(dots) == 0 {
		return nil, ErrEmptyDotSet
	}

	seen := make(map[int]bool, len(dots))
	out := make([]int, 0, len(dots))
	for _, dot := range dots {
		if dot < 1 || dot > braille.DotCount {
			return nil, fmt.Errorf("%w: %d", braille.ErrInvalidDot, dot)
		}
		if !seen[dot] {
			seen[dot] = true
			out = append(out, dot)
		}
	}
	sort.Ints(out)
	return out, nil
}

// EncodeLed renders "<ON|OFF>:<n1>,<n2>,...\n"
func EncodeLed(dots []int, action LedAction) ([]byte, error) {
	if action != LedOn && action != LedOff {
		return nil, fmt.Errorf("invalid LED action: %q", action)
	}
	norm, err := NormalizeDots(dots)
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(norm))
	for i, dot := range norm {
		parts[i] = strconv.Itoa(dot)
	}
	return []byte(string(action) + ":" + strings.Join(parts, ",") + "\n"), nil
}

// EncodeVibrate renders "VIBRATE:<duration_ms>\n"
func EncodeVibrate(durationMs uint32) []byte {
	return []byte(vibratePrefix + strconv.FormatUint(uint64(durationMs), 10) + "\n")
}

// CommandKind identifies an outbound command
type CommandKind string

const (
	CommandLed     CommandKind = "led"
	CommandVibrate CommandKind = "vibrate"
)

// Command is a decoded outbound line, as seen from the device side
type Command struct {
	Kind       CommandKind
	Action     LedAction
	Dots       []int
	DurationMs uint32
}

// DecodeCommand parses an outbound line. Simulators use it to play the
// device end of the link.
func DecodeCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, vibratePrefix) {
		ms, err := strconv.ParseUint(strings.TrimPrefix(line, vibratePrefix), 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid vibrate duration in %q: %w", line, err)
		}
		return Command{Kind: CommandVibrate, DurationMs: uint32(ms)}, nil
	}

	head, list, ok := strings.Cut(line, ":")
	if !ok {
		return Command{}, fmt.Errorf("unrecognized command: %q", line)
	}
	if head != string(LedOn) && head != string(LedOff) {
		return Command{}, fmt.Errorf("unrecognized command: %q", line)
	}
	dots, err := ParseDotList(list)
	if err != nil {
		return Command{}, fmt.Errorf("invalid LED command %q: %w", line, err)
	}
	return Command{Kind: CommandLed, Action: LedAction(head), Dots: dots}, nil
}
