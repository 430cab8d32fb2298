package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"braillekbd/braille"
	"braillekbd/protocol"
)

// RunScript plays a keystroke script, one statement per line:
//
//	dots 1 3        raise dots 1 and 3 (also "dots 1,3")
//	cell 000101     send a cell in wire form
//	ctrl Enter      send a control chord
//	line <text>     send text verbatim
//	sleep 500ms     pause
//
// Blank lines and lines starting with # are skipped.
func (k *Keyboard) RunScript(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		stmt := strings.TrimSpace(scanner.Text())
		if stmt == "" || strings.HasPrefix(stmt, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := k.exec(ctx, stmt); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

func (k *Keyboard) exec(ctx context.Context, stmt string) error {
	verb, arg, _ := strings.Cut(stmt, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "dots":
		dots, err := protocol.ParseDotList(strings.Join(strings.Fields(arg), ","))
		if err != nil {
			return err
		}
		return k.SendDots(dots...)

	case "cell":
		c, err := braille.ParseCell(arg)
		if err != nil {
			return err
		}
		return k.SendCell(c)

	case "ctrl":
		e, ok := braille.ParseControlEvent(arg)
		if !ok {
			return fmt.Errorf("unknown control %q", arg)
		}
		return k.SendControl(e)

	case "line":
		return k.SendLine(arg)

	case "sleep":
		d, err := time.ParseDuration(arg)
		if err != nil {
			// bare numbers are milliseconds
			ms, convErr := strconv.Atoi(arg)
			if convErr != nil {
				return fmt.Errorf("invalid duration %q", arg)
			}
			d = time.Duration(ms) * time.Millisecond
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	default:
		return fmt.Errorf("unknown statement %q", verb)
	}
}
