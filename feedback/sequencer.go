// Package feedback plays timed LED sequences on a keyboard. The actuator
// queues guarantee ordering only; the Sequencer supplies the timing.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"braillekbd/protocol"
)

// LedQueuer is the part of a keyboard driver a Sequencer needs
type LedQueuer interface {
	QueueLed(ctx context.Context, dots []int, action protocol.LedAction) error
}

// Sequencer lights dot groups one after another. Each group is switched on,
// held for one step, then switched off before the next group starts.
type Sequencer struct {
	leds   LedQueuer
	step   time.Duration
	logger *slog.Logger
}

// NewSequencer creates a sequencer holding each group for step
func NewSequencer(leds LedQueuer, step time.Duration, logger *slog.Logger) *Sequencer {
	if step <= 0 {
		step = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		leds:   leds,
		step:   step,
		logger: logger,
	}
}

// Step returns the hold time per group
func (s *Sequencer) Step() time.Duration {
	return s.step
}

// Play runs the sequence and returns when the last group is off. If ctx is
// cancelled mid-sequence the lit group is still switched off.
func (s *Sequencer) Play(ctx context.Context, groups [][]int) error {
	for i, group := range groups {
		if err := s.leds.QueueLed(ctx, group, protocol.LedOn); err != nil {
			return fmt.Errorf("group %d on: %w", i+1, err)
		}

		timer := time.NewTimer(s.step)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.off(group)
			return ctx.Err()
		}

		if err := s.leds.QueueLed(ctx, group, protocol.LedOff); err != nil {
			return fmt.Errorf("group %d off: %w", i+1, err)
		}
	}
	return nil
}

// PlayAsync runs Play in a goroutine. The returned channel receives its
// result and is then closed.
func (s *Sequencer) PlayAsync(ctx context.Context, groups [][]int) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- s.Play(ctx, groups)
	}()
	return done
}

func (s *Sequencer) off(group []int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.step)
	defer cancel()
	if err := s.leds.QueueLed(ctx, group, protocol.LedOff); err != nil {
		s.logger.Warn("Failed to switch off LED group after cancel", "dots", group, "error", err)
	}
}

// ParseGroups parses groups separated by ';', each a dot list such as
// "1,2;4,5"
func ParseGroups(s string) ([][]int, error) {
	var groups [][]int
	for i, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		dots, err := protocol.ParseDotList(part)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i+1, err)
		}
		groups = append(groups, dots)
	}
	if len(groups) == 0 {
		return nil, protocol.ErrEmptyDotSet
	}
	return groups, nil
}
