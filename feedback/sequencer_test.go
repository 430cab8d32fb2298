package feedback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"braillekbd/braille"
	"braillekbd/protocol"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	at    []time.Time
	fail  error
}

func (r *recorder) QueueLed(ctx context.Context, dots []int, action protocol.LedAction) error {
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s%v", action, dots))
	r.at = append(r.at, time.Now())
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestSequencer_Play(t *testing.T) {
	rec := &recorder{}
	seq := NewSequencer(rec, 10*time.Millisecond, nil)

	require.NoError(t, seq.Play(context.Background(), [][]int{{1, 2}, {4}}))
	require.Equal(t, []string{"ON[1 2]", "OFF[1 2]", "ON[4]", "OFF[4]"}, rec.snapshot())
	require.GreaterOrEqual(t, rec.at[1].Sub(rec.at[0]), 10*time.Millisecond)
}

func TestSequencer_CancelSwitchesOff(t *testing.T) {
	rec := &recorder{}
	seq := NewSequencer(rec, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := seq.PlayAsync(ctx, [][]int{{3}, {6}})

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, []string{"ON[3]", "OFF[3]"}, rec.snapshot())
}

// offFailer accepts ON and rejects OFF
type offFailer struct {
	recorder
}

func (r *offFailer) QueueLed(ctx context.Context, dots []int, action protocol.LedAction) error {
	if action == protocol.LedOff {
		return errors.New("port closed")
	}
	return r.recorder.QueueLed(ctx, dots, action)
}

func TestSequencer_CancelLogsFailedSwitchOff(t *testing.T) {
	var logs bytes.Buffer
	rec := &offFailer{}
	seq := NewSequencer(rec, time.Minute, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := seq.PlayAsync(ctx, [][]int{{2, 5}})

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Contains(t, logs.String(), "Failed to switch off LED group after cancel")
	require.Contains(t, logs.String(), "port closed")
}

func TestSequencer_QueueError(t *testing.T) {
	rec := &recorder{fail: errors.New("queue full")}
	seq := NewSequencer(rec, time.Millisecond, nil)

	err := seq.Play(context.Background(), [][]int{{1}})
	require.ErrorContains(t, err, "group 1 on")
}

func TestSequencer_DefaultStep(t *testing.T) {
	require.Equal(t, 2*time.Second, NewSequencer(&recorder{}, 0, nil).Step())
}

func TestParseGroups(t *testing.T) {
	groups, err := ParseGroups("1,2; 4,5 ;")
	require.NoError(t, err)
	require.Equal(t, [][]int{{1, 2}, {4, 5}}, groups)

	_, err = ParseGroups(" ; ")
	require.ErrorIs(t, err, protocol.ErrEmptyDotSet)

	_, err = ParseGroups("1;9")
	require.ErrorIs(t, err, braille.ErrInvalidDot)
	require.ErrorContains(t, err, "group 2")
}
