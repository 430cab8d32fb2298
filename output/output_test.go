package output

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"braillekbd/protocol"
	"braillekbd/serial"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gateWriter blocks every write until released
type gateWriter struct {
	mu      sync.Mutex
	release chan struct{}
	written []string
}

func (w *gateWriter) WriteCommand(data []byte) error {
	<-w.release
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, string(data))
	return nil
}

func (w *gateWriter) lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.written...)
}

func TestChannel_EnqueueBlocksWhenFull(t *testing.T) {
	w := &gateWriter{release: make(chan struct{})}
	ch := NewChannel("led", 1, w, testLogger())
	ch.Start()
	t.Cleanup(func() {
		close(w.release)
		ch.Stop()
	})

	ctx := context.Background()
	// first command is taken by the worker and parks in the writer
	require.NoError(t, ch.Enqueue(ctx, []byte("ON:1\n")))
	require.Eventually(t, func() bool { return ch.Pending() == 0 }, time.Second, time.Millisecond)
	// second fills the queue
	require.NoError(t, ch.Enqueue(ctx, []byte("OFF:1\n")))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := ch.Enqueue(short, []byte("ON:2\n"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, ch.Pending())
}

func TestChannel_StopRejectsEnqueue(t *testing.T) {
	w := &gateWriter{release: make(chan struct{})}
	close(w.release)
	ch := NewChannel("vibrate", 4, w, testLogger())
	ch.Start()
	ch.Stop()

	require.Equal(t, StateStopped, ch.State())
	require.ErrorIs(t, ch.Enqueue(context.Background(), []byte("VIBRATE:1\n")), ErrStopped)
}

func TestManager_LedOrderPreserved(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	m := NewManager(8, testLogger())
	m.Attach(port)
	m.Start()
	t.Cleanup(m.Stop)

	ctx := context.Background()

	// noise from other callers on both actuators
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, m.QueueVibrate(ctx, 100))
				assert.NoError(t, m.QueueLed(ctx, []int{2}, protocol.LedOn))
			}
		}()
	}

	require.NoError(t, m.QueueLed(ctx, []int{3, 1}, protocol.LedOn))
	require.NoError(t, m.QueueLed(ctx, []int{1, 3}, protocol.LedOff))
	wg.Wait()

	require.Eventually(t, func() bool { return port.WriteCount() == 82 }, 2*time.Second, time.Millisecond)

	on, off := -1, -1
	for i, w := range port.GetWrites() {
		switch string(w) {
		case "ON:1,3\n":
			on = i
		case "OFF:1,3\n":
			off = i
		}
	}
	require.NotEqual(t, -1, on)
	require.NotEqual(t, -1, off)
	require.Less(t, on, off)
}

func TestManager_WritesAreWholeLines(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	m := NewManager(4, testLogger())
	m.Attach(port)
	m.Start()
	t.Cleanup(m.Stop)

	ctx := context.Background()
	require.NoError(t, m.QueueLed(ctx, []int{1, 2, 3}, protocol.LedOn))
	require.NoError(t, m.QueueVibrate(ctx, 500))

	require.Eventually(t, func() bool { return port.WriteCount() == 2 }, time.Second, time.Millisecond)
	data := string(port.GetWrittenData())
	require.Contains(t, data, "ON:1,2,3\n")
	require.Contains(t, data, "VIBRATE:500\n")
	for _, w := range port.GetWrites() {
		require.True(t, strings.HasSuffix(string(w), "\n"))
	}
}

func TestManager_NoTransport(t *testing.T) {
	m := NewManager(4, testLogger())
	m.Start()
	t.Cleanup(m.Stop)

	require.ErrorIs(t, m.WriteCommand([]byte("VIBRATE:1\n")), ErrNoTransport)

	require.NoError(t, m.QueueVibrate(context.Background(), 1))
	require.Eventually(t, func() bool {
		return m.GetStats()[ActuatorVibrate].Errors == 1
	}, time.Second, time.Millisecond)
}

func TestManager_DetachOnlyCurrentPort(t *testing.T) {
	first := serial.NewMockPort("a")
	second := serial.NewMockPort("b")
	m := NewManager(1, testLogger())

	m.Attach(second)
	m.Detach(first)
	require.NoError(t, m.WriteCommand([]byte("ON:1\n")))
	require.Equal(t, 1, second.WriteCount())

	m.Detach(second)
	require.ErrorIs(t, m.WriteCommand([]byte("ON:1\n")), ErrNoTransport)
}

func TestManager_InvalidLed(t *testing.T) {
	m := NewManager(1, testLogger())
	require.Error(t, m.QueueLed(context.Background(), []int{9}, protocol.LedOn))
	require.Error(t, m.QueueLed(context.Background(), nil, protocol.LedOn))
}
