package device

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"braillekbd/braille"
	"braillekbd/keyboard"
	"braillekbd/protocol"
	"braillekbd/serial"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sent(mock *serial.MockPort) []string {
	var lines []string
	for _, w := range mock.GetWrites() {
		lines = append(lines, strings.TrimSuffix(string(w), "\n"))
	}
	return lines
}

func TestKeyboard_TracksHostCommands(t *testing.T) {
	mock := serial.NewMockPort("/dev/mock0")
	kb := NewKeyboard(mock, testLogger())

	seen := make(chan Received, 8)
	kb.OnCommand(func(r Received) { seen <- r })
	kb.Start()
	t.Cleanup(func() { kb.Close() })

	mock.Feed("ON:1,3", "garbage", "VIBRATE:200", "OFF:1")

	for i := 0; i < 3; i++ {
		select {
		case <-seen:
		case <-time.After(2 * time.Second):
			t.Fatal("command not delivered")
		}
	}

	require.Equal(t, [6]bool{false, false, true, false, false, false}, kb.LEDs())
	n, last := kb.Vibrations()
	require.Equal(t, 1, n)
	require.EqualValues(t, 200, last)

	got := kb.Received()
	require.Len(t, got, 3)
	require.Equal(t, protocol.CommandLed, got[0].Command.Kind)
	require.Equal(t, "VIBRATE:200", got[1].Raw)
}

func TestKeyboard_CloseEndsReader(t *testing.T) {
	mock := serial.NewMockPort("/dev/mock0")
	kb := NewKeyboard(mock, testLogger())
	kb.Start()

	require.NoError(t, kb.Close())
	require.NoError(t, kb.Close())
	select {
	case <-kb.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not exit")
	}
	require.ErrorIs(t, kb.Err(), serial.ErrPortClosed)
}

func TestKeyboard_Send(t *testing.T) {
	mock := serial.NewMockPort("/dev/mock0")
	kb := NewKeyboard(mock, testLogger())

	require.NoError(t, kb.SendDots(1, 4))
	require.NoError(t, kb.SendControl(braille.CtrlBackspace))
	require.ErrorIs(t, kb.SendDots(0), braille.ErrInvalidDot)

	require.Equal(t, []string{
		"Braille Signal (6-bit): 100100",
		"Control Signal: Ctrl+Backspace",
	}, sent(mock))
}

func TestRunScript(t *testing.T) {
	mock := serial.NewMockPort("/dev/mock0")
	kb := NewKeyboard(mock, testLogger())

	script := `
# spell "ab" and submit
dots 1
dots 1,2
sleep 1ms
sleep 2
cell 000101
ctrl Enter
line hello
`
	require.NoError(t, kb.RunScript(context.Background(), strings.NewReader(script)))
	require.Equal(t, []string{
		"Braille Signal (6-bit): 100000",
		"Braille Signal (6-bit): 110000",
		"Braille Signal (6-bit): 000101",
		"Control Signal: Enter",
		"hello",
	}, sent(mock))
}

func TestRunScript_Errors(t *testing.T) {
	kb := NewKeyboard(serial.NewMockPort("/dev/mock0"), testLogger())
	ctx := context.Background()

	tests := []struct {
		script string
		want   string
	}{
		{"dots 7", "line 1"},
		{"cell 12", "line 1"},
		{"\nctrl Jump", "line 2"},
		{"sleep soon", "invalid duration"},
		{"press 1", "unknown statement"},
	}
	for _, tt := range tests {
		err := kb.RunScript(ctx, strings.NewReader(tt.script))
		require.ErrorContains(t, err, tt.want, tt.script)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, kb.RunScript(cancelled, strings.NewReader("sleep 1h")), context.Canceled)
}

// The driver and the simulated device on the two ends of a PTY
func TestKeyboard_DriverOverPTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)

	d := keyboard.New(keyboard.Options{
		Name:   "pty",
		Device: slave.Name(),
		Open: func() (serial.Port, error) {
			return serial.NewStreamPort(slave.Name(), slave), nil
		},
		Logger: testLogger(),
	})
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(d.Stop)

	kb := NewKeyboard(serial.NewStreamPort("pty-master", master), testLogger())
	kb.Start()
	t.Cleanup(func() { kb.Close() })

	d.SetBufferedMode(true)
	require.NoError(t, kb.RunScript(context.Background(), strings.NewReader("dots 1 2\ndots 2 4\nctrl Enter\n")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sig, err := d.WaitSignal(ctx)
	require.NoError(t, err)
	require.Equal(t, braille.Enter, sig.Event)
	require.Equal(t, []braille.Cell{braille.MustFromDots(1, 2), braille.MustFromDots(2, 4)}, sig.Submitted)

	require.NoError(t, d.QueueLed(ctx, []int{5}, protocol.LedOn))
	require.NoError(t, d.QueueVibrate(ctx, 300))

	require.Eventually(t, func() bool {
		n, last := kb.Vibrations()
		return kb.LEDs()[4] && n == 1 && last == 300
	}, 2*time.Second, 5*time.Millisecond)
}
