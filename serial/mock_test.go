package serial

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func TestMockPort_FeedAndRead(t *testing.T) {
	p := NewMockPort("/dev/mock0")
	p.Feed("Control Signal: Enter", "Braille Signal (6-bit): 000101\n")

	scanner := bufio.NewScanner(p)
	require.True(t, scanner.Scan())
	require.Equal(t, "Control Signal: Enter", scanner.Text())
	require.True(t, scanner.Scan())
	require.Equal(t, "Braille Signal (6-bit): 000101", scanner.Text())
}

func TestMockPort_CloseUnblocksRead(t *testing.T) {
	p := NewMockPort("/dev/mock0")

	done := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 16))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("Read did not return after Close")
	}
}

func TestMockPort_InjectReadError(t *testing.T) {
	p := NewMockPort("/dev/mock0")
	boom := errors.New("cable pulled")
	p.InjectReadError(boom)

	_, err := p.Read(make([]byte, 16))
	require.ErrorIs(t, err, boom)
}

func TestMockPort_Writes(t *testing.T) {
	p := NewMockPort("/dev/mock0")

	_, err := p.Write([]byte("ON:1\n"))
	require.NoError(t, err)
	_, err = p.Write([]byte("OFF:1\n"))
	require.NoError(t, err)

	require.Equal(t, 2, p.WriteCount())
	require.Equal(t, "ON:1\nOFF:1\n", string(p.GetWrittenData()))

	p.SetWriteError(io.ErrShortWrite)
	_, err = p.Write([]byte("x"))
	require.ErrorIs(t, err, io.ErrShortWrite)
	p.ClearWriteError()

	require.NoError(t, p.Close())
	_, err = p.Write([]byte("x"))
	require.ErrorIs(t, err, ErrPortClosed)
}

func TestMockOpener(t *testing.T) {
	first := NewMockPort("a")
	o := NewMockOpener(nil, first)

	_, err := o.Open()
	require.Error(t, err)

	p, err := o.Open()
	require.NoError(t, err)
	require.Same(t, first, p)

	_, err = o.Open()
	require.Error(t, err)
	require.Equal(t, 3, o.Calls())
}

func TestPortWithStats(t *testing.T) {
	p := NewMockPort("/dev/mock0")
	ps := NewPortWithStats(p)

	_, err := ps.Write([]byte("VIBRATE:500\n"))
	require.NoError(t, err)

	p.Feed("hello")
	n, err := ps.Read(make([]byte, 64))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	stats := ps.Stats()
	require.EqualValues(t, 12, stats.BytesSent)
	require.EqualValues(t, 6, stats.BytesReceived)
	require.EqualValues(t, 1, stats.Writes)
	require.Zero(t, stats.Errors)
}

func TestStreamPort_PTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	p := NewStreamPort(slave.Name(), slave)

	_, err = master.Write([]byte("ping\n"))
	require.NoError(t, err)

	scanner := bufio.NewScanner(p)
	require.True(t, scanner.Scan())
	require.Equal(t, "ping", scanner.Text())

	_, err = p.Write([]byte("pong\n"))
	require.NoError(t, err)

	// the tty echoes "ping" back to the master first
	var got string
	buf := make([]byte, 64)
	for i := 0; i < 4 && !strings.Contains(got, "pong"); i++ {
		n, err := master.Read(buf)
		require.NoError(t, err)
		got += string(buf[:n])
	}
	require.Contains(t, got, "pong")

	require.NoError(t, p.Close())
	require.False(t, p.IsOpen())
	_, err = p.Write([]byte("x"))
	require.ErrorIs(t, err, ErrPortClosed)
}
