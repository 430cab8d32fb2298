// Package device plays the keyboard end of the serial link. It sends cell
// and control lines the way the microcontroller firmware does and tracks
// the LED and vibration commands it receives from the host.
package device

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"braillekbd/braille"
	"braillekbd/protocol"
	"braillekbd/serial"
)

// Received is one host command seen by the device
type Received struct {
	Command protocol.Command
	Raw     string
	At      time.Time
}

// Keyboard is a simulated Braille keyboard attached to port
type Keyboard struct {
	port   serial.Port
	logger *slog.Logger

	writeMu sync.Mutex

	mu          sync.Mutex
	leds        [braille.DotCount]bool
	vibrations  int
	lastVibrate uint32
	received    []Received
	onCommand   func(Received)

	closeOnce sync.Once
	done      chan struct{}
	readErr   error
}

// NewKeyboard wraps an open port. Call Start to begin reading host commands.
func NewKeyboard(port serial.Port, logger *slog.Logger) *Keyboard {
	return &Keyboard{
		port:   port,
		logger: logger.With("device", port.Device()),
		done:   make(chan struct{}),
	}
}

// OnCommand registers fn to be called from the reader for each command.
// Set it before Start.
func (k *Keyboard) OnCommand(fn func(Received)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.onCommand = fn
}

// Start launches the reader goroutine
func (k *Keyboard) Start() {
	go k.readLoop()
}

// Done is closed when the reader exits
func (k *Keyboard) Done() <-chan struct{} {
	return k.done
}

// Err returns the error that ended the reader, if any
func (k *Keyboard) Err() error {
	<-k.done
	return k.readErr
}

// Close closes the port; the reader exits on its own
func (k *Keyboard) Close() error {
	var err error
	k.closeOnce.Do(func() {
		err = k.port.Close()
	})
	return err
}

func (k *Keyboard) readLoop() {
	defer close(k.done)

	scanner := bufio.NewScanner(k.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, err := protocol.DecodeCommand(line)
		if err != nil {
			// tty echo of our own output lands here too
			k.logger.Debug("Ignoring host line", "line", line, "error", err)
			continue
		}
		k.apply(Received{Command: cmd, Raw: line, At: time.Now()})
	}
	k.readErr = scanner.Err()
}

func (k *Keyboard) apply(r Received) {
	k.mu.Lock()
	switch r.Command.Kind {
	case protocol.CommandLed:
		for _, dot := range r.Command.Dots {
			k.leds[dot-1] = r.Command.Action == protocol.LedOn
		}
	case protocol.CommandVibrate:
		k.vibrations++
		k.lastVibrate = r.Command.DurationMs
	}
	k.received = append(k.received, r)
	fn := k.onCommand
	k.mu.Unlock()

	k.logger.Debug("Host command", "command", r.Raw)
	if fn != nil {
		fn(r)
	}
}

// SendLine writes one raw line
func (k *Keyboard) SendLine(line string) error {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()

	if _, err := k.port.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to send %q: %w", line, err)
	}
	return nil
}

// SendCell sends a dot-pattern line
func (k *Keyboard) SendCell(c braille.Cell) error {
	return k.SendLine(protocol.FormatCell(c))
}

// SendDots sends the cell with the given dots raised
func (k *Keyboard) SendDots(dots ...int) error {
	c, err := braille.FromDots(dots...)
	if err != nil {
		return err
	}
	return k.SendCell(c)
}

// SendControl sends a control line
func (k *Keyboard) SendControl(e braille.ControlEvent) error {
	return k.SendLine(protocol.FormatControl(e))
}

// LEDs returns which dot LEDs are lit; index 0 is dot 1
func (k *Keyboard) LEDs() [braille.DotCount]bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.leds
}

// Vibrations returns how many vibrate commands arrived and the last duration
func (k *Keyboard) Vibrations() (int, uint32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.vibrations, k.lastVibrate
}

// Received returns every host command seen so far
func (k *Keyboard) Received() []Received {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]Received(nil), k.received...)
}
