// Package keyboard is the host-side driver for a serial Braille keyboard.
//
// A Driver owns one transport. A background reader turns device lines into
// input-buffer edits and control signals; two actuator workers (see package
// output) write LED and vibration commands back. Request handlers share a
// Driver and call its methods concurrently.
//
// Lock order: inputMu, then the control queue's lock.
package keyboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"braillekbd/braille"
	"braillekbd/output"
	"braillekbd/protocol"
	"braillekbd/serial"
)

// State is the transport connection state
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var errStopping = errors.New("driver stopping")

// Options configures a Driver
type Options struct {
	Name   string
	Device string
	// Backend is informational ("hardware", "mock"); Open decides what is
	// actually opened.
	Backend string
	Open    serial.Opener

	BufferCapacity    int
	ControlCapacity   int
	ActuatorQueueSize int
	// EnqueueTimeout bounds how long QueueLed/QueueVibrate wait for room
	EnqueueTimeout time.Duration
	// Settle is slept after each successful open; Arduino boards reset on
	// connect.
	Settle time.Duration

	Reconnect          bool
	ReconnectDelay     time.Duration
	MaxReconnectDelay  time.Duration
	ExponentialBackoff bool

	// OnFault is called from the reader goroutine when the transport fails
	OnFault func(name string, err error)

	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.BufferCapacity < 1 {
		o.BufferCapacity = 100
	}
	if o.ControlCapacity < 1 {
		o.ControlCapacity = 10
	}
	if o.ActuatorQueueSize < 1 {
		o.ActuatorQueueSize = 32
	}
	if o.EnqueueTimeout <= 0 {
		o.EnqueueTimeout = 2 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 5 * time.Second
	}
	if o.MaxReconnectDelay < o.ReconnectDelay {
		o.MaxReconnectDelay = o.ReconnectDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Stats counts driver activity
type Stats struct {
	LinesReceived  int64     `json:"lines_received"`
	LinesRejected  int64     `json:"lines_rejected"`
	LinesIgnored   int64     `json:"lines_ignored"`
	CellsAccepted  int64     `json:"cells_accepted"`
	CellsDiscarded int64     `json:"cells_discarded"`
	ControlsQueued int64     `json:"controls_queued"`
	Faults         int64     `json:"faults"`
	Reconnects     int64     `json:"reconnects"`
	LastLineTime   time.Time `json:"last_line_time"`
	LastError      string    `json:"last_error,omitempty"`
}

// Driver is the shared handle to one keyboard
type Driver struct {
	opts   Options
	logger *slog.Logger

	// inputMu guards buffer and buffered
	inputMu  sync.Mutex
	buffer   *InputBuffer
	buffered bool

	controls  *ControlQueue
	actuators *output.Manager

	portMu sync.RWMutex
	port   *serial.PortWithStats

	state   State
	stateMu sync.RWMutex

	stats   Stats
	statsMu sync.RWMutex

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates a driver. Nothing is opened until Start.
func New(opts Options) *Driver {
	opts.applyDefaults()
	logger := opts.Logger.With("keyboard", opts.Name, "device", opts.Device)

	return &Driver{
		opts:      opts,
		logger:    logger,
		buffer:    NewInputBuffer(opts.BufferCapacity),
		controls:  NewControlQueue(opts.ControlCapacity),
		actuators: output.NewManager(opts.ActuatorQueueSize, logger),
		state:     StateDisconnected,
		stopCh:    make(chan struct{}),
	}
}

// Start opens the transport and launches the reader and actuator workers.
// An open failure leaves the driver in degraded mode and is only logged;
// Start returns an error only when called twice.
func (d *Driver) Start(ctx context.Context) error {
	started := false
	d.startOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("keyboard %s already started", d.opts.Name)
	}

	d.actuators.Start()

	port, err := d.connect(ctx)
	if err != nil {
		d.recordError(err)
		d.logger.Error("Keyboard unavailable, running degraded", "error", err)
		if d.opts.OnFault != nil {
			d.opts.OnFault(d.opts.Name, err)
		}
		if !d.opts.Reconnect {
			return nil
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if port := d.reconnect(); port != nil {
				d.run(port)
			}
		}()
		return nil
	}

	d.logger.Info("Keyboard connected")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(port)
	}()
	return nil
}

// Stop signals the reader and workers, closes the transport, and waits for
// every goroutine to exit.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("Stopping keyboard")
		close(d.stopCh)

		d.portMu.Lock()
		if d.port != nil {
			d.actuators.Detach(d.port)
			d.port.Close()
			d.port = nil
		}
		d.portMu.Unlock()

		d.actuators.Stop()
		d.wg.Wait()
		d.setState(StateDisconnected)
		d.logger.Info("Keyboard stopped")
	})
}

// Name returns the configured keyboard name
func (d *Driver) Name() string {
	return d.opts.Name
}

// Device returns the configured device path
func (d *Driver) Device() string {
	return d.opts.Device
}

// Available reports whether the transport is connected
func (d *Driver) Available() bool {
	return d.State() == StateConnected
}

// State returns the connection state
func (d *Driver) State() State {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

func (d *Driver) setState(s State) {
	d.stateMu.Lock()
	prev := d.state
	d.state = s
	d.stateMu.Unlock()
	if prev != s {
		d.logger.Debug("Keyboard state changed", "from", prev, "to", s)
	}
}

func (d *Driver) stopping() bool {
	select {
	case <-d.stopCh:
		return true
	default:
		return false
	}
}

// connect opens the transport, waits out the settle delay, and attaches it
func (d *Driver) connect(ctx context.Context) (*serial.PortWithStats, error) {
	if d.opts.Open == nil {
		d.setState(StateDisconnected)
		return nil, errors.New("no transport configured")
	}

	d.setState(StateConnecting)
	raw, err := d.opts.Open()
	if err != nil {
		d.setState(StateDisconnected)
		return nil, err
	}

	if d.opts.Settle > 0 {
		timer := time.NewTimer(d.opts.Settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			raw.Close()
			d.setState(StateDisconnected)
			return nil, ctx.Err()
		case <-d.stopCh:
			timer.Stop()
			raw.Close()
			return nil, errStopping
		}
	}

	port := serial.NewPortWithStats(raw)

	d.portMu.Lock()
	if d.stopping() {
		d.portMu.Unlock()
		raw.Close()
		return nil, errStopping
	}
	d.port = port
	d.portMu.Unlock()

	d.actuators.Attach(port)
	d.setState(StateConnected)
	return port, nil
}

// run reads lines until the transport fails, then optionally reconnects
func (d *Driver) run(port *serial.PortWithStats) {
	for port != nil {
		err := d.readLines(port)
		if d.stopping() {
			return
		}
		d.fault(port, err)
		if !d.opts.Reconnect {
			return
		}
		port = d.reconnect()
	}
}

// maxLineLen bounds one device line. Protocol lines are under 40 bytes.
const maxLineLen = 4096

// readLines feeds lines to handleLine until the transport fails. A line
// longer than maxLineLen is discarded as rejected; only read errors are
// returned.
func (d *Driver) readLines(port io.Reader) error {
	r := bufio.NewReaderSize(port, maxLineLen)
	discarding := false

	for {
		line, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !discarding {
				discarding = true
				d.rejectLongLine()
			}
			continue
		}
		if discarding {
			// tail of the over-long line
			discarding = false
			if err != nil {
				return err
			}
			continue
		}

		if len(line) > 0 {
			d.handleLine(strings.TrimRight(string(line), "\r\n"))
		}
		if err != nil {
			return err
		}
	}
}

func (d *Driver) rejectLongLine() {
	d.statsMu.Lock()
	d.stats.LinesReceived++
	d.stats.LinesRejected++
	d.stats.LastLineTime = time.Now()
	d.statsMu.Unlock()

	d.logger.Warn("Rejected serial line, too long", "limit", maxLineLen)
}

func (d *Driver) fault(port *serial.PortWithStats, err error) {
	d.portMu.Lock()
	if d.port == port {
		d.port = nil
	}
	d.portMu.Unlock()

	d.actuators.Detach(port)
	port.Close()
	d.setState(StateDisconnected)

	d.statsMu.Lock()
	d.stats.Faults++
	d.stats.LastError = err.Error()
	d.statsMu.Unlock()

	d.logger.Error("Keyboard transport lost", "error", err)
	if d.opts.OnFault != nil {
		d.opts.OnFault(d.opts.Name, err)
	}
}

// reconnect retries opening until it succeeds or the driver stops
func (d *Driver) reconnect() *serial.PortWithStats {
	delay := d.opts.ReconnectDelay
	attempt := 0

	for {
		attempt++
		d.logger.Info("Attempting to reconnect", "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-d.stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		port, err := d.connect(context.Background())
		if err == nil {
			d.statsMu.Lock()
			d.stats.Reconnects++
			d.statsMu.Unlock()
			d.logger.Info("Reconnected successfully", "attempt", attempt)
			return port
		}
		if errors.Is(err, errStopping) {
			return nil
		}

		d.recordError(err)
		d.logger.Warn("Reconnection failed", "error", err)

		// Exponential backoff
		if d.opts.ExponentialBackoff {
			delay = delay * 2
			if delay > d.opts.MaxReconnectDelay {
				delay = d.opts.MaxReconnectDelay
			}
		}
	}
}

// handleLine parses one device line and routes it
func (d *Driver) handleLine(line string) {
	// Counted once the line has been routed, so LinesReceived never runs
	// ahead of the buffer and queue.
	defer func() {
		d.statsMu.Lock()
		d.stats.LinesReceived++
		d.stats.LastLineTime = time.Now()
		d.statsMu.Unlock()
	}()

	d.logger.Debug("Received serial line", "line", line)

	ev, err := protocol.Parse(line)
	if err != nil {
		d.statsMu.Lock()
		d.stats.LinesRejected++
		d.statsMu.Unlock()
		d.logger.Warn("Rejected serial line", "line", line, "error", err)
		return
	}

	switch ev.Kind {
	case protocol.KindCell:
		d.acceptCell(ev.Cell)
	case protocol.KindControl:
		d.acceptControl(ev.Control)
	default:
		d.statsMu.Lock()
		d.stats.LinesIgnored++
		d.statsMu.Unlock()
	}
}

func (d *Driver) acceptCell(c braille.Cell) {
	d.inputMu.Lock()
	accepted := d.buffered
	if accepted {
		d.buffer.Append(c)
	}
	d.inputMu.Unlock()

	d.statsMu.Lock()
	if accepted {
		d.stats.CellsAccepted++
	} else {
		d.stats.CellsDiscarded++
	}
	d.statsMu.Unlock()

	if accepted {
		d.logger.Debug("Buffered cell", "cell", c.String())
	} else {
		d.logger.Debug("Discarded cell, buffered mode off", "cell", c.String())
	}
}

func (d *Driver) acceptControl(e braille.ControlEvent) {
	var ok bool
	var submitted int

	if e == braille.Enter {
		// Enter claims the buffer and becomes visible in one step
		d.inputMu.Lock()
		ok = d.controls.offerWith(func() Signal {
			sig := Signal{Event: e, At: time.Now()}
			if d.buffered && d.buffer.Len() > 0 {
				sig.Submitted = d.buffer.Drain()
				submitted = len(sig.Submitted)
			}
			return sig
		})
		d.inputMu.Unlock()
	} else {
		ok = d.controls.Offer(Signal{Event: e, At: time.Now()})
	}

	if !ok {
		d.logger.Warn("Control queue full, discarding signal", "signal", e)
		return
	}

	d.statsMu.Lock()
	d.stats.ControlsQueued++
	d.statsMu.Unlock()
	d.logger.Info("Received control signal", "signal", e, "submitted_cells", submitted)
}

// Snapshot returns a copy of the input buffer
func (d *Driver) Snapshot() []braille.Cell {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	return d.buffer.Snapshot()
}

// Input returns the buffer contents and the cursor from one critical
// section, so the cursor always indexes the returned cells
func (d *Driver) Input() ([]braille.Cell, int) {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	return d.buffer.Snapshot(), d.buffer.Cursor()
}

// CursorPosition returns the cursor index
func (d *Driver) CursorPosition() int {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	return d.buffer.Cursor()
}

// MoveCursorLeft moves the cursor left; false at the start of the buffer
func (d *Driver) MoveCursorLeft() bool {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	return d.buffer.MoveLeft()
}

// MoveCursorRight moves the cursor right; false at the last cell
func (d *Driver) MoveCursorRight() bool {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	return d.buffer.MoveRight()
}

// DeleteAtCursor removes the cell under the cursor; false if there is none
func (d *Driver) DeleteAtCursor() bool {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	return d.buffer.DeleteAtCursor()
}

// ClearInput empties the input buffer
func (d *Driver) ClearInput() {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	d.buffer.Clear()
}

// SetBufferedMode gates whether cells accumulate. Turning it off also
// clears the buffer.
func (d *Driver) SetBufferedMode(buffered bool) {
	d.inputMu.Lock()
	prev := d.buffered
	d.buffered = buffered
	if !buffered {
		d.buffer.Clear()
	}
	d.inputMu.Unlock()

	if prev != buffered {
		d.logger.Info("Buffered mode changed", "buffered", buffered)
	}
}

// BufferedMode reports whether cells accumulate
func (d *Driver) BufferedMode() bool {
	d.inputMu.Lock()
	defer d.inputMu.Unlock()
	return d.buffered
}

// NextSignal removes and returns the oldest control signal
func (d *Driver) NextSignal() (Signal, bool) {
	return d.controls.Next()
}

// PeekSignal returns the oldest control signal without removing it
func (d *Driver) PeekSignal() (Signal, bool) {
	return d.controls.Peek()
}

// PeekControl returns the oldest control event without removing it
func (d *Driver) PeekControl() (braille.ControlEvent, bool) {
	sig, ok := d.controls.Peek()
	return sig.Event, ok
}

// DrainSignals removes and returns every pending signal. Pass the result to
// Resolve to pick the one to act on.
func (d *Driver) DrainSignals() []Signal {
	return d.controls.Drain()
}

// ResolveSignals drains the queue and resolves the batch. Submissions from
// superseded Enters are logged and returned in the Resolution.
func (d *Driver) ResolveSignals() (Resolution, bool) {
	res, ok := resolve(d.controls.Drain())
	for _, sig := range res.Superseded {
		d.logger.Warn("Discarding submission superseded by an earlier Enter",
			"cells", len(sig.Submitted),
			"dots", braille.Strings(sig.Submitted),
		)
	}
	return res, ok
}

// WaitSignal blocks until a signal arrives or ctx is done
func (d *Driver) WaitSignal(ctx context.Context) (Signal, error) {
	return d.controls.Wait(ctx)
}

// QueueLed queues an LED command. It waits while the LED queue is full, up
// to ctx and the configured enqueue timeout. Invalid dots are rejected even
// without a transport; otherwise a disconnected driver logs and returns nil.
func (d *Driver) QueueLed(ctx context.Context, dots []int, action protocol.LedAction) error {
	if _, err := protocol.EncodeLed(dots, action); err != nil {
		return err
	}
	if !d.Available() {
		d.logger.Warn("Keyboard unavailable, dropping LED command", "dots", dots, "action", action)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.EnqueueTimeout)
	defer cancel()
	if err := d.actuators.QueueLed(ctx, dots, action); err != nil {
		return fmt.Errorf("queue LED %s %v: %w", action, dots, err)
	}
	return nil
}

// QueueVibrate queues a vibration command, waiting like QueueLed
func (d *Driver) QueueVibrate(ctx context.Context, durationMs uint32) error {
	if !d.Available() {
		d.logger.Warn("Keyboard unavailable, dropping vibrate command", "duration_ms", durationMs)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.EnqueueTimeout)
	defer cancel()
	if err := d.actuators.QueueVibrate(ctx, durationMs); err != nil {
		return fmt.Errorf("queue vibrate %dms: %w", durationMs, err)
	}
	return nil
}

// Stats returns a copy of the driver counters
func (d *Driver) Stats() Stats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	return d.stats
}

func (d *Driver) recordError(err error) {
	d.statsMu.Lock()
	d.stats.LastError = err.Error()
	d.statsMu.Unlock()
}

// Info is a point-in-time view of a driver for monitoring
type Info struct {
	Name            string                         `json:"name"`
	Device          string                         `json:"device"`
	Backend         string                         `json:"backend"`
	State           State                          `json:"state"`
	Available       bool                           `json:"available"`
	BufferedMode    bool                           `json:"buffered_mode"`
	BufferLen       int                            `json:"buffer_len"`
	BufferCapacity  int                            `json:"buffer_capacity"`
	Cursor          int                            `json:"cursor"`
	ControlPending  int                            `json:"control_pending"`
	ControlsDropped int64                          `json:"controls_dropped"`
	ActuatorPending map[string]int                 `json:"actuator_pending"`
	Actuators       map[string]output.ChannelStats `json:"actuators"`
	Port            *serial.Stats                  `json:"port,omitempty"`
	Stats           Stats                          `json:"stats"`
}

// Info returns a snapshot of the driver state
func (d *Driver) Info() Info {
	d.inputMu.Lock()
	buffered := d.buffered
	bufLen := d.buffer.Len()
	bufCap := d.buffer.Capacity()
	cursor := d.buffer.Cursor()
	d.inputMu.Unlock()

	info := Info{
		Name:            d.opts.Name,
		Device:          d.opts.Device,
		Backend:         d.opts.Backend,
		State:           d.State(),
		BufferedMode:    buffered,
		BufferLen:       bufLen,
		BufferCapacity:  bufCap,
		Cursor:          cursor,
		ControlPending:  d.controls.Len(),
		ControlsDropped: d.controls.Dropped(),
		ActuatorPending: d.actuators.Pending(),
		Actuators:       d.actuators.GetStats(),
		Stats:           d.Stats(),
	}
	info.Available = info.State == StateConnected

	d.portMu.RLock()
	if d.port != nil {
		ps := d.port.Stats()
		info.Port = &ps
	}
	d.portMu.RUnlock()

	return info
}
