package output

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned when enqueueing on a stopped channel
var ErrStopped = errors.New("actuator channel stopped")

// ChannelState represents the current state of an actuator channel
type ChannelState string

const (
	StateInitializing ChannelState = "initializing"
	StateRunning      ChannelState = "running"
	StateStopped      ChannelState = "stopped"
)

// Command is one encoded outbound line
type Command struct {
	Data     []byte
	Enqueued time.Time
}

// Writer performs one physical write to the device
type Writer interface {
	WriteCommand(data []byte) error
}

// Channel is a bounded FIFO of commands for one actuator, drained by a
// single worker goroutine. Enqueue blocks while the queue is full.
type Channel struct {
	name   string
	writer Writer
	queue  chan Command
	logger *slog.Logger

	state      ChannelState
	stateMutex sync.RWMutex

	// Statistics
	stats      ChannelStats
	statsMutex sync.RWMutex

	// Control
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// ChannelStats contains statistics for an actuator channel
type ChannelStats struct {
	Enqueued      int64     `json:"enqueued"`
	Written       int64     `json:"written"`
	Errors        int64     `json:"errors"`
	Discarded     int64     `json:"discarded"`
	LastWriteTime time.Time `json:"last_write_time"`
	LastError     string    `json:"last_error,omitempty"`
}

// NewChannel creates a new actuator channel with room for size commands
func NewChannel(name string, size int, writer Writer, logger *slog.Logger) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{
		name:   name,
		writer: writer,
		queue:  make(chan Command, size),
		logger: logger.With("actuator", name),
		state:  StateInitializing,
		stopCh: make(chan struct{}),
	}
}

// Start launches the worker
func (c *Channel) Start() {
	c.setState(StateRunning)
	c.wg.Add(1)
	go c.outputLoop()
}

// Stop signals the worker to exit and waits for it. Commands still queued
// are discarded.
func (c *Channel) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()

	discarded := 0
drain:
	for {
		select {
		case <-c.queue:
			discarded++
		default:
			break drain
		}
	}

	c.statsMutex.Lock()
	c.stats.Discarded += int64(discarded)
	c.statsMutex.Unlock()

	c.setState(StateStopped)
	c.logger.Debug("Actuator channel stopped", "discarded", discarded)
}

// Enqueue adds a command, waiting for room until ctx is done or the channel
// stops.
func (c *Channel) Enqueue(ctx context.Context, data []byte) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	cmd := Command{Data: data, Enqueued: time.Now()}
	select {
	case c.queue <- cmd:
		c.statsMutex.Lock()
		c.stats.Enqueued++
		c.statsMutex.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopCh:
		return ErrStopped
	}
}

// Pending returns the number of queued commands
func (c *Channel) Pending() int {
	return len(c.queue)
}

// Name returns the actuator name
func (c *Channel) Name() string {
	return c.name
}

// State returns the current channel state
func (c *Channel) State() ChannelState {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.state
}

// Stats returns a copy of the current statistics
func (c *Channel) Stats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

func (c *Channel) setState(state ChannelState) {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	c.state = state
}

func (c *Channel) outputLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case cmd := <-c.queue:
			c.send(cmd)
		}
	}
}

func (c *Channel) send(cmd Command) {
	err := c.writer.WriteCommand(cmd.Data)

	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()

	if err != nil {
		c.stats.Errors++
		c.stats.LastError = err.Error()
		c.logger.Error("Actuator write failed", "command", string(trimNewline(cmd.Data)), "error", err)
		return
	}

	c.stats.Written++
	c.stats.LastWriteTime = time.Now()
	c.logger.Debug("Sent command",
		"command", string(trimNewline(cmd.Data)),
		"queued_for", time.Since(cmd.Enqueued),
	)
}

func trimNewline(data []byte) []byte {
	if n := len(data); n > 0 && data[n-1] == '\n' {
		return data[:n-1]
	}
	return data
}
