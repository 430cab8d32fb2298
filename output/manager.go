package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"braillekbd/protocol"
	"braillekbd/serial"
)

// ErrNoTransport is returned by writes while no port is attached
var ErrNoTransport = errors.New("no transport attached")

const (
	ActuatorLed     = "led"
	ActuatorVibrate = "vibrate"
)

// Manager owns the LED and vibration channels. Both workers write through
// one lock so only one physical write is in flight at a time.
type Manager struct {
	led     *Channel
	vibrate *Channel
	logger  *slog.Logger

	// writeMu guards port and every write on it
	writeMu sync.Mutex
	port    serial.Port
}

// NewManager creates a manager whose queues hold queueSize commands each
func NewManager(queueSize int, logger *slog.Logger) *Manager {
	m := &Manager{
		logger: logger,
	}
	m.led = NewChannel(ActuatorLed, queueSize, m, logger)
	m.vibrate = NewChannel(ActuatorVibrate, queueSize, m, logger)
	return m
}

// Start launches both workers
func (m *Manager) Start() {
	m.led.Start()
	m.vibrate.Start()
	m.logger.Debug("Actuator manager started")
}

// Stop gracefully stops both workers
func (m *Manager) Stop() {
	var wg sync.WaitGroup
	for _, ch := range []*Channel{m.led, m.vibrate} {
		wg.Add(1)
		go func(ch *Channel) {
			defer wg.Done()
			ch.Stop()
		}(ch)
	}
	wg.Wait()
	m.logger.Debug("Actuator manager stopped")
}

// Attach sets the port that workers write to
func (m *Manager) Attach(port serial.Port) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.port = port
}

// Detach clears the port if it is still the attached one
func (m *Manager) Detach(port serial.Port) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.port == port {
		m.port = nil
	}
}

// WriteCommand implements Writer
func (m *Manager) WriteCommand(data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if m.port == nil {
		return ErrNoTransport
	}
	if _, err := m.port.Write(data); err != nil {
		return fmt.Errorf("failed to write to port: %w", err)
	}
	if err := m.port.Flush(); err != nil {
		m.logger.Warn("Failed to flush port", "error", err)
	}
	return nil
}

// QueueLed encodes and enqueues an LED command
func (m *Manager) QueueLed(ctx context.Context, dots []int, action protocol.LedAction) error {
	data, err := protocol.EncodeLed(dots, action)
	if err != nil {
		return err
	}
	return m.led.Enqueue(ctx, data)
}

// QueueVibrate encodes and enqueues a vibration command
func (m *Manager) QueueVibrate(ctx context.Context, durationMs uint32) error {
	return m.vibrate.Enqueue(ctx, protocol.EncodeVibrate(durationMs))
}

// Pending returns queued command counts per actuator
func (m *Manager) Pending() map[string]int {
	return map[string]int{
		ActuatorLed:     m.led.Pending(),
		ActuatorVibrate: m.vibrate.Pending(),
	}
}

// GetStats returns statistics for both channels
func (m *Manager) GetStats() map[string]ChannelStats {
	return map[string]ChannelStats{
		ActuatorLed:     m.led.Stats(),
		ActuatorVibrate: m.vibrate.Stats(),
	}
}
