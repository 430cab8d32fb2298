package keyboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"braillekbd/config"
	"braillekbd/serial"
)

// Hub owns one Driver per enabled keyboard endpoint
type Hub struct {
	drivers map[string]*Driver
	mocks   map[string]*serial.MockPort
	order   []string
	logger  *slog.Logger

	mu      sync.RWMutex
	onFault func(name string, err error)
}

// NewHub builds drivers for every enabled keyboard in cfg
func NewHub(cfg *config.Config, logger *slog.Logger) *Hub {
	h := &Hub{
		drivers: make(map[string]*Driver),
		mocks:   make(map[string]*serial.MockPort),
		logger:  logger,
	}

	for _, kb := range cfg.Keyboards {
		if !kb.Enabled {
			continue
		}

		opts := Options{
			Name:               kb.Name,
			Device:             kb.Device,
			Backend:            strings.ToLower(kb.Backend),
			BufferCapacity:     cfg.Driver.BufferCapacity,
			ControlCapacity:    cfg.Driver.ControlCapacity,
			ActuatorQueueSize:  cfg.Driver.ActuatorQueueSize,
			EnqueueTimeout:     cfg.Driver.GetEnqueueTimeout(),
			Settle:             kb.GetSettle(),
			Reconnect:          cfg.Recovery.Reconnect,
			ReconnectDelay:     cfg.Recovery.GetReconnectDelay(),
			MaxReconnectDelay:  cfg.Recovery.GetMaxReconnectDelay(),
			ExponentialBackoff: cfg.Recovery.ExponentialBackoff,
			OnFault:            h.fault,
			Logger:             logger,
		}

		switch opts.Backend {
		case config.BackendMock:
			mock := serial.NewMockPort(kb.Device)
			h.mocks[kb.Name] = mock
			opts.Open = func() (serial.Port, error) {
				mock.Reopen()
				return mock, nil
			}
			// No board to reset
			opts.Settle = 0
		default:
			opts.Open = serial.PortConfig{
				Device:   kb.Device,
				BaudRate: kb.BaudRate,
				DataBits: kb.DataBits,
				StopBits: kb.StopBits,
				Parity:   kb.Parity,
			}.Opener()
		}

		h.drivers[kb.Name] = New(opts)
		h.order = append(h.order, kb.Name)
	}

	return h
}

// OnFault registers a callback for transport faults on any keyboard
func (h *Hub) OnFault(fn func(name string, err error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFault = fn
}

func (h *Hub) fault(name string, err error) {
	h.mu.RLock()
	fn := h.onFault
	h.mu.RUnlock()
	if fn != nil {
		fn(name, err)
	}
}

// Start starts every driver. Keyboards that fail to open run degraded.
func (h *Hub) Start(ctx context.Context) error {
	if len(h.drivers) == 0 {
		return fmt.Errorf("no enabled keyboards configured")
	}

	for _, d := range h.Drivers() {
		if err := d.Start(ctx); err != nil {
			return fmt.Errorf("failed to start keyboard %s: %w", d.Name(), err)
		}
	}

	h.logger.Info("Keyboard hub started", "keyboards", len(h.drivers))
	return nil
}

// Stop stops every driver in parallel and waits for them
func (h *Hub) Stop() {
	h.logger.Info("Stopping keyboard hub")

	var wg sync.WaitGroup
	for _, d := range h.drivers {
		wg.Add(1)
		go func(d *Driver) {
			defer wg.Done()
			d.Stop()
		}(d)
	}
	wg.Wait()

	h.logger.Info("Keyboard hub stopped")
}

// Get returns the driver for name
func (h *Hub) Get(name string) (*Driver, bool) {
	d, ok := h.drivers[name]
	return d, ok
}

// Default returns the first configured driver, for callers that don't name
// a keyboard.
func (h *Hub) Default() (*Driver, bool) {
	if len(h.order) == 0 {
		return nil, false
	}
	return h.drivers[h.order[0]], true
}

// Mock returns the in-memory port behind a mock-backed keyboard
func (h *Hub) Mock(name string) (*serial.MockPort, bool) {
	m, ok := h.mocks[name]
	return m, ok
}

// Drivers returns all drivers in configuration order
func (h *Hub) Drivers() []*Driver {
	out := make([]*Driver, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.drivers[name])
	}
	return out
}

// Names returns the driver names sorted alphabetically
func (h *Hub) Names() []string {
	names := make([]string, 0, len(h.drivers))
	for name := range h.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns a snapshot of every driver
func (h *Hub) Infos() map[string]Info {
	infos := make(map[string]Info, len(h.drivers))
	for name, d := range h.drivers {
		infos[name] = d.Info()
	}
	return infos
}

// Count returns the number of drivers
func (h *Hub) Count() int {
	return len(h.drivers)
}

// AvailableCount returns how many drivers are connected
func (h *Hub) AvailableCount() int {
	n := 0
	for _, d := range h.drivers {
		if d.Available() {
			n++
		}
	}
	return n
}
