package serial

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ErrPortClosed is returned by reads and writes on a closed port
var ErrPortClosed = errors.New("port is closed")

// PortConfig contains serial port configuration settings
type PortConfig struct {
	Device      string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string // "none", "odd", "even", "mark", "space"
	ReadTimeout time.Duration
}

// Port defines the interface for a bidirectional keyboard link
type Port interface {
	io.ReadWriteCloser

	// Flush waits until all output has been transmitted
	Flush() error

	// Device returns the device path
	Device() string

	// IsOpen returns true if the port is currently open
	IsOpen() bool
}

// Opener opens a fresh Port. Drivers call it on start and on reconnect.
type Opener func() (Port, error)

// RealPort implements Port using a real serial port
type RealPort struct {
	port   serial.Port
	config PortConfig
	isOpen atomic.Bool
}

// Open opens a serial port with the given configuration
func Open(config PortConfig) (*RealPort, error) {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	port, err := serial.Open(config.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.Device, err)
	}

	// A finite timeout lets Read notice Close on platforms where Close does
	// not interrupt a pending read.
	timeout := config.ReadTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	p := &RealPort{
		port:   port,
		config: config,
	}
	p.isOpen.Store(true)
	return p, nil
}

// Opener returns an Opener bound to config
func (c PortConfig) Opener() Opener {
	return func() (Port, error) {
		return Open(c)
	}
}

// Read blocks until data arrives or the port is closed. Read timeouts are
// absorbed so that callers see either data or a terminal error.
func (p *RealPort) Read(buf []byte) (int, error) {
	for {
		if !p.IsOpen() {
			return 0, ErrPortClosed
		}
		n, err := p.port.Read(buf)
		if err != nil {
			if !p.IsOpen() {
				return 0, ErrPortClosed
			}
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

// Write writes data to the serial port
func (p *RealPort) Write(data []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrPortClosed
	}
	return p.port.Write(data)
}

// Close closes the serial port
func (p *RealPort) Close() error {
	if !p.isOpen.CompareAndSwap(true, false) {
		return nil
	}
	return p.port.Close()
}

// Flush waits until all output has been transmitted
func (p *RealPort) Flush() error {
	if !p.IsOpen() {
		return ErrPortClosed
	}
	return p.port.Drain()
}

// Device returns the device path
func (p *RealPort) Device() string {
	return p.config.Device
}

// IsOpen returns true if the port is currently open
func (p *RealPort) IsOpen() bool {
	return p.isOpen.Load()
}

// ListPorts returns a list of available serial ports
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// PortInfo holds details about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListDetailedPorts returns available serial ports with USB identifiers
func ListDetailedPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	result := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		result = append(result, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return result, nil
}

func convertStopBits(bits int) serial.StopBits {
	switch bits {
	case 1:
		return serial.OneStopBit
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}
