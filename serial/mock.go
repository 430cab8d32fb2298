package serial

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// MockPort is an in-memory keyboard link. Tests feed device lines with
// Feed and inspect host commands with GetWrites.
type MockPort struct {
	mu       sync.Mutex
	cond     *sync.Cond
	inbound  bytes.Buffer
	buffer   bytes.Buffer
	device   string
	isOpen   bool
	writes   [][]byte
	writeErr error // If set, Write will return this error
	readErr  error // If set, Read will return this error once
}

// NewMockPort creates a new mock port
func NewMockPort(device string) *MockPort {
	p := &MockPort{
		device: device,
		isOpen: true,
		writes: make([][]byte, 0),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Feed queues newline-terminated lines for the reader
func (p *MockPort) Feed(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range lines {
		p.inbound.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			p.inbound.WriteByte('\n')
		}
	}
	p.cond.Broadcast()
}

// FeedRaw queues bytes exactly as given
func (p *MockPort) FeedRaw(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbound.Write(data)
	p.cond.Broadcast()
}

// Read blocks until fed data is available, an injected error is pending, or
// the port is closed.
func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.inbound.Len() == 0 && p.isOpen && p.readErr == nil {
		p.cond.Wait()
	}
	if p.readErr != nil {
		err := p.readErr
		p.readErr = nil
		return 0, err
	}
	if p.inbound.Len() > 0 {
		return p.inbound.Read(buf)
	}
	return 0, ErrPortClosed
}

// Write writes data to the mock port buffer
func (p *MockPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return 0, ErrPortClosed
	}

	if p.writeErr != nil {
		return 0, p.writeErr
	}

	// Store a copy of the data
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	p.writes = append(p.writes, dataCopy)

	return p.buffer.Write(data)
}

// Close closes the mock port and wakes any blocked reader
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
	p.cond.Broadcast()
	return nil
}

// Flush is a no-op for the mock port
func (p *MockPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen {
		return ErrPortClosed
	}
	return nil
}

// Device returns the mock device path
func (p *MockPort) Device() string {
	return p.device
}

// IsOpen returns true if the mock port is open
func (p *MockPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// GetWrittenData returns all data written to the mock port
func (p *MockPort) GetWrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.buffer.Bytes()...)
}

// GetWrites returns all individual write operations
func (p *MockPort) GetWrites() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		result[i] = make([]byte, len(w))
		copy(result[i], w)
	}
	return result
}

// WriteCount returns the number of writes so far
func (p *MockPort) WriteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

// Reset clears all written data
func (p *MockPort) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer.Reset()
	p.writes = make([][]byte, 0)
}

// SetWriteError sets an error to be returned on subsequent writes
func (p *MockPort) SetWriteError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// ClearWriteError clears any write error
func (p *MockPort) ClearWriteError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = nil
}

// InjectReadError makes the next Read fail with err, simulating a lost link
func (p *MockPort) InjectReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
	p.cond.Broadcast()
}

// Reopen reopens a closed mock port
func (p *MockPort) Reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = true
}

// MockOpener hands out the given ports in order, then fails
type MockOpener struct {
	mu    sync.Mutex
	ports []Port
	calls atomic.Int32
}

// NewMockOpener creates an opener that returns ports one per call. A nil
// entry makes that call fail.
func NewMockOpener(ports ...Port) *MockOpener {
	return &MockOpener{ports: ports}
}

// Open implements Opener
func (o *MockOpener) Open() (Port, error) {
	o.calls.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.ports) == 0 {
		return nil, fmt.Errorf("mock opener: no port available")
	}
	p := o.ports[0]
	o.ports = o.ports[1:]
	if p == nil {
		return nil, fmt.Errorf("mock opener: open refused")
	}
	return p, nil
}

// Calls returns how many times Open was called
func (o *MockOpener) Calls() int {
	return int(o.calls.Load())
}

// StreamPort implements Port over any io.ReadWriteCloser, such as a PTY
// slave or a socket.
type StreamPort struct {
	rw     io.ReadWriteCloser
	device string
	isOpen atomic.Bool
}

// NewStreamPort wraps rw
func NewStreamPort(device string, rw io.ReadWriteCloser) *StreamPort {
	p := &StreamPort{
		rw:     rw,
		device: device,
	}
	p.isOpen.Store(true)
	return p
}

// Read reads from the stream
func (p *StreamPort) Read(buf []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrPortClosed
	}
	n, err := p.rw.Read(buf)
	if err != nil && !p.IsOpen() {
		return n, ErrPortClosed
	}
	return n, err
}

// Write writes to the stream
func (p *StreamPort) Write(data []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrPortClosed
	}
	return p.rw.Write(data)
}

// Close closes the stream
func (p *StreamPort) Close() error {
	if !p.isOpen.CompareAndSwap(true, false) {
		return nil
	}
	return p.rw.Close()
}

// Flush is a no-op; streams are written through
func (p *StreamPort) Flush() error {
	if !p.IsOpen() {
		return ErrPortClosed
	}
	return nil
}

// Device returns the device/file path
func (p *StreamPort) Device() string {
	return p.device
}

// IsOpen returns true if the stream is open
func (p *StreamPort) IsOpen() bool {
	return p.isOpen.Load()
}
