package serial

import (
	"sync"
	"time"
)

// Stats tracks traffic for a serial port
type Stats struct {
	BytesSent     int64     `json:"bytes_sent"`
	BytesReceived int64     `json:"bytes_received"`
	Writes        int64     `json:"writes"`
	Errors        int64     `json:"errors"`
	LastWriteTime time.Time `json:"last_write_time"`
	LastReadTime  time.Time `json:"last_read_time"`
	OpenedAt      time.Time `json:"opened_at"`
}

// PortWithStats wraps a Port with statistics tracking
type PortWithStats struct {
	Port
	mu    sync.Mutex
	stats Stats
}

// NewPortWithStats creates a new port wrapper with statistics
func NewPortWithStats(port Port) *PortWithStats {
	return &PortWithStats{
		Port: port,
		stats: Stats{
			OpenedAt: time.Now(),
		},
	}
}

// Read reads from the port and tracks statistics
func (p *PortWithStats) Read(buf []byte) (int, error) {
	n, err := p.Port.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.stats.BytesReceived += int64(n)
		p.stats.LastReadTime = time.Now()
	}
	if err != nil && err != ErrPortClosed {
		p.stats.Errors++
	}
	return n, err
}

// Write writes data to the port and tracks statistics
func (p *PortWithStats) Write(data []byte) (int, error) {
	n, err := p.Port.Write(data)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.stats.Errors++
		return n, err
	}
	p.stats.BytesSent += int64(n)
	p.stats.Writes++
	p.stats.LastWriteTime = time.Now()
	return n, nil
}

// Stats returns a copy of the current statistics
func (p *PortWithStats) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
