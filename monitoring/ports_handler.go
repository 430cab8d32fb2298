package monitoring

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"braillekbd/serial"
)

// UARTInfo contains kernel-level information about an on-board UART
type UARTInfo struct {
	Device  string `json:"device"`
	UART    string `json:"uart"`
	Port    string `json:"port"`
	IRQ     int    `json:"irq"`
	TX      int64  `json:"tx"`
	RX      int64  `json:"rx"`
	Signals string `json:"signals"`
	Active  bool   `json:"active"`
}

// PortsResponse lists serial ports a keyboard could be attached to
type PortsResponse struct {
	Ports []serial.PortInfo `json:"ports"`
	UARTs []UARTInfo        `json:"uarts,omitempty"`
}

// PortsHandler handles requests for serial port discovery
type PortsHandler struct {
	list      func() ([]serial.PortInfo, error)
	uartsPath string
}

// NewPortsHandler creates a new ports handler
func NewPortsHandler() *PortsHandler {
	return &PortsHandler{
		list:      serial.ListDetailedPorts,
		uartsPath: "/proc/tty/driver/serial",
	}
}

// ServeHTTP handles port discovery requests
func (h *PortsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ports, err := h.list()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := PortsResponse{Ports: ports}

	// Needs root on most systems; USB keyboards don't show up here anyway
	if f, err := os.Open(h.uartsPath); err == nil {
		resp.UARTs, _ = parseUARTs(f)
		f.Close()
	}

	json.NewEncoder(w).Encode(resp)
}

// Example: "4: uart:16550A port:000002F0 irq:7 tx:1195 rx:1170 CTS|DSR|CD"
var uartLine = regexp.MustCompile(`^\s*(\d+):\s+uart:(\S+)\s+port:([0-9A-Fa-f]+)\s+irq:(\d+)\s+tx:(\d+)\s+rx:(\d+)(.*)$`)

func parseUARTs(r io.Reader) ([]UARTInfo, error) {
	var uarts []UARTInfo
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		matches := uartLine.FindStringSubmatch(scanner.Text())
		if len(matches) < 7 || matches[2] == "unknown" {
			continue
		}

		portNum, _ := strconv.Atoi(matches[1])
		irq, _ := strconv.Atoi(matches[4])
		tx, _ := strconv.ParseInt(matches[5], 10, 64)
		rx, _ := strconv.ParseInt(matches[6], 10, 64)
		signals := strings.TrimSpace(matches[7])

		// Active if the far end asserts a modem line or traffic flows both ways
		remote := strings.Contains(signals, "CTS") || strings.Contains(signals, "DSR") || strings.Contains(signals, "CD")

		uarts = append(uarts, UARTInfo{
			Device:  "/dev/ttyS" + strconv.Itoa(portNum),
			UART:    matches[2],
			Port:    "0x" + strings.ToUpper(matches[3]),
			IRQ:     irq,
			TX:      tx,
			RX:      rx,
			Signals: signals,
			Active:  remote || (tx > 0 && rx > 0),
		})
	}

	return uarts, scanner.Err()
}
