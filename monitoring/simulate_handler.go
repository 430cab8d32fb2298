package monitoring

import (
	"encoding/json"
	"net/http"

	"braillekbd/braille"
	"braillekbd/keyboard"
	"braillekbd/protocol"
)

// SimulateRequest injects one device line into a mock keyboard. Line is
// sent verbatim; otherwise Dots or Control is rendered into a line.
type SimulateRequest struct {
	Keyboard string `json:"keyboard"`
	Line     string `json:"line,omitempty"`
	Dots     string `json:"dots,omitempty"`
	Control  string `json:"control,omitempty"`
}

// SimulateHandler feeds lines to mock-backed keyboards
type SimulateHandler struct {
	hub *keyboard.Hub
}

// NewSimulateHandler creates a new simulate handler
func NewSimulateHandler(hub *keyboard.Hub) *SimulateHandler {
	return &SimulateHandler{
		hub: hub,
	}
}

// ServeHTTP handles simulate requests
func (h *SimulateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, ok := lookup(h.hub, req.Keyboard)
	if !ok {
		http.Error(w, "unknown keyboard", http.StatusNotFound)
		return
	}
	mock, ok := h.hub.Mock(d.Name())
	if !ok {
		http.Error(w, "keyboard is not mock-backed", http.StatusConflict)
		return
	}

	line := req.Line
	switch {
	case line != "":
	case req.Dots != "":
		dots, err := protocol.ParseDotList(req.Dots)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		line = protocol.FormatCell(braille.MustFromDots(dots...))
	case req.Control != "":
		ev, ok := braille.ParseControlEvent(req.Control)
		if !ok {
			http.Error(w, "unknown control: "+req.Control, http.StatusBadRequest)
			return
		}
		line = protocol.FormatControl(ev)
	default:
		http.Error(w, "one of line, dots or control is required", http.StatusBadRequest)
		return
	}

	mock.Feed(line)
	json.NewEncoder(w).Encode(map[string]string{
		"keyboard": d.Name(),
		"line":     line,
	})
}
