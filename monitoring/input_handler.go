package monitoring

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"braillekbd/braille"
	"braillekbd/keyboard"
	"braillekbd/translit"
)

// InputState is the view of a keyboard's editable input
type InputState struct {
	Keyboard       string   `json:"keyboard"`
	Available      bool     `json:"available"`
	BufferedMode   bool     `json:"buffered_mode"`
	Cells          []string `json:"cells"`
	Braille        string   `json:"braille"`
	Cursor         int      `json:"cursor"`
	PendingControl string   `json:"pending_control,omitempty"`
	Text           string   `json:"text"`
	TextOK         bool     `json:"text_ok"`
	Translit       string   `json:"translit"`
}

// SignalResponse carries a consumed control signal
type SignalResponse struct {
	Keyboard  string   `json:"keyboard"`
	Event     string   `json:"event,omitempty"`
	Found     bool     `json:"found"`
	Submitted []string `json:"submitted,omitempty"`
	Text      string   `json:"text,omitempty"`
	TextOK    bool     `json:"text_ok"`
	Batch     int      `json:"batch,omitempty"`
	// Superseded counts later Enters whose submitted cells were dropped
	Superseded int `json:"superseded,omitempty"`
}

// InputRequest is an edit posted to /api/input
type InputRequest struct {
	Keyboard string `json:"keyboard"`
	// Action is one of left, right, delete, clear, buffered, unbuffered,
	// next, resolve
	Action string `json:"action"`
}

// InputHandler exposes the input buffer and control queue
type InputHandler struct {
	hub      *keyboard.Hub
	translit string
	logger   *slog.Logger
}

// NewInputHandler creates a new input handler
func NewInputHandler(hub *keyboard.Hub, defaultTranslit string, logger *slog.Logger) *InputHandler {
	return &InputHandler{
		hub:      hub,
		translit: defaultTranslit,
		logger:   logger,
	}
}

// ServeHTTP handles input requests
func (h *InputHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		h.getInput(w, r)
	case http.MethodPost:
		h.editInput(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *InputHandler) getInput(w http.ResponseWriter, r *http.Request) {
	d, ok := lookup(h.hub, r.URL.Query().Get("keyboard"))
	if !ok {
		http.Error(w, "unknown keyboard", http.StatusNotFound)
		return
	}

	name := h.translit
	if q := r.URL.Query().Get("translit"); q != "" {
		name = q
	}
	tr, err := translit.Get(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(h.state(d, tr))
}

func (h *InputHandler) state(d *keyboard.Driver, tr translit.Transliterator) InputState {
	cells, cursor := d.Input()
	text, textOK := tr.Translate(cells)

	st := InputState{
		Keyboard:     d.Name(),
		Available:    d.Available(),
		BufferedMode: d.BufferedMode(),
		Cells:        braille.Strings(cells),
		Braille:      runes(cells),
		Cursor:       cursor,
		Text:         text,
		TextOK:       textOK,
		Translit:     tr.Name(),
	}
	if ev, ok := d.PeekControl(); ok {
		st.PendingControl = ev.String()
	}
	return st
}

func (h *InputHandler) editInput(w http.ResponseWriter, r *http.Request) {
	var req InputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, ok := lookup(h.hub, req.Keyboard)
	if !ok {
		http.Error(w, "unknown keyboard", http.StatusNotFound)
		return
	}
	tr, err := translit.Get(h.translit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var changed bool
	switch strings.ToLower(req.Action) {
	case "left":
		changed = d.MoveCursorLeft()
	case "right":
		changed = d.MoveCursorRight()
	case "delete":
		changed = d.DeleteAtCursor()
	case "clear":
		d.ClearInput()
		changed = true
	case "buffered":
		d.SetBufferedMode(true)
		changed = true
	case "unbuffered":
		d.SetBufferedMode(false)
		changed = true
	case "next":
		sig, found := d.NextSignal()
		json.NewEncoder(w).Encode(signalResponse(d.Name(), sig, found, 0, tr))
		return
	case "resolve":
		res, found := d.ResolveSignals()
		resp := signalResponse(d.Name(), res.Signal, found, res.Batch, tr)
		resp.Superseded = len(res.Superseded)
		json.NewEncoder(w).Encode(resp)
		return
	default:
		http.Error(w, "unknown action: "+req.Action, http.StatusBadRequest)
		return
	}

	h.logger.Debug("Input edited", "keyboard", d.Name(), "action", req.Action, "changed", changed)
	if !changed {
		w.WriteHeader(http.StatusConflict)
	}
	json.NewEncoder(w).Encode(h.state(d, tr))
}

func signalResponse(name string, sig keyboard.Signal, found bool, batch int, tr translit.Transliterator) SignalResponse {
	resp := SignalResponse{Keyboard: name, Found: found, Batch: batch}
	if !found {
		return resp
	}
	resp.Event = sig.Event.String()
	if len(sig.Submitted) > 0 {
		resp.Submitted = braille.Strings(sig.Submitted)
		resp.Text, resp.TextOK = tr.Translate(sig.Submitted)
	}
	return resp
}

func runes(cells []braille.Cell) string {
	var sb strings.Builder
	for _, c := range cells {
		sb.WriteRune(c.Rune())
	}
	return sb.String()
}
