package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"braillekbd/braille"
	"braillekbd/feedback"
	"braillekbd/keyboard"
	"braillekbd/protocol"
)

// FeedbackRequest asks for LED or vibration feedback. Exactly one of Leds,
// VibrateMs or Sequence is used, in that order of precedence.
type FeedbackRequest struct {
	Keyboard  string `json:"keyboard"`
	Leds      string `json:"leds,omitempty"`
	Action    string `json:"action,omitempty"`
	VibrateMs uint32 `json:"vibrate_ms,omitempty"`
	// Sequence lights dot groups in turn, e.g. "1,2;4,5"
	Sequence string `json:"sequence,omitempty"`
}

// FeedbackHandler queues actuator commands
type FeedbackHandler struct {
	ctx    context.Context
	hub    *keyboard.Hub
	step   time.Duration
	logger *slog.Logger
}

// NewFeedbackHandler creates a new feedback handler. Sequences run on ctx,
// not on the request.
func NewFeedbackHandler(ctx context.Context, hub *keyboard.Hub, step time.Duration, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		ctx:    ctx,
		hub:    hub,
		step:   step,
		logger: logger,
	}
}

// ServeHTTP handles feedback requests
func (h *FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, ok := lookup(h.hub, req.Keyboard)
	if !ok {
		http.Error(w, "unknown keyboard", http.StatusNotFound)
		return
	}

	switch {
	case req.Leds != "":
		dots, err := protocol.ParseDotList(req.Leds)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		action, err := protocol.ParseLedAction(req.Action)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := d.QueueLed(r.Context(), dots, action); err != nil {
			h.queueError(w, err)
			return
		}

	case req.VibrateMs > 0:
		if err := d.QueueVibrate(r.Context(), req.VibrateMs); err != nil {
			h.queueError(w, err)
			return
		}

	case req.Sequence != "":
		groups, err := feedback.ParseGroups(req.Sequence)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		done := feedback.NewSequencer(d, h.step, h.logger).PlayAsync(h.ctx, groups)
		go func() {
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Warn("LED sequence failed", "keyboard", d.Name(), "error", err)
			}
		}()
		w.WriteHeader(http.StatusAccepted)

	default:
		http.Error(w, "one of leds, vibrate_ms or sequence is required", http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "queued",
		"keyboard":  d.Name(),
		"available": d.Available(),
	})
}

func (h *FeedbackHandler) queueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, braille.ErrInvalidDot), errors.Is(err, protocol.ErrEmptyDotSet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
