package keyboard

import (
	"context"
	"sync"
	"time"

	"braillekbd/braille"
)

// Signal is one queued control event. When an Enter drained a non-empty
// input buffer, Submitted holds exactly the cells it claimed.
type Signal struct {
	Event     braille.ControlEvent `json:"event"`
	Submitted []braille.Cell       `json:"-"`
	At        time.Time            `json:"at"`
}

// ControlQueue is a bounded FIFO of signals. When full, new signals are
// rejected and counted; queued signals are never evicted.
type ControlQueue struct {
	mu       sync.Mutex
	items    []Signal
	capacity int
	dropped  int64
	notify   chan struct{}
}

// NewControlQueue creates a queue holding at most capacity signals
func NewControlQueue(capacity int) *ControlQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ControlQueue{
		items:    make([]Signal, 0, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Offer appends sig. It returns false if the queue is full.
func (q *ControlQueue) Offer(sig Signal) bool {
	return q.offerWith(func() Signal { return sig })
}

// offerWith calls build only when there is room, while holding the queue
// lock, so whatever build does becomes visible together with the signal.
func (q *ControlQueue) offerWith(build func() Signal) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		q.dropped++
		return false
	}
	q.items = append(q.items, build())
	q.wake()
	return true
}

func (q *ControlQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Next removes and returns the oldest signal
func (q *ControlQueue) Next() (Signal, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Signal{}, false
	}
	sig := q.items[0]
	q.items[0] = Signal{}
	q.items = q.items[1:]
	return sig, true
}

// Peek returns the oldest signal without removing it
func (q *ControlQueue) Peek() (Signal, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Signal{}, false
	}
	return q.items[0], true
}

// Drain removes and returns every queued signal in FIFO order
func (q *ControlQueue) Drain() []Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Signal, len(q.items))
	copy(out, q.items)
	q.items = make([]Signal, 0, q.capacity)
	return out
}

// Wait returns the next signal, blocking until one arrives or ctx is done
func (q *ControlQueue) Wait(ctx context.Context) (Signal, error) {
	for {
		if sig, ok := q.Next(); ok {
			if q.Len() > 0 {
				q.wake()
			}
			return sig, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return Signal{}, ctx.Err()
		}
	}
}

// Len returns the number of queued signals
func (q *ControlQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many signals were rejected because the queue was full
func (q *ControlQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Resolve picks the signal a consumer should act on from a drained batch:
// the first Enter if any, otherwise the last signal. Cells submitted by any
// later Enter in the batch are not part of the result; Driver.ResolveSignals
// reports them.
func Resolve(batch []Signal) (Signal, bool) {
	i := resolveIndex(batch)
	if i < 0 {
		return Signal{}, false
	}
	return batch[i], true
}

func resolveIndex(batch []Signal) int {
	for i, sig := range batch {
		if sig.Event == braille.Enter {
			return i
		}
	}
	return len(batch) - 1
}

// Resolution is the outcome of resolving a drained batch
type Resolution struct {
	Signal Signal
	// Batch is the number of signals drained
	Batch int
	// Superseded holds the Enter signals, other than the chosen one, that
	// carried submitted cells
	Superseded []Signal
}

func resolve(batch []Signal) (Resolution, bool) {
	i := resolveIndex(batch)
	if i < 0 {
		return Resolution{}, false
	}

	res := Resolution{Signal: batch[i], Batch: len(batch)}
	for j, sig := range batch {
		if j != i && sig.Event == braille.Enter && len(sig.Submitted) > 0 {
			res.Superseded = append(res.Superseded, sig)
		}
	}
	return res, true
}
