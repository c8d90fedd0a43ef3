package presence

import (
	"sync"

	"contest-rooms/room"
)

// Handle is one subscription. Its mailbox holds at most the newest pending
// snapshot, so a slow subscriber skips versions instead of queueing them.
type Handle struct {
	id       uint64
	code     string
	onUpdate func(room.Room)

	mu      sync.Mutex
	pending *room.Room
	latest  uint64 // newest version queued or applied
	closed  bool

	delivering sync.Mutex
	applied    uint64

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newHandle(id uint64, code string, onUpdate func(room.Room)) *Handle {
	return &Handle{
		id:       id,
		code:     code,
		onUpdate: onUpdate,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (h *Handle) Code() string {
	return h.code
}

// Done is closed once the handle stops receiving, either through Unsubscribe
// or because the channel was closed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Offer queues r for delivery unless a snapshot at the same or a newer
// version was already queued or applied.
func (h *Handle) Offer(r room.Room) {
	if r.Code != h.code {
		return
	}
	h.mu.Lock()
	if h.closed || r.Version <= h.latest {
		h.mu.Unlock()
		return
	}
	snapshot := r.Clone()
	h.pending = &snapshot
	h.latest = r.Version
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Handle) run() {
	for {
		select {
		case <-h.done:
			return
		case <-h.wake:
		}
		if !h.deliver() {
			return
		}
	}
}

func (h *Handle) deliver() bool {
	h.delivering.Lock()
	defer h.delivering.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	snapshot := h.pending
	h.pending = nil
	h.mu.Unlock()

	if snapshot == nil || snapshot.Version <= h.applied {
		return true
	}
	h.onUpdate(*snapshot)
	h.applied = snapshot.Version
	return true
}

func (h *Handle) stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.pending = nil
		h.mu.Unlock()
		close(h.done)
		// wait for an in-flight onUpdate to return
		h.delivering.Lock()
		h.delivering.Unlock()
	})
}
