package presence

import (
	"sync"

	"contest-rooms/room"

	"github.com/rs/zerolog"
)

// Channel fans room snapshots out to everyone watching a room code.
type Channel struct {
	topics map[string]map[uint64]*Handle
	nextID uint64
	lock   sync.RWMutex
	logger zerolog.Logger
}

type Option func(*Channel)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		topics: make(map[string]map[uint64]*Handle),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers onUpdate for snapshots of code. onUpdate runs on the
// handle's own goroutine, never concurrently with itself, and only with
// strictly increasing versions. It must not call Unsubscribe on its own handle.
func (c *Channel) Subscribe(code string, onUpdate func(room.Room)) *Handle {
	c.lock.Lock()
	c.nextID++
	h := newHandle(c.nextID, code, onUpdate)
	subscribers, ok := c.topics[code]
	if !ok {
		subscribers = make(map[uint64]*Handle)
		c.topics[code] = subscribers
	}
	subscribers[h.id] = h
	c.lock.Unlock()

	go h.run()
	c.logger.Debug().Str("room-code", code).Uint64("handle", h.id).Msg("Subscribed")
	return h
}

// Unsubscribe stops deliveries to h. Once it returns, onUpdate is not running
// and will not be called again.
func (c *Channel) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}
	c.lock.Lock()
	if subscribers, ok := c.topics[h.code]; ok {
		delete(subscribers, h.id)
		if len(subscribers) == 0 {
			delete(c.topics, h.code)
		}
	}
	c.lock.Unlock()

	h.stop()
	c.logger.Debug().Str("room-code", h.code).Uint64("handle", h.id).Msg("Unsubscribed")
}

// Publish offers r to every current subscriber of r.Code. It never blocks on
// slow subscribers.
func (c *Channel) Publish(r room.Room) {
	c.lock.RLock()
	subscribers := make([]*Handle, 0, len(c.topics[r.Code]))
	for _, h := range c.topics[r.Code] {
		subscribers = append(subscribers, h)
	}
	c.lock.RUnlock()

	for _, h := range subscribers {
		h.Offer(r)
	}
}

func (c *Channel) Subscribers(code string) int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.topics[code])
}

// Close unsubscribes everyone.
func (c *Channel) Close() {
	c.lock.Lock()
	var handles []*Handle
	for _, subscribers := range c.topics {
		for _, h := range subscribers {
			handles = append(handles, h)
		}
	}
	c.topics = make(map[string]map[uint64]*Handle)
	c.lock.Unlock()

	for _, h := range handles {
		h.stop()
	}
}
