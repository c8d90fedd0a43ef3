package contest

import (
	"context"

	"contest-rooms/room"
)

type Transitioner interface {
	Transition(ctx context.Context, code, requesterID, problemID string) (room.Room, error)
}

// Coordinator starts a contest: it draws the shared problem and hands the
// owner-gated transition to the registry. A failed start is not retried.
type Coordinator struct {
	registry Transitioner
	picker   picker
}

func NewCoordinator(registry Transitioner, intn func(n int) int) *Coordinator {
	return &Coordinator{registry: registry, picker: newPicker(intn)}
}

func (c *Coordinator) Start(ctx context.Context, code, requesterID string, candidates []string) (room.Room, error) {
	problemID, err := c.picker.pick(candidates)
	if err != nil {
		return room.Room{}, err
	}
	return c.registry.Transition(ctx, code, requesterID, problemID)
}
