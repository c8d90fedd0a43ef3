package room

import (
	"context"
	"errors"
	"time"

	"contest-rooms/code"

	"github.com/rs/zerolog"
)

// Conflicts only happen when another process wrote the same room through a
// shared store; the mutation is re-evaluated against the fresh state.
const maxConflictAttempts = 5

// Registry is the authoritative owner of room state. Mutations on the same
// code are serialized; mutations on different codes never wait on each other.
type Registry struct {
	store     Store
	codes     CodeAllocator
	publisher Publisher
	locks     *lockTable
	now       func() time.Time
	logger    zerolog.Logger
}

type Option func(*Registry)

func WithPublisher(p Publisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(store Store, codes CodeAllocator, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		codes:  codes,
		locks:  newLockTable(),
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Create(ctx context.Context, ownerID, displayName string) (Room, error) {
	if ownerID == "" {
		return Room{}, ErrInvalidIdentity
	}
	room := Room{
		OwnerID:      ownerID,
		Participants: []Participant{{UserID: ownerID, DisplayName: displayNameOrDefault(displayName)}},
		Status:       StatusWaiting,
		CreatedAt:    r.now().UTC(),
		Version:      1,
	}
	_, err := r.codes.Allocate(func(candidate string) (bool, error) {
		room.Code = candidate
		err := r.store.Insert(ctx, room)
		if errors.Is(err, ErrCodeTaken) {
			r.logger.Debug().Str("room-code", candidate).Msg("Room code collision")
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		if errors.Is(err, code.ErrExhaustedAttempts) {
			return Room{}, newCodeAllocationError(err)
		}
		return Room{}, err
	}
	r.logger.Info().Str("room-code", room.Code).Str("user-id", ownerID).Msg("Created room")
	r.publish(room)
	return room.Clone(), nil
}

// Join adds the user to the room. Joining twice returns the current snapshot
// without a new version.
func (r *Registry) Join(ctx context.Context, code, userID, displayName string) (Room, error) {
	if userID == "" {
		return Room{}, ErrInvalidIdentity
	}
	return r.mutate(ctx, code, func(room *Room) (bool, error) {
		if room.HasParticipant(userID) {
			return false, nil
		}
		room.Participants = append(room.Participants, Participant{UserID: userID, DisplayName: displayNameOrDefault(displayName)})
		return true, nil
	})
}

// Transition moves a waiting room to InProgress with problemID assigned.
// Only the owner may do it and only once.
func (r *Registry) Transition(ctx context.Context, code, requesterID, problemID string) (Room, error) {
	if problemID == "" {
		return Room{}, ErrInvalidProblem
	}
	return r.mutate(ctx, code, func(room *Room) (bool, error) {
		if room.OwnerID != requesterID {
			return false, newNotOwnerError(code, requesterID)
		}
		if room.Status != StatusWaiting {
			return false, newInvalidStateError(code, room.Status)
		}
		startedAt := r.now().UTC()
		problem := problemID
		room.Status = StatusInProgress
		room.AssignedProblemID = &problem
		room.StartedAt = &startedAt
		return true, nil
	})
}

// Complete closes a running contest.
func (r *Registry) Complete(ctx context.Context, code, requesterID string) (Room, error) {
	return r.mutate(ctx, code, func(room *Room) (bool, error) {
		if room.OwnerID != requesterID {
			return false, newNotOwnerError(code, requesterID)
		}
		if room.Status != StatusInProgress {
			return false, newInvalidStateError(code, room.Status)
		}
		room.Status = StatusCompleted
		return true, nil
	})
}

func (r *Registry) Get(ctx context.Context, code string) (Room, error) {
	return r.store.Get(ctx, code)
}

// mutate runs apply on a copy of the current room inside the room's critical
// section. apply reports whether it changed the room; unchanged rooms are
// returned as they are, without a version bump or a publish.
func (r *Registry) mutate(ctx context.Context, code string, apply func(*Room) (bool, error)) (Room, error) {
	unlock := r.locks.lock(code)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		var current Room
		current, err = r.store.Get(ctx, code)
		if err != nil {
			return Room{}, err
		}
		next := current.Clone()
		changed, applyErr := apply(&next)
		if applyErr != nil {
			return Room{}, applyErr
		}
		if !changed {
			return current, nil
		}
		next.Version = current.Version + 1
		err = r.store.Update(ctx, next, current.Version)
		if errors.Is(err, ErrVersionConflict) {
			r.logger.Warn().Str("room-code", code).Int("attempt", attempt).Msg("Room version conflict")
			continue
		}
		if err != nil {
			return Room{}, err
		}
		r.logger.Debug().Str("room-code", code).Uint64("version", next.Version).Str("status", string(next.Status)).Msg("Updated room")
		r.publish(next)
		return next.Clone(), nil
	}
	return Room{}, err
}

func (r *Registry) publish(room Room) {
	if r.publisher != nil {
		r.publisher.Publish(room.Clone())
	}
}

func displayNameOrDefault(name string) string {
	if name == "" {
		return DefaultDisplayName
	}
	return name
}
