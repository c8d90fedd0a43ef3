package contest

import (
	"context"
	"fmt"

	"contest-rooms/catalog"
	"contest-rooms/presence"
	"contest-rooms/room"

	"github.com/rs/zerolog"
)

// Identity is the caller as vouched for by the identity provider.
type Identity struct {
	UserID      string
	DisplayName string
}

type Catalog interface {
	ProblemCatalog
	Problems(ctx context.Context) ([]catalog.Problem, error)
}

// Service is the outward surface of the room engine.
type Service struct {
	registry    *room.Registry
	channel     *presence.Channel
	catalog     Catalog
	coordinator *Coordinator
	matchmaker  *Matchmaker
	logger      zerolog.Logger
}

type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	intn   func(n int) int
	logger zerolog.Logger
}

// WithRandom replaces the problem draw. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) ServiceOption {
	return func(o *serviceOptions) {
		o.intn = intn
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

func NewService(registry *room.Registry, channel *presence.Channel, problems Catalog, opts ...ServiceOption) *Service {
	o := serviceOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		registry:    registry,
		channel:     channel,
		catalog:     problems,
		coordinator: NewCoordinator(registry, o.intn),
		matchmaker:  NewMatchmaker(problems, o.intn),
		logger:      o.logger,
	}
}

func (s *Service) CreateRoom(ctx context.Context, who Identity) (room.Room, error) {
	return s.registry.Create(ctx, who.UserID, who.DisplayName)
}

func (s *Service) JoinRoom(ctx context.Context, code string, who Identity) (room.Room, error) {
	return s.registry.Join(ctx, code, who.UserID, who.DisplayName)
}

func (s *Service) GetRoom(ctx context.Context, code string) (room.Room, error) {
	return s.registry.Get(ctx, code)
}

// StartContest draws the problem from the catalog and starts the room.
func (s *Service) StartContest(ctx context.Context, code string, who Identity) (room.Room, error) {
	candidates, err := s.catalog.ListAvailableProblemIDs(ctx)
	if err != nil {
		return room.Room{}, fmt.Errorf("list problems: %w", err)
	}
	started, err := s.coordinator.Start(ctx, code, who.UserID, candidates)
	if err != nil {
		return room.Room{}, err
	}
	s.logger.Info().
		Str("room-code", code).
		Str("problem", started.ProblemID()).
		Int("participants", len(started.Participants)).
		Msg("Contest started")
	return started, nil
}

func (s *Service) CompleteContest(ctx context.Context, code string, who Identity) (room.Room, error) {
	return s.registry.Complete(ctx, code, who.UserID)
}

// SubscribeRoom watches code. onUpdate receives the current snapshot right
// away and every newer snapshot after it.
func (s *Service) SubscribeRoom(ctx context.Context, code string, onUpdate func(room.Room)) (*presence.Handle, error) {
	h := s.channel.Subscribe(code, onUpdate)
	current, err := s.registry.Get(ctx, code)
	if err != nil {
		s.channel.Unsubscribe(h)
		return nil, err
	}
	h.Offer(current)
	return h, nil
}

func (s *Service) Unsubscribe(h *presence.Handle) {
	s.channel.Unsubscribe(h)
}

func (s *Service) MatchOneRandom(ctx context.Context) (string, error) {
	return s.matchmaker.MatchOneRandom(ctx)
}

func (s *Service) Problems(ctx context.Context) ([]catalog.Problem, error) {
	return s.catalog.Problems(ctx)
}
