package contest

import (
	"context"
	"sync"
	"testing"
	"time"

	"contest-rooms/catalog"
	"contest-rooms/code"
	"contest-rooms/presence"
	"contest-rooms/room"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, problems ...string) *Service {
	t.Helper()
	channel := presence.NewChannel()
	t.Cleanup(channel.Close)
	registry := room.NewRegistry(room.NewMemoryStore(), code.NewGenerator(), room.WithPublisher(channel))
	return NewService(registry, channel, catalog.NewStatic(problems...), WithRandom(func(int) int { return 0 }))
}

type watcher struct {
	mu    sync.Mutex
	rooms []room.Room
}

func (w *watcher) onUpdate(r room.Room) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rooms = append(w.rooms, r)
}

func (w *watcher) latest() room.Room {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.rooms) == 0 {
		return room.Room{}
	}
	return w.rooms[len(w.rooms)-1]
}

func TestService_RoomLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, "p42", "p99")
	owner := Identity{UserID: "u1", DisplayName: "Ada"}
	guest := Identity{UserID: "u2", DisplayName: "Grace"}

	created, err := svc.CreateRoom(ctx, owner)
	require.NoError(t, err)

	w := &watcher{}
	h, err := svc.SubscribeRoom(ctx, created.Code, w.onUpdate)
	require.NoError(t, err)
	defer svc.Unsubscribe(h)
	assert.Eventually(t, func() bool { return w.latest().Version == 1 }, time.Second, 5*time.Millisecond)

	_, err = svc.JoinRoom(ctx, created.Code, guest)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(w.latest().Participants) == 2 }, time.Second, 5*time.Millisecond)

	_, err = svc.StartContest(ctx, created.Code, guest)
	assert.ErrorIs(t, err, room.ErrNotOwner)

	started, err := svc.StartContest(ctx, created.Code, owner)
	require.NoError(t, err)
	assert.Equal(t, "p42", started.ProblemID())
	assert.Eventually(t, func() bool { return w.latest().Status == room.StatusInProgress }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "p42", w.latest().ProblemID())

	_, err = svc.StartContest(ctx, created.Code, owner)
	assert.ErrorIs(t, err, room.ErrInvalidState)

	current, err := svc.GetRoom(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, "p42", current.ProblemID())

	done, err := svc.CompleteContest(ctx, created.Code, owner)
	require.NoError(t, err)
	assert.Equal(t, room.StatusCompleted, done.Status)
	assert.Eventually(t, func() bool { return w.latest().Status == room.StatusCompleted }, time.Second, 5*time.Millisecond)
}

func TestService_StartWithoutProblems(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	owner := Identity{UserID: "u1", DisplayName: "Ada"}

	created, err := svc.CreateRoom(ctx, owner)
	require.NoError(t, err)

	_, err = svc.StartContest(ctx, created.Code, owner)
	assert.ErrorIs(t, err, ErrNoProblemsAvailable)

	current, err := svc.GetRoom(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, room.StatusWaiting, current.Status)
	assert.Equal(t, uint64(1), current.Version)

	_, err = svc.MatchOneRandom(ctx)
	assert.ErrorIs(t, err, ErrNoProblemsAvailable)
}

func TestService_SubscribeUnknownRoom(t *testing.T) {
	channel := presence.NewChannel()
	defer channel.Close()
	registry := room.NewRegistry(room.NewMemoryStore(), code.NewGenerator(), room.WithPublisher(channel))
	svc := NewService(registry, channel, catalog.NewStatic("p1"))

	_, err := svc.SubscribeRoom(context.Background(), "ZZZZZZ", func(room.Room) {})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.Zero(t, channel.Subscribers("ZZZZZZ"))
}

func TestService_SubscribersNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, "p1")
	created, err := svc.CreateRoom(ctx, Identity{UserID: "owner"})
	require.NoError(t, err)

	var mu sync.Mutex
	var versions []uint64
	h, err := svc.SubscribeRoom(ctx, created.Code, func(r room.Room) {
		mu.Lock()
		versions = append(versions, r.Version)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer svc.Unsubscribe(h)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.JoinRoom(ctx, created.Code, Identity{UserID: string(rune('a' + i))})
		}(i)
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(versions) > 0 && versions[len(versions)-1] == 31
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}
}

func TestService_Problems(t *testing.T) {
	svc := newTestService(t, "find-maximum")
	problems, err := svc.Problems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Problem{{ID: "find-maximum", Name: "Find Maximum"}}, problems)
}
