package redisstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"contest-rooms/code"
	"contest-rooms/room"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Store) {
	mr := miniredis.RunT(t)
	client := NewClient(Config{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, New(client, "")
}

func testRoom(code string) room.Room {
	return room.Room{
		Code:         code,
		OwnerID:      "u1",
		Participants: []room.Participant{{UserID: "u1", DisplayName: "Ada"}},
		Status:       room.StatusWaiting,
		CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Version:      1,
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRoom("AAAAAA")))
	assert.True(t, mr.Exists(DefaultPrefix+"AAAAAA"))

	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, testRoom("AAAAAA"), got)
}

func TestStore_InsertTakenCode(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRoom("AAAAAA")))
	other := testRoom("AAAAAA")
	other.OwnerID = "intruder"
	err := store.Insert(ctx, other)
	assert.ErrorIs(t, err, room.ErrCodeTaken)

	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
}

func TestStore_GetMissing(t *testing.T) {
	_, store := setupTestRedis(t)
	_, err := store.Get(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestStore_GetCorrupted(t *testing.T) {
	mr, store := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultPrefix+"AAAAAA", "{"))

	_, err := store.Get(context.Background(), "AAAAAA")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decode room AAAAAA")
}

func TestStore_UpdateChecksVersion(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, testRoom("AAAAAA")))

	next := testRoom("AAAAAA")
	next.Participants = append(next.Participants, room.Participant{UserID: "u2", DisplayName: "Grace"})
	next.Version = 2
	require.NoError(t, store.Update(ctx, next, 1))

	stale := testRoom("AAAAAA")
	stale.Version = 2
	err := store.Update(ctx, stale, 1)
	assert.ErrorIs(t, err, room.ErrVersionConflict)

	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Len(t, got.Participants, 2)
	assert.Equal(t, uint64(2), got.Version)

	missing := testRoom("BBBBBB")
	assert.ErrorIs(t, store.Update(ctx, missing, 0), room.ErrRoomNotFound)
}

func TestStore_ServerError(t *testing.T) {
	mr, store := setupTestRedis(t)
	mr.SetError("LOADING")

	err := store.Insert(context.Background(), testRoom("AAAAAA"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, room.ErrCodeTaken)
}

// Two registries sharing one Redis behave like two server processes: their
// in-process locks do not see each other, so the conditional write decides.
func TestStore_TransitionRaceAcrossRegistries(t *testing.T) {
	mr, store := setupTestRedis(t)
	other := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	ctx := context.Background()

	first := room.NewRegistry(store, code.NewGenerator())
	second := room.NewRegistry(other, code.NewGenerator())

	created, err := first.Create(ctx, "u1", "Ada")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		reg := first
		if i%2 == 1 {
			reg = second
		}
		wg.Add(1)
		go func(reg *room.Registry, i int) {
			defer wg.Done()
			_, err := reg.Transition(ctx, created.Code, "u1", fmt.Sprintf("p%d", i))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, room.ErrInvalidState)
		}(reg, i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	got, err := second.Get(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, room.StatusInProgress, got.Status)
	assert.Equal(t, uint64(2), got.Version)
}
