package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"contest-rooms/room"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roomColumns = []string{"code", "owner_id", "participants", "status", "assigned_problem_id", "created_at", "started_at", "version"}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock, New(db)
}

func testRoom() room.Room {
	return room.Room{
		Code:         "AAAAAA",
		OwnerID:      "u1",
		Participants: []room.Participant{{UserID: "u1", DisplayName: "Ada"}},
		Status:       room.StatusWaiting,
		CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Version:      1,
	}
}

func TestMigrate(t *testing.T) {
	_, mock, store := setupMockDB(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS contest_rooms`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Success(t *testing.T) {
	_, mock, store := setupMockDB(t)
	r := testRoom()

	mock.ExpectExec(`INSERT INTO contest_rooms`).
		WithArgs("AAAAAA", "u1", sqlmock.AnyArg(), "Waiting", nil, r.CreatedAt, nil, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Insert(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_CodeTaken(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO contest_rooms`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Insert(context.Background(), testRoom())
	assert.ErrorIs(t, err, room.ErrCodeTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_Waiting(t *testing.T) {
	_, mock, store := setupMockDB(t)
	want := testRoom()

	rows := sqlmock.NewRows(roomColumns).
		AddRow("AAAAAA", "u1", []byte(`[{"userId":"u1","displayName":"Ada"}]`), "Waiting", nil, want.CreatedAt, nil, int64(1))
	mock.ExpectQuery(`SELECT code, owner_id`).WithArgs("AAAAAA").WillReturnRows(rows)

	got, err := store.Get(context.Background(), "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_InProgress(t *testing.T) {
	_, mock, store := setupMockDB(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	started := created.Add(time.Minute)

	rows := sqlmock.NewRows(roomColumns).
		AddRow("AAAAAA", "u1", []byte(`[{"userId":"u1","displayName":"Ada"},{"userId":"u2","displayName":"Grace"}]`), "InProgress", "p42", created, started, int64(3))
	mock.ExpectQuery(`SELECT code, owner_id`).WithArgs("AAAAAA").WillReturnRows(rows)

	got, err := store.Get(context.Background(), "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, room.StatusInProgress, got.Status)
	assert.Equal(t, "p42", got.ProblemID())
	require.NotNil(t, got.StartedAt)
	assert.True(t, started.Equal(*got.StartedAt))
	assert.Len(t, got.Participants, 2)
	assert.Equal(t, uint64(3), got.Version)
}

func TestGet_NotFound(t *testing.T) {
	_, mock, store := setupMockDB(t)
	mock.ExpectQuery(`SELECT code, owner_id`).WithArgs("ZZZZZZ").WillReturnRows(sqlmock.NewRows(roomColumns))

	_, err := store.Get(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestGet_DatabaseError(t *testing.T) {
	_, mock, store := setupMockDB(t)
	mock.ExpectQuery(`SELECT code, owner_id`).WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "AAAAAA")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, room.ErrRoomNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestUpdate_Success(t *testing.T) {
	_, mock, store := setupMockDB(t)
	r := testRoom()
	problem := "p42"
	started := r.CreatedAt.Add(time.Minute)
	r.Status = room.StatusInProgress
	r.AssignedProblemID = &problem
	r.StartedAt = &started
	r.Version = 2

	mock.ExpectExec(`UPDATE contest_rooms`).
		WithArgs("AAAAAA", sqlmock.AnyArg(), "InProgress", "p42", started, int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Update(context.Background(), r, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_VersionConflict(t *testing.T) {
	_, mock, store := setupMockDB(t)
	r := testRoom()
	r.Version = 2

	mock.ExpectExec(`UPDATE contest_rooms`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("AAAAAA").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.Update(context.Background(), r, 1)
	assert.ErrorIs(t, err, room.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_Missing(t *testing.T) {
	_, mock, store := setupMockDB(t)

	mock.ExpectExec(`UPDATE contest_rooms`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("AAAAAA").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := store.Update(context.Background(), testRoom(), 0)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
