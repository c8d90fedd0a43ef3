// Package pgstore keeps room records in PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"contest-rooms/room"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS contest_rooms (
	code                TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	participants        JSONB NOT NULL,
	status              TEXT NOT NULL,
	assigned_problem_id TEXT,
	created_at          TIMESTAMPTZ NOT NULL,
	started_at          TIMESTAMPTZ,
	version             BIGINT NOT NULL
)`

const (
	insertRoom = `INSERT INTO contest_rooms
	(code, owner_id, participants, status, assigned_problem_id, created_at, started_at, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (code) DO NOTHING`

	selectRoom = `SELECT code, owner_id, participants, status, assigned_problem_id, created_at, started_at, version
	FROM contest_rooms WHERE code = $1`

	updateRoom = `UPDATE contest_rooms
	SET participants = $2, status = $3, assigned_problem_id = $4, started_at = $5, version = $6
	WHERE code = $1 AND version = $7`

	roomExists = `SELECT EXISTS(SELECT 1 FROM contest_rooms WHERE code = $1)`
)

type Config struct {
	DSN      string
	MaxConns int
	MaxIdle  int
}

// Open connects to PostgreSQL and checks the connection.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create contest_rooms: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, r room.Room) error {
	participants, err := json.Marshal(r.Participants)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, insertRoom,
		r.Code, r.OwnerID, participants, string(r.Status),
		nullString(r.AssignedProblemID), r.CreatedAt, nullTime(r),
		int64(r.Version))
	if err != nil {
		return fmt.Errorf("insert room %s: %w", r.Code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return room.NewCodeTakenError(r.Code)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, code string) (room.Room, error) {
	var (
		r            room.Room
		participants []byte
		status       string
		problem      sql.NullString
		startedAt    sql.NullTime
		version      int64
	)
	err := s.db.QueryRowContext(ctx, selectRoom, code).Scan(
		&r.Code, &r.OwnerID, &participants, &status, &problem, &r.CreatedAt, &startedAt, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return room.Room{}, room.NewNotFoundError(code)
	}
	if err != nil {
		return room.Room{}, fmt.Errorf("get room %s: %w", code, err)
	}
	if err := json.Unmarshal(participants, &r.Participants); err != nil {
		return room.Room{}, fmt.Errorf("decode participants of %s: %w", code, err)
	}
	r.Status = room.Status(status)
	if problem.Valid {
		r.AssignedProblemID = &problem.String
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		r.StartedAt = &t
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.Version = uint64(version)
	return r, nil
}

// Update only matches the row while it is still at prevVersion.
func (s *Store) Update(ctx context.Context, r room.Room, prevVersion uint64) error {
	participants, err := json.Marshal(r.Participants)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, updateRoom,
		r.Code, participants, string(r.Status), nullString(r.AssignedProblemID), nullTime(r),
		int64(r.Version), int64(prevVersion))
	if err != nil {
		return fmt.Errorf("update room %s: %w", r.Code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, roomExists, r.Code).Scan(&exists); err != nil {
		return fmt.Errorf("check room %s: %w", r.Code, err)
	}
	if !exists {
		return room.NewNotFoundError(r.Code)
	}
	return room.NewVersionConflictError(r.Code, prevVersion)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(r room.Room) sql.NullTime {
	if r.StartedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *r.StartedAt, Valid: true}
}
