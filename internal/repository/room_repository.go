package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

const roomColumns = `id, name, capacity, created_at`

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var r model.Room
	err := row.Scan(&r.ID, &r.Name, &r.Capacity, &r.CreatedAt)
	return r, err
}

// GetRoom returns a room by ID or model.ErrRoomNotFound.
func (s *Store) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	return s.getRoom(ctx, q, id)
}

// GetRoomForUpdate is GetRoom with the row locked until the transaction
// ends.  Showing placements in a room serialize on this lock.
func (s *Store) GetRoomForUpdate(ctx context.Context, id uint64) (model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ? FOR UPDATE`
	return s.getRoom(ctx, q, id)
}

func (s *Store) getRoom(ctx context.Context, q string, id uint64) (model.Room, error) {
	r, err := scanRoom(s.q(ctx).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, model.ErrRoomNotFound
		}
		return model.Room{}, fmt.Errorf("get room %d: %w", id, err)
	}
	return r, nil
}

// ListRooms returns every room ordered by name.
func (s *Store) ListRooms(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms ORDER BY name, id`
	rows, err := s.q(ctx).QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return out, nil
}

// EnsureRooms inserts every room whose name is not present yet.  Rooms
// that already exist keep their stored capacity.
func (s *Store) EnsureRooms(ctx context.Context, rooms []model.Room) error {
	const q = `INSERT IGNORE INTO rooms (name, capacity) VALUES (?, ?)`
	for _, r := range rooms {
		if _, err := s.q(ctx).ExecContext(ctx, q, r.Name, r.Capacity); err != nil {
			return fmt.Errorf("ensure room %q: %w", r.Name, err)
		}
	}
	return nil
}
