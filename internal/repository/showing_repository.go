package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

const showingColumns = `s.id, s.room_id, s.title, s.starts_at, s.duration_minutes, s.created_at, s.updated_at`

// summaryQuery joins the room and totals the booked tickets per showing.
const summaryQuery = `SELECT ` + showingColumns + `, r.name, r.capacity,
       (SELECT COALESCE(SUM(res.tickets), 0) FROM reservations res WHERE res.showing_id = s.id)
FROM showings s
JOIN rooms r ON r.id = s.room_id`

func scanShowing(row interface{ Scan(...any) error }) (model.Showing, error) {
	var sh model.Showing
	err := row.Scan(&sh.ID, &sh.RoomID, &sh.Title, &sh.StartsAt, &sh.DurationMinutes, &sh.CreatedAt, &sh.UpdatedAt)
	return sh, err
}

func scanSummary(row interface{ Scan(...any) error }) (model.ShowingSummary, error) {
	var sum model.ShowingSummary
	sh := &sum.Showing
	err := row.Scan(&sh.ID, &sh.RoomID, &sh.Title, &sh.StartsAt, &sh.DurationMinutes, &sh.CreatedAt, &sh.UpdatedAt,
		&sum.RoomName, &sum.RoomCapacity, &sum.BookedTickets)
	return sum, err
}

// GetShowing returns a showing by ID or model.ErrShowingNotFound.
func (s *Store) GetShowing(ctx context.Context, id uint64) (model.Showing, error) {
	const q = `SELECT ` + showingColumns + ` FROM showings s WHERE s.id = ?`
	return s.getShowing(ctx, q, id)
}

// GetShowingForUpdate is GetShowing with the row locked until the
// transaction ends.  Every reservation change in a showing serializes on
// this lock.
func (s *Store) GetShowingForUpdate(ctx context.Context, id uint64) (model.Showing, error) {
	const q = `SELECT ` + showingColumns + ` FROM showings s WHERE s.id = ? FOR UPDATE`
	return s.getShowing(ctx, q, id)
}

func (s *Store) getShowing(ctx context.Context, q string, id uint64) (model.Showing, error) {
	sh, err := scanShowing(s.q(ctx).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Showing{}, model.ErrShowingNotFound
		}
		return model.Showing{}, fmt.Errorf("get showing %d: %w", id, err)
	}
	return sh, nil
}

// GetShowingSummary returns a showing with its room and booked total.
func (s *Store) GetShowingSummary(ctx context.Context, id uint64) (model.ShowingSummary, error) {
	const q = summaryQuery + ` WHERE s.id = ?`
	sum, err := scanSummary(s.q(ctx).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ShowingSummary{}, model.ErrShowingNotFound
		}
		return model.ShowingSummary{}, fmt.Errorf("get showing summary %d: %w", id, err)
	}
	return sum, nil
}

// ListShowingsByRoom returns the showings in a room ordered by start.
func (s *Store) ListShowingsByRoom(ctx context.Context, roomID uint64) ([]model.Showing, error) {
	const q = `SELECT ` + showingColumns + ` FROM showings s WHERE s.room_id = ? ORDER BY s.starts_at, s.id`
	rows, err := s.q(ctx).QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, fmt.Errorf("list showings in room %d: %w", roomID, err)
	}
	defer rows.Close()

	var out []model.Showing
	for rows.Next() {
		sh, err := scanShowing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan showing: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate showings: %w", err)
	}
	return out, nil
}

// ListShowingSummaries returns the showings matching filter ordered by
// start.  Zero-valued filter fields match everything.
func (s *Store) ListShowingSummaries(ctx context.Context, filter model.ShowingFilter) ([]model.ShowingSummary, error) {
	var (
		where []string
		args  []any
	)
	if filter.RoomID != 0 {
		where = append(where, "s.room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Title != "" {
		where = append(where, "s.title = ?")
		args = append(args, filter.Title)
	}
	q := summaryQuery
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY s.starts_at, s.id"

	rows, err := s.q(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list showings: %w", err)
	}
	defer rows.Close()

	out := []model.ShowingSummary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan showing: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate showings: %w", err)
	}
	return out, nil
}

// CreateShowing inserts sh and reads back its ID and timestamps.
func (s *Store) CreateShowing(ctx context.Context, sh *model.Showing) error {
	const q = `INSERT INTO showings (room_id, title, starts_at, duration_minutes) VALUES (?, ?, ?, ?)`
	res, err := s.q(ctx).ExecContext(ctx, q, sh.RoomID, sh.Title, sh.StartsAt.UTC(), sh.DurationMinutes)
	if err != nil {
		if isMissingParent(err) {
			return model.ErrRoomNotFound
		}
		return fmt.Errorf("insert showing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert showing: %w", err)
	}
	created, err := s.GetShowing(ctx, uint64(id))
	if err != nil {
		return err
	}
	*sh = created
	return nil
}

// UpdateShowing overwrites title, start, duration and room of sh.ID.
func (s *Store) UpdateShowing(ctx context.Context, sh *model.Showing) error {
	const q = `UPDATE showings
               SET room_id = ?, title = ?, starts_at = ?, duration_minutes = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	if _, err := s.q(ctx).ExecContext(ctx, q, sh.RoomID, sh.Title, sh.StartsAt.UTC(), sh.DurationMinutes, sh.ID); err != nil {
		if isMissingParent(err) {
			return model.ErrRoomNotFound
		}
		return fmt.Errorf("update showing %d: %w", sh.ID, err)
	}
	// affected rows stay zero when nothing changed, so re-read instead
	updated, err := s.GetShowing(ctx, sh.ID)
	if err != nil {
		return err
	}
	*sh = updated
	return nil
}

// DeleteShowing removes a showing.  Its reservations go with it through
// the ON DELETE CASCADE foreign key.
func (s *Store) DeleteShowing(ctx context.Context, id uint64) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM showings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete showing %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrShowingNotFound
	}
	return nil
}
