package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/showtime-allocator/internal/model"
)

const reservationColumns = `id, showing_id, name, tickets, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var r model.Reservation
	err := row.Scan(&r.ID, &r.ShowingID, &r.Name, &r.Tickets, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// GetReservation returns a reservation by ID or model.ErrReservationNotFound.
func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return s.getReservation(ctx, q, id)
}

// GetReservationForUpdate is GetReservation with the row locked until the
// transaction ends.
func (s *Store) GetReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
	return s.getReservation(ctx, q, id)
}

func (s *Store) getReservation(ctx context.Context, q string, id uint64) (model.Reservation, error) {
	r, err := scanReservation(s.q(ctx).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, model.ErrReservationNotFound
		}
		return model.Reservation{}, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return r, nil
}

// FindReservationByName returns the reservation name holds in a showing,
// or nil when there is none.  The name column uses a binary collation so
// the match is exact.
func (s *Store) FindReservationByName(ctx context.Context, showingID uint64, name string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE showing_id = ? AND name = ?`
	r, err := scanReservation(s.q(ctx).QueryRowContext(ctx, q, showingID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find reservation %q in showing %d: %w", name, showingID, err)
	}
	return &r, nil
}

// ListReservations returns a showing's reservations ordered by name.
func (s *Store) ListReservations(ctx context.Context, showingID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE showing_id = ? ORDER BY name, id`
	rows, err := s.q(ctx).QueryContext(ctx, q, showingID)
	if err != nil {
		return nil, fmt.Errorf("list reservations for showing %d: %w", showingID, err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}

// SumTickets totals a showing's tickets, skipping excludeIDs.
func (s *Store) SumTickets(ctx context.Context, showingID uint64, excludeIDs ...uint64) (int, error) {
	q := `SELECT COALESCE(SUM(tickets), 0) FROM reservations WHERE showing_id = ?`
	args := make([]any, 0, len(excludeIDs)+1)
	args = append(args, showingID)
	if len(excludeIDs) > 0 {
		q += ` AND id NOT IN (?` + strings.Repeat(`, ?`, len(excludeIDs)-1) + `)`
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	var total int
	if err := s.q(ctx).QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum tickets for showing %d: %w", showingID, err)
	}
	return total, nil
}

// CreateReservation inserts r and reads back its ID and timestamps.
func (s *Store) CreateReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations (showing_id, name, tickets) VALUES (?, ?, ?)`
	res, err := s.q(ctx).ExecContext(ctx, q, r.ShowingID, r.Name, r.Tickets)
	if err != nil {
		switch {
		case isDuplicateEntry(err):
			return model.ErrDuplicateClaimant
		case isMissingParent(err):
			return model.ErrShowingNotFound
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	created, err := s.GetReservation(ctx, uint64(id))
	if err != nil {
		return err
	}
	*r = created
	return nil
}

// UpdateReservation overwrites showing, name and tickets of r.ID.
func (s *Store) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	const q = `UPDATE reservations
               SET showing_id = ?, name = ?, tickets = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	if _, err := s.q(ctx).ExecContext(ctx, q, r.ShowingID, r.Name, r.Tickets, r.ID); err != nil {
		switch {
		case isDuplicateEntry(err):
			return model.ErrDuplicateClaimant
		case isMissingParent(err):
			return model.ErrShowingNotFound
		}
		return fmt.Errorf("update reservation %d: %w", r.ID, err)
	}
	updated, err := s.GetReservation(ctx, r.ID)
	if err != nil {
		return err
	}
	*r = updated
	return nil
}

// DeleteReservation removes a reservation.
func (s *Store) DeleteReservation(ctx context.Context, id uint64) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrReservationNotFound
	}
	return nil
}
