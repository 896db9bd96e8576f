package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carrental/internal/models"
)

const bookingColumns = `id, user_id, car_id, start_date, end_date, created_at`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		booking      models.Booking
		startDateStr string
		endDateStr   string
	)
	err := row.Scan(&booking.ID, &booking.UserID, &booking.CarID, &startDateStr, &endDateStr, &booking.CreatedAt)
	if err != nil {
		return nil, err
	}

	if booking.StartDate, err = time.Parse(models.DateLayout, startDateStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking start date %s: %w", startDateStr, err)
	}
	if booking.EndDate, err = time.Parse(models.DateLayout, endDateStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking end date %s: %w", endDateStr, err)
	}
	return &booking, nil
}

// CreateBookingWithLock reserves the car and inserts the booking in one
// transaction. The reservation is a compare-and-swap on cars.available, so
// of several concurrent callers for one car at most one succeeds; the rest
// get ErrNotAvailable. ErrNotFound is returned when the car does not exist.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	// 1. Flip availability only if it is still set
	result, err := tx.ExecContext(ctx,
		`UPDATE cars SET available = 0, version = version + 1, updated_at = ? WHERE id = ? AND available = 1`,
		now, booking.CarID)
	if err != nil {
		return fmt.Errorf("failed to reserve car in tx: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected in tx: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cars WHERE id = ?)`, booking.CarID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check car in tx: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNotAvailable
	}

	// 2. Create booking
	result, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, car_id, start_date, end_date, created_at) VALUES (?, ?, ?, ?, ?)`,
		booking.UserID,
		booking.CarID,
		booking.StartDate.Format(models.DateLayout),
		booking.EndDate.Format(models.DateLayout),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	return nil
}

// CancelBookingWithRelease deletes the booking and marks its car available in
// one transaction. The car flag is set unconditionally. It returns the
// deleted booking.
func (db *DB) CancelBookingWithRelease(ctx context.Context, bookingID int64) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking in tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, bookingID); err != nil {
		return nil, fmt.Errorf("failed to delete booking in tx: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE cars SET available = 1, version = version + 1, updated_at = ? WHERE id = ?`,
		time.Now(), booking.CarID)
	if err != nil {
		return nil, fmt.Errorf("failed to release car in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListBookingsByUser returns the user's bookings in insertion order.
func (db *DB) ListBookingsByUser(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY id`, userID)
}

// ListBookings returns all bookings in insertion order.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id`)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) UserHasBookings(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user bookings: %w", err)
	}
	return exists, nil
}
