package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carrental/internal/models"
)

const carColumns = `id, make, model, type, price_per_day, image_url, available, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(row rowScanner) (*models.Car, error) {
	var car models.Car
	err := row.Scan(
		&car.ID, &car.Make, &car.Model, &car.Type, &car.PricePerDay, &car.ImageURL,
		&car.Available, &car.Version, &car.CreatedAt, &car.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (db *DB) CreateCar(ctx context.Context, car *models.Car) error {
	query := `INSERT INTO cars (make, model, type, price_per_day, image_url, available, version, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		car.Make, car.Model, car.Type, car.PricePerDay, car.ImageURL, car.Available, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	car.ID = id
	car.Version = 1
	car.CreatedAt = now
	car.UpdatedAt = now
	return nil
}

func (db *DB) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	car, err := scanCar(db.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return car, nil
}

func (db *DB) ListCars(ctx context.Context) ([]*models.Car, error) {
	return db.queryCars(ctx, `SELECT `+carColumns+` FROM cars ORDER BY id`)
}

func (db *DB) ListAvailableCars(ctx context.Context) ([]*models.Car, error) {
	return db.queryCars(ctx, `SELECT `+carColumns+` FROM cars WHERE available = 1 ORDER BY id`)
}

func (db *DB) queryCars(ctx context.Context, query string, args ...any) ([]*models.Car, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	cars := make([]*models.Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cars: %w", err)
	}
	return cars, nil
}

// UpdateCar replaces all mutable fields of the car, guarded by car.Version.
func (db *DB) UpdateCar(ctx context.Context, car *models.Car) error {
	query := `UPDATE cars SET make = ?, model = ?, type = ?, price_per_day = ?, image_url = ?,
	                 available = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		car.Make, car.Model, car.Type, car.PricePerDay, car.ImageURL, car.Available, now,
		car.ID, car.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := db.GetCar(ctx, car.ID); err != nil {
			return err
		}
		return ErrConcurrentModification
	}

	car.Version++
	car.UpdatedAt = now
	return nil
}

func (db *DB) DeleteCar(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCarHasBookings
		}
		return fmt.Errorf("failed to delete car: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) CarHasBookings(ctx context.Context, carID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE car_id = ?)`, carID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check car bookings: %w", err)
	}
	return exists, nil
}

func (db *DB) CountCars(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cars: %w", err)
	}
	return count, nil
}
