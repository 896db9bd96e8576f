package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrNotAvailable           = errors.New("car is not available")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrAlreadyExists          = errors.New("record already exists")
	ErrCarHasBookings         = errors.New("car has bookings")
	ErrUserHasBookings        = errors.New("user has bookings")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
