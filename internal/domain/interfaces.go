package domain

import (
	"context"
	"time"

	"carrental/internal/models"
)

type CarRepository interface {
	CreateCar(ctx context.Context, car *models.Car) error
	GetCar(ctx context.Context, id int64) (*models.Car, error)
	ListCars(ctx context.Context) ([]*models.Car, error)
	ListAvailableCars(ctx context.Context) ([]*models.Car, error)
	UpdateCar(ctx context.Context, car *models.Car) error
	DeleteCar(ctx context.Context, id int64) error
	CarHasBookings(ctx context.Context, carID int64) (bool, error)
}

type BookingRepository interface {
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	CancelBookingWithRelease(ctx context.Context, bookingID int64) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID int64) ([]*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	RegisterUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Repository is the full store surface implemented by *database.DB.
type Repository interface {
	CarRepository
	BookingRepository
	UserRepository
}

// AttemptStore counts booking attempts per user inside a fixed window.
type AttemptStore interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID int64) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking) error
}
