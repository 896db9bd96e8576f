package database

import (
	"context"
	"testing"

	"carrental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarCRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	car := &models.Car{Make: "Tesla", Model: "Model 3", Type: "electric", PricePerDay: 120.5, ImageURL: "/img/t3.png", Available: true}
	require.NoError(t, db.CreateCar(ctx, car))
	assert.NotZero(t, car.ID)
	assert.Equal(t, int64(1), car.Version)

	got, err := db.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tesla", got.Make)
	assert.Equal(t, 120.5, got.PricePerDay)
	assert.True(t, got.Available)

	got.PricePerDay = 99
	got.Available = false
	require.NoError(t, db.UpdateCar(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	again, err := db.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(99), again.PricePerDay)
	assert.False(t, again.Available)

	require.NoError(t, db.DeleteCar(ctx, car.ID))
	_, err = db.GetCar(ctx, car.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCar_Conflicts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	car := seedCar(t, db, true)

	stale := *car
	require.NoError(t, db.UpdateCar(ctx, car))

	err := db.UpdateCar(ctx, &stale)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	missing := &models.Car{ID: 404, Make: "x", Model: "y", Type: "z", Version: 1}
	assert.ErrorIs(t, db.UpdateCar(ctx, missing), ErrNotFound)
}

func TestListCars(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	a := seedCar(t, db, true)
	b := seedCar(t, db, false)

	all, err := db.ListCars(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	available, err := db.ListAvailableCars(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, a.ID, available[0].ID)
}

func TestDeleteCar(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	assert.ErrorIs(t, db.DeleteCar(ctx, 12345), ErrNotFound)

	user := seedUser(t, db, "alice")
	car := seedCar(t, db, true)
	require.NoError(t, db.CreateBookingWithLock(ctx, &models.Booking{
		UserID: user.ID, CarID: car.ID, StartDate: date("2025-03-10"), EndDate: date("2025-03-12"),
	}))

	has, err := db.CarHasBookings(ctx, car.ID)
	require.NoError(t, err)
	assert.True(t, has)

	assert.ErrorIs(t, db.DeleteCar(ctx, car.ID), ErrCarHasBookings)
}
