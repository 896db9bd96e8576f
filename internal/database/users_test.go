package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"carrental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := &models.User{Username: "john", Email: "john@example.com", PasswordHash: "$2a$hash", Role: models.RoleAdmin}
	require.NoError(t, db.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	byID, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "john", byID.Username)
	assert.Equal(t, models.RoleAdmin, byID.Role)
	assert.Equal(t, "$2a$hash", byID.PasswordHash)

	byName, err := db.GetUserByUsername(ctx, "john")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = db.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, db.DeleteUser(ctx, user.ID))
	_, err = db.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteUser(ctx, user.ID), ErrNotFound)
}

func TestRegisterUser_FirstBecomesAdmin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	first := &models.User{Username: "first", Email: "first@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.RegisterUser(ctx, first))
	assert.Equal(t, models.RoleAdmin, first.Role)

	second := &models.User{Username: "second", Email: "second@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.RegisterUser(ctx, second))
	assert.Equal(t, models.RoleUser, second.Role)

	stored, err := db.GetUserByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, stored.Role)

	dup := &models.User{Username: "first", Email: "x@example.com", PasswordHash: "x", Role: models.RoleUser}
	assert.ErrorIs(t, db.RegisterUser(ctx, dup), ErrAlreadyExists)
}

func TestRegisterUser_ConcurrentFirstSignUps(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user%d", i)
			errs <- db.RegisterUser(ctx, &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: models.RoleUser})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, n)
	admins := 0
	for _, u := range users {
		if u.IsAdmin() {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seedUser(t, db, "dup")

	err := db.CreateUser(ctx, &models.User{Username: "dup", Email: "other@example.com", PasswordHash: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = db.CreateUser(ctx, &models.User{Username: "other", Email: "dup@example.com", PasswordHash: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")

	users, err := db.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)
}

func TestDeleteUser_WithBookings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := seedUser(t, db, "booker")
	car := seedCar(t, db, true)
	require.NoError(t, db.CreateBookingWithLock(ctx, &models.Booking{
		UserID: user.ID, CarID: car.ID, StartDate: date("2025-03-10"), EndDate: date("2025-03-12"),
	}))

	assert.ErrorIs(t, db.DeleteUser(ctx, user.ID), ErrUserHasBookings)
}
