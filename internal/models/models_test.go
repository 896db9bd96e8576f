package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate(" 2025-03-12 ", nil)
	require.NoError(t, err)
	assert.Equal(t, 12, d.Day())

	_, err = ParseDate("10.03.2025", time.UTC)
	assert.Error(t, err)

	_, err = ParseDate("2025-03-10T10:00:00Z", time.UTC)
	assert.Error(t, err)
}

func TestTruncateToDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	in := time.Date(2025, 3, 10, 23, 59, 1, 5, loc)
	out := TruncateToDate(in)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), out)
	assert.Equal(t, loc, out.Location())
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "2025-03-15", FormatDate(time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)))
}

func TestBookingDays(t *testing.T) {
	b := &Booking{
		StartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 2, b.Days())
}

func TestBookingDays_AcrossDSTChange(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// Clocks go forward on 2025-03-30 and back on 2025-10-26.
	spring := &Booking{
		StartDate: time.Date(2025, 3, 30, 0, 0, 0, 0, berlin),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, berlin),
	}
	assert.Equal(t, 1, spring.Days())

	autumn := &Booking{
		StartDate: time.Date(2025, 10, 25, 0, 0, 0, 0, berlin),
		EndDate:   time.Date(2025, 10, 28, 0, 0, 0, 0, berlin),
	}
	assert.Equal(t, 3, autumn.Days())
}

func TestCarDisplayName(t *testing.T) {
	assert.Equal(t, "Toyota Corolla", (&Car{Make: "Toyota", Model: "Corolla"}).DisplayName())
	assert.Equal(t, "Toyota", (&Car{Make: "Toyota"}).DisplayName())
	var c *Car
	assert.Equal(t, "", c.DisplayName())
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	var u *User
	assert.False(t, u.IsAdmin())
}

func TestCarUpdateApply(t *testing.T) {
	car := &Car{Make: "Toyota", Model: "Corolla", Type: "sedan", PricePerDay: 50, Available: true}

	price := 65.0
	CarUpdate{PricePerDay: &price}.Apply(car)
	assert.Equal(t, 65.0, car.PricePerDay)
	assert.Equal(t, "Toyota", car.Make)
	assert.False(t, car.Available, "missing flag is written as false")

	yes := true
	model := "Camry"
	CarUpdate{Model: &model, Available: &yes}.Apply(car)
	assert.Equal(t, "Camry", car.Model)
	assert.True(t, car.Available)
}
