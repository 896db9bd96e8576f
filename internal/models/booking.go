package models

import "time"

// Booking binds a user and a car to a date range. StartDate and EndDate
// carry no time component.
type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CarID     int64     `json:"car_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Days returns the number of rental days covered by the booking. It counts
// calendar days, so a DST shift inside the range does not change the result.
func (b *Booking) Days() int {
	return int(calendarDay(b.EndDate).Sub(calendarDay(b.StartDate)).Hours() / 24)
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
