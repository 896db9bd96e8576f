package models

import "time"

type Car struct {
	ID          int64     `json:"id" yaml:"id"`
	Make        string    `json:"make" yaml:"make" validate:"required,max=64"`
	Model       string    `json:"model" yaml:"model" validate:"required,max=64"`
	Type        string    `json:"type" yaml:"type" validate:"required,max=32"`
	PricePerDay float64   `json:"price_per_day" yaml:"price_per_day" validate:"gte=0"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url"`
	Available   bool      `json:"available" yaml:"available"`
	Version     int64     `json:"version" yaml:"-"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// DisplayName is used in exports and the sheets mirror.
func (c *Car) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Model == "" {
		return c.Make
	}
	return c.Make + " " + c.Model
}

// CarUpdate is a partial car edit. Nil fields keep the stored value, except
// Available: a nil flag is written as false.
type CarUpdate struct {
	Make        *string  `json:"make" validate:"omitempty,max=64"`
	Model       *string  `json:"model" validate:"omitempty,max=64"`
	Type        *string  `json:"type" validate:"omitempty,max=32"`
	PricePerDay *float64 `json:"pricePerDay" validate:"omitempty,gte=0"`
	ImageURL    *string  `json:"imageUrl"`
	Available   *bool    `json:"available"`
}

// Apply writes the update onto car in place.
func (u CarUpdate) Apply(car *Car) {
	if u.Make != nil {
		car.Make = *u.Make
	}
	if u.Model != nil {
		car.Model = *u.Model
	}
	if u.Type != nil {
		car.Type = *u.Type
	}
	if u.PricePerDay != nil {
		car.PricePerDay = *u.PricePerDay
	}
	if u.ImageURL != nil {
		car.ImageURL = *u.ImageURL
	}
	car.Available = u.Available != nil && *u.Available
}
