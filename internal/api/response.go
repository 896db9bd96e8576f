package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"carrental/internal/models"
	"carrental/internal/service"
)

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type carResponse struct {
	ID          int64     `json:"id"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Type        string    `json:"type"`
	PricePerDay float64   `json:"pricePerDay"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Available   bool      `json:"available"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type bookingResponse struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"userId"`
	CarID      int64        `json:"carId"`
	StartDate  string       `json:"startDate"`
	EndDate    string       `json:"endDate"`
	Days       int          `json:"days"`
	TotalPrice float64      `json:"totalPrice"`
	Car        *carResponse `json:"car,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

type signInResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newCarResponse(c *models.Car) *carResponse {
	if c == nil {
		return nil
	}
	return &carResponse{
		ID:          c.ID,
		Make:        c.Make,
		Model:       c.Model,
		Type:        c.Type,
		PricePerDay: c.PricePerDay,
		ImageURL:    c.ImageURL,
		Available:   c.Available,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func newCarResponses(cars []*models.Car) []*carResponse {
	out := make([]*carResponse, 0, len(cars))
	for _, c := range cars {
		out = append(out, newCarResponse(c))
	}
	return out
}

func newUserResponse(u *models.User) *userResponse {
	return &userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func newUserResponses(users []*models.User) []*userResponse {
	out := make([]*userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	return out
}

func newBookingResponse(b *models.Booking, car *models.Car) *bookingResponse {
	resp := &bookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		CarID:     b.CarID,
		StartDate: models.FormatDate(b.StartDate),
		EndDate:   models.FormatDate(b.EndDate),
		Days:      b.Days(),
		Car:       newCarResponse(car),
		CreatedAt: b.CreatedAt,
	}
	if car != nil {
		resp.TotalPrice = car.PricePerDay * float64(resp.Days)
	}
	return resp
}

// bookingResponses joins bookings with their cars using one catalogue read.
// A failed catalogue read degrades to responses without car details.
func (s *HTTPServer) bookingResponses(ctx context.Context, bookings []*models.Booking) []*bookingResponse {
	carsByID := make(map[int64]*models.Car)
	if len(bookings) > 0 {
		cars, err := s.cars.ListCars(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("load cars for booking response")
		}
		for _, c := range cars {
			carsByID[c.ID] = c
		}
	}

	out := make([]*bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, newBookingResponse(b, carsByID[b.CarID]))
	}
	return out
}

func (s *HTTPServer) singleBookingResponse(ctx context.Context, b *models.Booking) *bookingResponse {
	car, err := s.cars.GetCar(ctx, b.CarID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("car_id", b.CarID).Msg("load car for booking response")
	}
	return newBookingResponse(b, car)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps service error kinds onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForKind(service.KindOf(err)), service.Reason(err))
}

// writeBookingError keeps booking failures on 400, except ownership
// violations which answer 403.
func writeBookingError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if service.IsKind(err, service.KindForbidden) {
		status = http.StatusForbidden
	}
	writeError(w, status, service.Reason(err))
}

func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
