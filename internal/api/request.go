package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carrental/internal/models"
	"carrental/internal/service"
)

const maxBodyBytes = 1 << 20

type bookingPayload struct {
	CarID     json.Number `json:"carId"`
	StartDate string      `json:"startDate"`
	EndDate   string      `json:"endDate"`
}

// parseBookingRequest accepts either a JSON body or carId/startDate/endDate
// query parameters. Body fields win; missing ones fall back to the query.
func parseBookingRequest(r *http.Request, loc *time.Location) (service.BookingRequest, error) {
	var payload bookingPayload

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return service.BookingRequest{}, service.InvalidInput("failed to read request body")
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return service.BookingRequest{}, service.InvalidInput("invalid JSON body")
		}
	}

	q := r.URL.Query()
	carID := firstNonEmpty(payload.CarID.String(), q.Get("carId"))
	start := firstNonEmpty(payload.StartDate, q.Get("startDate"))
	end := firstNonEmpty(payload.EndDate, q.Get("endDate"))

	if carID == "" || start == "" || end == "" {
		return service.BookingRequest{}, service.InvalidInput("missing required parameters")
	}

	id, err := strconv.ParseInt(carID, 10, 64)
	if err != nil || id <= 0 {
		return service.BookingRequest{}, service.InvalidInput("invalid carId")
	}

	startDate, err := models.ParseDate(start, loc)
	if err != nil {
		return service.BookingRequest{}, service.InvalidInput("invalid date format, expected YYYY-MM-DD")
	}
	endDate, err := models.ParseDate(end, loc)
	if err != nil {
		return service.BookingRequest{}, service.InvalidInput("invalid date format, expected YYYY-MM-DD")
	}

	return service.BookingRequest{CarID: id, StartDate: startDate, EndDate: endDate}, nil
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are ignored
// so clients can send back what they read, ids and timestamps included.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return service.InvalidInput("invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
