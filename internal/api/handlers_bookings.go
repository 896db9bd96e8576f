package api

import (
	"net/http"
)

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())

	if !s.allowBookingAttempt(r, p.UserID) {
		writeError(w, http.StatusTooManyRequests, "too many booking attempts, try again later")
		return
	}

	req, err := parseBookingRequest(r, s.location)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	booking, err := s.bookings.Create(r.Context(), p.UserID, req)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Message: "Booking created successfully",
		Data:    s.singleBookingResponse(r.Context(), booking),
	})
}

// allowBookingAttempt applies the per-user attempt window. Store failures
// let the attempt through.
func (s *HTTPServer) allowBookingAttempt(r *http.Request, userID int64) bool {
	if s.attempts == nil || s.booking.AttemptsLimit <= 0 {
		return true
	}
	allowed, err := s.attempts.CheckRateLimit(r.Context(), userID, s.booking.AttemptsLimit, s.booking.Window())
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("booking attempt check failed")
		return true
	}
	return allowed
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	bookings, err := s.bookings.ListForUser(r.Context(), p.UserID)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "Bookings fetched successfully",
		Data:    s.bookingResponses(r.Context(), bookings),
	})
}

func (s *HTTPServer) handleAllBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListAll(r.Context())
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "All bookings fetched successfully",
		Data:    s.bookingResponses(r.Context(), bookings),
	})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	booking, err := s.bookings.GetByID(r.Context(), id)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "Booking fetched successfully",
		Data:    s.singleBookingResponse(r.Context(), booking),
	})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	if err := s.bookings.Cancel(r.Context(), p.UserID, id); err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Booking cancelled successfully"})
}
