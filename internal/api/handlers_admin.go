package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"carrental/internal/export"
	"carrental/internal/models"
)

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponses(users))
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.users.GetUserByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	rows, err := s.exportRows(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := s.now().In(s.location)
	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, rows, now); err != nil {
		s.logger.Error().Err(err).Msg("export bookings")
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}
	if s.exporter.Dir != "" {
		if _, err := s.exporter.Save(rows, now); err != nil {
			s.logger.Warn().Err(err).Msg("archive bookings export")
		}
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) exportRows(ctx context.Context) ([]export.Row, error) {
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	cars, err := s.cars.ListCars(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	carsByID := make(map[int64]*models.Car, len(cars))
	for _, c := range cars {
		carsByID[c.ID] = c
	}
	usersByID := make(map[int64]*models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	rows := make([]export.Row, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, export.Row{Booking: b, Car: carsByID[b.CarID], User: usersByID[b.UserID]})
	}
	return rows, nil
}
