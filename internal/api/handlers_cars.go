package api

import (
	"net/http"

	"carrental/internal/models"
)

type carPayload struct {
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Type        string  `json:"type"`
	PricePerDay float64 `json:"pricePerDay"`
	ImageURL    string  `json:"imageUrl"`
	Available   *bool   `json:"available"`
}

func (s *HTTPServer) handleListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.cars.ListCars(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCarResponses(cars))
}

func (s *HTTPServer) handleListAvailableCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.cars.ListAvailableCars(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCarResponses(cars))
}

func (s *HTTPServer) handleGetCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}
	car, err := s.cars.GetCar(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCarResponse(car))
}

// handleAddCar ignores any availability flag in the payload; new cars are
// always bookable.
func (s *HTTPServer) handleAddCar(w http.ResponseWriter, r *http.Request) {
	var req carPayload
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	car, err := s.cars.AddCar(r.Context(), &models.Car{
		Make:        req.Make,
		Model:       req.Model,
		Type:        req.Type,
		PricePerDay: req.PricePerDay,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCarResponse(car))
}

func (s *HTTPServer) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}

	var update models.CarUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeServiceError(w, err)
		return
	}

	car, err := s.cars.UpdateCar(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCarResponse(car))
}

func (s *HTTPServer) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}
	if err := s.cars.DeleteCar(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Car deleted successfully"})
}
