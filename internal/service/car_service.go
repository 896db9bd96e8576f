package service

import (
	"context"
	"errors"

	"carrental/internal/database"
	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CarService is the admin inventory surface plus the public catalogue reads.
type CarService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	validate *validator.Validate
	logger   *zerolog.Logger
}

func NewCarService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *CarService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CarService{
		repo:     repo,
		eventBus: eventBus,
		validate: newValidator(),
		logger:   logger,
	}
}

// AddCar persists a new car. New cars are always bookable.
func (s *CarService) AddCar(ctx context.Context, car *models.Car) (*models.Car, error) {
	if err := s.validate.Struct(car); err != nil {
		return nil, validationError(err)
	}

	car.Available = true
	if err := s.repo.CreateCar(ctx, car); err != nil {
		return nil, Internal("failed to create car", err)
	}

	s.logger.Info().Int64("car_id", car.ID).Str("name", car.DisplayName()).Msg("car added")
	s.publish(events.EventCarAdded, car)
	return car, nil
}

func (s *CarService) UpdateCar(ctx context.Context, id int64, update models.CarUpdate) (*models.Car, error) {
	if err := s.validate.Struct(update); err != nil {
		return nil, validationError(err)
	}

	car, err := s.repo.GetCar(ctx, id)
	if err != nil {
		return nil, storeError(err, "car not found", "failed to load car")
	}

	update.Apply(car)
	if err := s.validate.Struct(car); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.UpdateCar(ctx, car); err != nil {
		switch {
		case errors.Is(err, database.ErrConcurrentModification):
			return nil, Conflict("car was modified concurrently")
		case errors.Is(err, database.ErrNotFound):
			return nil, NotFound("car not found")
		}
		return nil, Internal("failed to update car", err)
	}

	s.logger.Info().Int64("car_id", car.ID).Bool("available", car.Available).Int64("version", car.Version).Msg("car updated")
	s.publish(events.EventCarUpdated, car)
	return car, nil
}

// DeleteCar removes a car that has never been booked.
func (s *CarService) DeleteCar(ctx context.Context, id int64) error {
	car, err := s.repo.GetCar(ctx, id)
	if err != nil {
		return storeError(err, "car not found", "failed to load car")
	}

	hasBookings, err := s.repo.CarHasBookings(ctx, id)
	if err != nil {
		return Internal("failed to check car bookings", err)
	}
	if hasBookings {
		return Conflict("car has bookings")
	}

	if err := s.repo.DeleteCar(ctx, id); err != nil {
		switch {
		case errors.Is(err, database.ErrCarHasBookings):
			return Conflict("car has bookings")
		case errors.Is(err, database.ErrNotFound):
			return NotFound("car not found")
		}
		return Internal("failed to delete car", err)
	}

	s.logger.Info().Int64("car_id", id).Msg("car deleted")
	s.publish(events.EventCarDeleted, car)
	return nil
}

func (s *CarService) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	car, err := s.repo.GetCar(ctx, id)
	if err != nil {
		return nil, storeError(err, "car not found", "failed to load car")
	}
	return car, nil
}

func (s *CarService) ListCars(ctx context.Context) ([]*models.Car, error) {
	cars, err := s.repo.ListCars(ctx)
	if err != nil {
		return nil, Internal("failed to list cars", err)
	}
	return cars, nil
}

func (s *CarService) ListAvailableCars(ctx context.Context) ([]*models.Car, error) {
	cars, err := s.repo.ListAvailableCars(ctx)
	if err != nil {
		return nil, Internal("failed to list cars", err)
	}
	return cars, nil
}

func (s *CarService) publish(eventType string, car *models.Car) {
	if s.eventBus == nil {
		return
	}
	payload := events.CarEventPayload{
		CarID:     car.ID,
		Name:      car.DisplayName(),
		Available: car.Available,
		Version:   car.Version,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("car_id", car.ID).Msg("publish event error")
	}
}
