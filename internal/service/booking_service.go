package service

import (
	"context"
	"errors"
	"time"

	"carrental/internal/database"
	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/metrics"
	"carrental/internal/models"

	"github.com/rs/zerolog"
)

const (
	syncTaskUpsert = "upsert"
	syncTaskDelete = "delete"
)

// BookingRequest is the single input contract of BookingService.Create.
type BookingRequest struct {
	CarID     int64
	StartDate time.Time
	EndDate   time.Time
}

type BookingService struct {
	repo         domain.Repository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	location     *time.Location
	clock        func() time.Time
	logger       *zerolog.Logger
}

type BookingOption func(*BookingService)

// WithClock overrides the source of "today".
func WithClock(clock func() time.Time) BookingOption {
	return func(s *BookingService) { s.clock = clock }
}

// WithLocation sets the time zone calendar dates are evaluated in.
func WithLocation(loc *time.Location) BookingOption {
	return func(s *BookingService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, logger *zerolog.Logger, opts ...BookingOption) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &BookingService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		location:     time.UTC,
		clock:        time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books a car for requesterID. Preconditions are checked in order and
// the first failure is returned; the reservation itself is a single
// compare-and-swap transaction in the store.
func (s *BookingService) Create(ctx context.Context, requesterID int64, req BookingRequest) (booking *models.Booking, err error) {
	defer func() { metrics.IncBooking("create", outcome(err)) }()

	if _, err := s.repo.GetUserByID(ctx, requesterID); err != nil {
		return nil, storeError(err, "user not found", "failed to load user")
	}

	car, err := s.repo.GetCar(ctx, req.CarID)
	if err != nil {
		return nil, storeError(err, "car not found", "failed to load car")
	}
	if !car.Available {
		return nil, Conflict("car is not available")
	}

	start := s.calendarDate(req.StartDate)
	end := s.calendarDate(req.EndDate)
	today := models.TruncateToDate(s.clock().In(s.location))

	if start.Before(today) {
		return nil, InvalidInput("start date cannot be in the past")
	}
	if !end.After(start) {
		return nil, InvalidInput("end date must be after start date")
	}

	booking = &models.Booking{
		UserID:    requesterID,
		CarID:     car.ID,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.CreateBookingWithLock(ctx, booking); err != nil {
		switch {
		case errors.Is(err, database.ErrNotAvailable):
			return nil, Conflict("car is not available")
		case errors.Is(err, database.ErrNotFound):
			return nil, NotFound("car not found")
		}
		return nil, Internal("failed to create booking", err)
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("user_id", requesterID).
		Int64("car_id", car.ID).
		Str("start_date", models.FormatDate(start)).
		Str("end_date", models.FormatDate(end)).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, booking, car, requesterID)
	s.enqueueSync(ctx, syncTaskUpsert, booking)

	return booking, nil
}

// Cancel deletes the requester's own booking and releases the car.
func (s *BookingService) Cancel(ctx context.Context, requesterID, bookingID int64) (err error) {
	defer func() { metrics.IncBooking("cancel", outcome(err)) }()

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return storeError(err, "booking not found", "failed to load booking")
	}
	if booking.UserID != requesterID {
		return Forbidden("access denied")
	}

	deleted, err := s.repo.CancelBookingWithRelease(ctx, bookingID)
	if err != nil {
		return storeError(err, "booking not found", "failed to cancel booking")
	}

	s.logger.Info().Int64("booking_id", bookingID).Int64("user_id", requesterID).Int64("car_id", deleted.CarID).Msg("booking cancelled")

	s.publishEvent(events.EventBookingCancelled, deleted, nil, requesterID)
	s.enqueueSync(ctx, syncTaskDelete, deleted)

	return nil
}

func (s *BookingService) ListForUser(ctx context.Context, userID int64) ([]*models.Booking, error) {
	bookings, err := s.repo.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, Internal("failed to list bookings", err)
	}
	return bookings, nil
}

func (s *BookingService) ListAll(ctx context.Context) ([]*models.Booking, error) {
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, Internal("failed to list bookings", err)
	}
	return bookings, nil
}

// GetByID returns any booking; ownership is not checked.
func (s *BookingService) GetByID(ctx context.Context, bookingID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "booking not found", "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, car *models.Car, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		CarID:       booking.CarID,
		CarName:     car.DisplayName(),
		StartDate:   models.FormatDate(booking.StartDate),
		EndDate:     models.FormatDate(booking.EndDate),
		ChangedByID: changedByID,
		OccurredAt:  s.clock(),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, taskType string, booking *models.Booking) {
	if s.sheetsWorker == nil {
		return
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

// storeError maps store sentinels onto service kinds.
func storeError(err error, notFound, internal string) error {
	if errors.Is(err, database.ErrNotFound) {
		return NotFound(notFound)
	}
	return Internal(internal, err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}
