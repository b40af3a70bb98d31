package bookings

import (
	"context"
	"errors"

	"tourbook/internal/crud"
	"tourbook/internal/payments"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store is the persistence surface of the booking flows.
type Store interface {
	FindTour(ctx context.Context, id string) (*model.Tour, error)
	FindVisibleTour(ctx context.Context, id string) (*model.Tour, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateBooking(ctx context.Context, booking *model.Booking) error
	RecordEvent(ctx context.Context, eventID, eventType string) error
	ReserveSeat(ctx context.Context, tourID, date string, maxGroupSize int) (*model.Tour, error)
	MarkDateSoldOut(ctx context.Context, tourID, date string, maxGroupSize int) error
}

// Notifier emits the booking-confirmed event; delivery is best effort.
type Notifier interface {
	BookingConfirmed(ctx context.Context, email, tourID, bookingID, startDate string, price float64) error
}

type Service struct {
	store    Store
	provider payments.Provider
	notify   Notifier
	log      *logger.Logger
}

func NewService(store Store, provider payments.Provider, notify Notifier, log *logger.Logger) *Service {
	return &Service{store: store, provider: provider, notify: notify, log: log}
}

// CreateCheckoutSession starts a payment for one seat on one departure. The
// booking itself is only created later, by the webhook.
func (s *Service) CreateCheckoutSession(ctx context.Context, user *model.User, tourID, startDate, baseURL string) (*payments.CheckoutSession, error) {
	tour, err := s.store.FindVisibleTour(ctx, tourID)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) || errors.Is(err, crud.ErrInvalidID) {
			return nil, apperrors.NotFound("tour")
		}
		return nil, apperrors.Internal("Failed to load tour", err)
	}

	departure := findDeparture(tour, startDate)
	if departure == nil {
		return nil, apperrors.InvalidInput("No departure on that date for this tour")
	}
	if departure.SoldOut || departure.Participants >= tour.MaxGroupSize {
		return nil, apperrors.InvalidInput("This departure is sold out")
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutInput{
		TourID:        tour.ID,
		TourName:      tour.Name,
		TourSummary:   tour.Summary,
		ImageCover:    tour.ImageCover,
		Price:         tour.Price,
		StartDate:     startDate,
		CustomerEmail: user.Email,
		SuccessURL:    baseURL + "/api/v1/bookings/my-bookings",
		CancelURL:     baseURL + "/api/v1/tours/id/" + tour.ID,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to create checkout session", err)
	}

	return session, nil
}

// HandleEvent reconciles one verified webhook event. Every return path other
// than an infrastructure failure is deliberately nil: the provider retries on
// non-2xx, and retrying a business no-op (duplicate, unknown date, sold out)
// can never succeed.
func (s *Service) HandleEvent(ctx context.Context, event *payments.Event) error {
	if event.Type != payments.EventCheckoutCompleted {
		s.log.Debug("Ignoring webhook event", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	if err := s.store.RecordEvent(ctx, event.ID, event.Type); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.log.Info("Webhook event already processed", "event_id", event.ID)
			return nil
		}
		return apperrors.Internal("Failed to record webhook event", err)
	}

	tour, err := s.store.FindTour(ctx, event.TourID)
	if err != nil {
		s.log.Warn("Webhook references unknown tour",
			"event_id", event.ID, "tour_id", event.TourID)
		return nil
	}

	user, err := s.store.FindUserByEmail(ctx, event.CustomerEmail)
	if err != nil {
		s.log.Warn("Webhook references unknown customer",
			"event_id", event.ID, "email", event.CustomerEmail)
		return nil
	}

	updated, reserveErr := s.store.ReserveSeat(ctx, tour.ID, event.StartDate, tour.MaxGroupSize)
	if reserveErr != nil {
		if errors.Is(reserveErr, crud.ErrNotFound) {
			s.log.Warn("No seat reserved: departure missing, sold out or full",
				"event_id", event.ID, "tour_id", tour.ID, "start_date", event.StartDate)
			return nil
		}
		return apperrors.Internal("Failed to reserve seat", reserveErr)
	}

	if departure := findDeparture(updated, event.StartDate); departure != nil && departure.Participants >= tour.MaxGroupSize {
		if err := s.store.MarkDateSoldOut(ctx, tour.ID, event.StartDate, tour.MaxGroupSize); err != nil {
			s.log.Error("Failed to flag sold-out departure",
				"tour_id", tour.ID, "start_date", event.StartDate, "error", err)
		}
	}

	booking := &model.Booking{
		Tour:      tour.ID,
		User:      user.ID,
		Price:     float64(event.AmountTotal) / 100,
		Paid:      true,
		StartDate: event.StartDate,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return apperrors.Internal("Failed to create booking", err)
	}

	if err := s.notify.BookingConfirmed(ctx, user.Email, tour.ID, booking.ID, booking.StartDate, booking.Price); err != nil {
		s.log.Warn("Booking notification failed", "booking_id", booking.ID, "error", err)
	}

	s.log.Info("Booking reconciled",
		"event_id", event.ID, "booking_id", booking.ID,
		"tour_id", tour.ID, "user_id", user.ID)
	return nil
}

func findDeparture(tour *model.Tour, date string) *model.StartDate {
	for i := range tour.StartDates {
		if tour.StartDates[i].Date == date {
			return &tour.StartDates[i]
		}
	}
	return nil
}
