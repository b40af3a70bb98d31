package notify

import (
	"context"
	"fmt"

	"tourbook/pkg/kafka"
	"tourbook/pkg/logger"
)

// Event types carried on the notifications topic. A downstream worker turns
// these into emails; the API only guarantees the event is on the log.
const (
	EventWelcome          = "user.welcome"
	EventPasswordReset    = "user.password_reset"
	EventBookingConfirmed = "booking.confirmed"
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Service publishes account and booking notifications, keyed by recipient
// email so one user's notifications stay ordered.
type Service struct {
	publisher Publisher
	source    string
	log       *logger.Logger
}

func NewService(publisher Publisher, source string, log *logger.Logger) *Service {
	return &Service{publisher: publisher, source: source, log: log}
}

type welcomePayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type passwordResetPayload struct {
	Email    string `json:"email"`
	ResetURL string `json:"resetUrl"`
	// The reset link expires server-side; the payload carries no TTL.
}

type bookingConfirmedPayload struct {
	Email     string  `json:"email"`
	TourID    string  `json:"tourId"`
	BookingID string  `json:"bookingId"`
	StartDate string  `json:"startDate"`
	Price     float64 `json:"price"`
}

func (s *Service) Welcome(ctx context.Context, email, name string) error {
	return s.publish(ctx, email, EventWelcome, welcomePayload{Email: email, Name: name})
}

func (s *Service) PasswordReset(ctx context.Context, email, resetURL string) error {
	return s.publish(ctx, email, EventPasswordReset, passwordResetPayload{Email: email, ResetURL: resetURL})
}

func (s *Service) BookingConfirmed(ctx context.Context, email, tourID, bookingID, startDate string, price float64) error {
	return s.publish(ctx, email, EventBookingConfirmed, bookingConfirmedPayload{
		Email:     email,
		TourID:    tourID,
		BookingID: bookingID,
		StartDate: startDate,
		Price:     price,
	})
}

func (s *Service) publish(ctx context.Context, key, eventType string, payload any) error {
	msg, err := kafka.NewEvent(key, eventType, s.source, payload)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	s.log.Debug("Notification published", "event_type", eventType, "event_id", msg.EventID())
	return nil
}

// NopPublisher drops events. Used in development when no broker is
// configured, so auth flows still work on a laptop.
type NopPublisher struct {
	Log *logger.Logger
}

func (n *NopPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	n.Log.Info("Notification dropped (no broker configured)",
		"event_type", msg.EventType(),
		"key", msg.Key,
	)
	return nil
}
