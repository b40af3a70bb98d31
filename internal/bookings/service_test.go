package bookings

import (
	"context"
	"testing"

	"tourbook/internal/crud"
	"tourbook/internal/payments"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockBookingStore struct {
	tour *model.Tour
	user *model.User

	seenEvents   map[string]bool
	bookings     []*model.Booking
	soldOutCalls int
	reserveFails bool
}

func newMockBookingStore(tour *model.Tour, user *model.User) *mockBookingStore {
	return &mockBookingStore{tour: tour, user: user, seenEvents: map[string]bool{}}
}

func (m *mockBookingStore) FindTour(ctx context.Context, id string) (*model.Tour, error) {
	if m.tour != nil && m.tour.ID == id {
		return m.tour, nil
	}
	return nil, crud.ErrNotFound
}

func (m *mockBookingStore) FindVisibleTour(ctx context.Context, id string) (*model.Tour, error) {
	if m.tour != nil && m.tour.ID == id && !m.tour.SecretTour {
		return m.tour, nil
	}
	return nil, crud.ErrNotFound
}

func (m *mockBookingStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.user != nil && m.user.Email == email {
		return m.user, nil
	}
	return nil, crud.ErrNotFound
}

func (m *mockBookingStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	booking.ID = "64b8f1a2c3d4e5f60718293c"
	m.bookings = append(m.bookings, booking)
	return nil
}

func (m *mockBookingStore) RecordEvent(ctx context.Context, eventID, eventType string) error {
	if m.seenEvents[eventID] {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	m.seenEvents[eventID] = true
	return nil
}

func (m *mockBookingStore) ReserveSeat(ctx context.Context, tourID, date string, maxGroupSize int) (*model.Tour, error) {
	if m.reserveFails {
		return nil, crud.ErrNotFound
	}
	for i := range m.tour.StartDates {
		sd := &m.tour.StartDates[i]
		if sd.Date == date && !sd.SoldOut && sd.Participants < maxGroupSize {
			sd.Participants++
			return m.tour, nil
		}
	}
	return nil, crud.ErrNotFound
}

func (m *mockBookingStore) MarkDateSoldOut(ctx context.Context, tourID, date string, maxGroupSize int) error {
	m.soldOutCalls++
	return nil
}

type mockNotifier struct{ confirmations int }

func (m *mockNotifier) BookingConfirmed(ctx context.Context, email, tourID, bookingID, startDate string, price float64) error {
	m.confirmations++
	return nil
}

type mockProvider struct {
	session *payments.CheckoutSession
	err     error
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, input payments.CheckoutInput) (*payments.CheckoutSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockProvider) VerifyWebhook(payload []byte, signatureHeader string) (*payments.Event, error) {
	return nil, apperrors.InvalidSignature()
}

func testTour() *model.Tour {
	return &model.Tour{
		ID:           "64b8f1a2c3d4e5f607182930",
		Name:         "The Forest Hiker Tour",
		Price:        397,
		MaxGroupSize: 2,
		StartDates: []model.StartDate{
			{Date: "2026-06-19T09:00:00.000Z", Participants: 0},
			{Date: "2026-07-20T09:00:00.000Z", Participants: 2},
		},
	}
}

func testUser() *model.User {
	return &model.User{ID: "507f1f77bcf86cd799439011", Email: "alice@example.com"}
}

func completedEvent(id string) *payments.Event {
	return &payments.Event{
		ID:            id,
		Type:          payments.EventCheckoutCompleted,
		SessionID:     "cs_test_123",
		TourID:        "64b8f1a2c3d4e5f607182930",
		StartDate:     "2026-06-19T09:00:00.000Z",
		CustomerEmail: "alice@example.com",
		AmountTotal:   39700,
	}
}

func newTestService(store Store, notify Notifier) *Service {
	log := logger.New(logger.Config{Level: "error", Service: "test"})
	return NewService(store, &mockProvider{}, notify, log)
}

func TestHandleEvent_CreatesBooking(t *testing.T) {
	store := newMockBookingStore(testTour(), testUser())
	notify := &mockNotifier{}
	svc := newTestService(store, notify)

	if err := svc.HandleEvent(context.Background(), completedEvent("evt_1")); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if len(store.bookings) != 1 {
		t.Fatalf("expected one booking, got %d", len(store.bookings))
	}
	b := store.bookings[0]
	if b.Tour != "64b8f1a2c3d4e5f607182930" || b.User != "507f1f77bcf86cd799439011" {
		t.Errorf("booking references wrong, got %+v", b)
	}
	if b.Price != 397 {
		t.Errorf("expected price from amount total, got %v", b.Price)
	}
	if !b.Paid {
		t.Error("webhook-created booking must be paid")
	}
	if store.tour.StartDates[0].Participants != 1 {
		t.Errorf("expected participant count 1, got %d", store.tour.StartDates[0].Participants)
	}
	if notify.confirmations != 1 {
		t.Errorf("expected one confirmation event, got %d", notify.confirmations)
	}
}

func TestHandleEvent_DoubleDeliveryCreatesOneBooking(t *testing.T) {
	store := newMockBookingStore(testTour(), testUser())
	svc := newTestService(store, &mockNotifier{})

	if err := svc.HandleEvent(context.Background(), completedEvent("evt_1")); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), completedEvent("evt_1")); err != nil {
		t.Fatalf("redelivery must be a clean no-op, got: %v", err)
	}

	if len(store.bookings) != 1 {
		t.Errorf("expected exactly one booking after redelivery, got %d", len(store.bookings))
	}
	if store.tour.StartDates[0].Participants != 1 {
		t.Errorf("expected one reserved seat after redelivery, got %d", store.tour.StartDates[0].Participants)
	}
}

func TestHandleEvent_LastSeatTwoDeliveriesOneBooking(t *testing.T) {
	tour := testTour()
	tour.StartDates[0].Participants = 1 // one seat left of 2
	store := newMockBookingStore(tour, testUser())
	svc := newTestService(store, &mockNotifier{})

	if err := svc.HandleEvent(context.Background(), completedEvent("evt_1")); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), completedEvent("evt_2")); err != nil {
		t.Fatalf("losing the seat race must be a clean no-op, got: %v", err)
	}

	if len(store.bookings) != 1 {
		t.Errorf("expected exactly one booking for the last seat, got %d", len(store.bookings))
	}
	if store.tour.StartDates[0].Participants != 2 {
		t.Errorf("participants must stop at capacity, got %d", store.tour.StartDates[0].Participants)
	}
}

func TestHandleEvent_FullDepartureCreatesNoBooking(t *testing.T) {
	store := newMockBookingStore(testTour(), testUser())
	svc := newTestService(store, &mockNotifier{})

	event := completedEvent("evt_1")
	event.StartDate = "2026-07-20T09:00:00.000Z" // at capacity

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("full departure must not be an error, got: %v", err)
	}
	if len(store.bookings) != 0 {
		t.Errorf("expected no booking for a full departure, got %d", len(store.bookings))
	}
}

func TestHandleEvent_ReachingCapacityFlagsSoldOut(t *testing.T) {
	tour := testTour()
	tour.StartDates[0].Participants = 1 // one seat left of 2
	store := newMockBookingStore(tour, testUser())
	svc := newTestService(store, &mockNotifier{})

	if err := svc.HandleEvent(context.Background(), completedEvent("evt_1")); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if store.soldOutCalls != 1 {
		t.Errorf("expected the departure to be flagged sold out, calls = %d", store.soldOutCalls)
	}
}

func TestHandleEvent_UnknownCustomerCreatesNoBooking(t *testing.T) {
	store := newMockBookingStore(testTour(), nil)
	svc := newTestService(store, &mockNotifier{})

	if err := svc.HandleEvent(context.Background(), completedEvent("evt_1")); err != nil {
		t.Fatalf("unknown customer must not be an error, got: %v", err)
	}
	if len(store.bookings) != 0 {
		t.Errorf("expected no booking, got %d", len(store.bookings))
	}
	if store.tour.StartDates[0].Participants != 0 {
		t.Error("no seat may be reserved for an unknown customer")
	}
}

func TestHandleEvent_IgnoresOtherEventTypes(t *testing.T) {
	store := newMockBookingStore(testTour(), testUser())
	svc := newTestService(store, &mockNotifier{})

	event := completedEvent("evt_1")
	event.Type = "payment_intent.created"

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unrelated event must be ignored, got: %v", err)
	}
	if len(store.bookings) != 0 || len(store.seenEvents) != 0 {
		t.Error("unrelated events must not be recorded or reconciled")
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	user := testUser()
	log := logger.New(logger.Config{Level: "error", Service: "test"})

	t.Run("happy path", func(t *testing.T) {
		store := newMockBookingStore(testTour(), user)
		provider := &mockProvider{session: &payments.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example/cs_test_123"}}
		svc := NewService(store, provider, &mockNotifier{}, log)

		session, err := svc.CreateCheckoutSession(context.Background(), user,
			"64b8f1a2c3d4e5f607182930", "2026-06-19T09:00:00.000Z", "http://localhost:8080")
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
		if session.ID != "cs_test_123" {
			t.Errorf("unexpected session: %+v", session)
		}
	})

	t.Run("unknown departure", func(t *testing.T) {
		store := newMockBookingStore(testTour(), user)
		svc := NewService(store, &mockProvider{}, &mockNotifier{}, log)

		_, err := svc.CreateCheckoutSession(context.Background(), user,
			"64b8f1a2c3d4e5f607182930", "2030-01-01T00:00:00.000Z", "http://localhost:8080")
		assertCode(t, err, apperrors.CodeInvalidInput)
	})

	t.Run("full departure", func(t *testing.T) {
		store := newMockBookingStore(testTour(), user)
		svc := NewService(store, &mockProvider{}, &mockNotifier{}, log)

		_, err := svc.CreateCheckoutSession(context.Background(), user,
			"64b8f1a2c3d4e5f607182930", "2026-07-20T09:00:00.000Z", "http://localhost:8080")
		assertCode(t, err, apperrors.CodeInvalidInput)
	})

	t.Run("secret tour", func(t *testing.T) {
		tour := testTour()
		tour.SecretTour = true
		store := newMockBookingStore(tour, user)
		svc := NewService(store, &mockProvider{}, &mockNotifier{}, log)

		_, err := svc.CreateCheckoutSession(context.Background(), user,
			"64b8f1a2c3d4e5f607182930", "2026-06-19T09:00:00.000Z", "http://localhost:8080")
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("unknown tour", func(t *testing.T) {
		store := newMockBookingStore(testTour(), user)
		svc := NewService(store, &mockProvider{}, &mockNotifier{}, log)

		_, err := svc.CreateCheckoutSession(context.Background(), user,
			"64b8f1a2c3d4e5f607182999", "2026-06-19T09:00:00.000Z", "http://localhost:8080")
		assertCode(t, err, apperrors.CodeNotFound)
	})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code %s, got nil", code)
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected code %s, got %s", code, appErr.Code)
	}
}
