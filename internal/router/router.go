// Package router assembles the domain handlers into one API surface.
package router

import (
	"net/http"

	"tourbook/internal/auth"
	"tourbook/internal/bookings"
	"tourbook/internal/notify"
	"tourbook/internal/payments"
	"tourbook/internal/reviews"
	"tourbook/internal/tours"
	"tourbook/internal/users"
	"tourbook/pkg/config"
	dbmongo "tourbook/pkg/db/mongo"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/kafka"

	"github.com/julienschmidt/httprouter"
)

// Collection names, shared with the migrations.
const (
	CollTours         = "tours"
	CollUsers         = "users"
	CollReviews       = "reviews"
	CollBookings      = "bookings"
	CollWebhookEvents = "webhook_events"
)

// API owns every domain handler plus the resources that need closing on
// shutdown.
type API struct {
	authHandler     *auth.Handler
	authMW          *auth.Middleware
	toursHandler    *tours.Handler
	usersHandler    *users.Handler
	reviewsHandler  *reviews.Handler
	bookingsHandler *bookings.Handler

	producer *kafka.Producer
}

func New(cfg *config.Config) *API {
	log := cfg.Log
	respond := apperrors.NewResponder(cfg.IsDevelopment(), log)
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)

	var producer *kafka.Producer
	var publisher notify.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic, log)
		if err != nil {
			log.Fatal("Failed to create Kafka producer", "error", err)
		}
		producer = p
		publisher = p
	} else {
		log.Warn("No Kafka brokers configured; notifications will be dropped")
		publisher = &notify.NopPublisher{Log: log}
	}
	notifier := notify.NewService(publisher, "tourbook-api", log)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	authRepo := auth.NewRepository(db.Collection(CollUsers))
	authService := auth.NewService(authRepo, tokens, notifier, log)
	authMW := auth.NewMiddleware(tokens, authRepo, respond)
	authHandler := auth.NewHandler(authService, respond, cfg.JWTCookieExpiryDays, !cfg.IsDevelopment())

	toursRepo := tours.NewRepository(db.Collection(CollTours), db.Collection(CollUsers))
	toursHandler := tours.NewHandler(toursRepo, respond, log)

	usersRepo := users.NewRepository(db.Collection(CollUsers))
	usersHandler := users.NewHandler(usersRepo, respond, log)

	tx := dbmongo.NewTransactionManager(cfg.Client.Mongo)
	reviewsRepo := reviews.NewRepository(
		db.Collection(CollReviews),
		db.Collection(CollUsers),
		db.Collection(CollTours),
		db.Collection(CollBookings),
	)
	reviewsService := reviews.NewService(reviewsRepo, tx)
	reviewsHandler := reviews.NewHandler(reviewsRepo, reviewsService, respond, log)

	provider := payments.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	bookingsRepo := bookings.NewRepository(
		db.Collection(CollBookings),
		db.Collection(CollTours),
		db.Collection(CollUsers),
		db.Collection(CollWebhookEvents),
	)
	bookingsService := bookings.NewService(bookingsRepo, provider, notifier, log)
	bookingsHandler := bookings.NewHandler(bookingsRepo, bookingsService, provider, respond, log)

	return &API{
		authHandler:     authHandler,
		authMW:          authMW,
		toursHandler:    toursHandler,
		usersHandler:    usersHandler,
		reviewsHandler:  reviewsHandler,
		bookingsHandler: bookingsHandler,
		producer:        producer,
	}
}

func (a *API) RegisterRoutes(router *httprouter.Router) {
	a.authHandler.RegisterRoutes(router, a.authMW.Protect)
	a.toursHandler.RegisterRoutes(router, a.authMW)
	a.usersHandler.RegisterRoutes(router, a.authMW)
	a.reviewsHandler.RegisterRoutes(router, a.authMW)
	a.bookingsHandler.RegisterRoutes(router, a.authMW)
}

// WebhookHandler is mounted by the application outside the JSON middleware
// chain: signature verification needs the raw body.
func (a *API) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		a.bookingsHandler.Webhook(w, r, nil)
	})
}

func (a *API) Close() error {
	if a.producer != nil {
		return a.producer.Close()
	}
	return nil
}
