// Package payments isolates the payment provider behind a narrow boundary:
// the booking flow sees checkout sessions and verified webhook events, never
// provider SDK types.
package payments

import "context"

// EventCheckoutCompleted is the only event type reconciliation acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutInput describes the single line item a tour checkout sells.
type CheckoutInput struct {
	TourID        string
	TourName      string
	TourSummary   string
	ImageCover    string
	Price         float64
	StartDate     string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider-hosted payment page the client is sent to.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook event, reduced to the fields reconciliation
// needs. AmountTotal is in the currency's smallest unit.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	TourID        string
	StartDate     string
	CustomerEmail string
	AmountTotal   int64
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutSession, error)
	// VerifyWebhook authenticates the raw request body against the signature
	// header. It must see the body byte-for-byte as received.
	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}
